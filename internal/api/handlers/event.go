package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecobalance/impact-balance/internal/api/response"
	"github.com/ecobalance/impact-balance/internal/impact"
	"github.com/ecobalance/impact-balance/internal/ingest"
	"github.com/ecobalance/impact-balance/internal/models"
	"github.com/ecobalance/impact-balance/internal/repository"
)

// IdempotencyClaimer is the slice of the idempotency repository the
// handlers depend on.
type IdempotencyClaimer interface {
	Claim(ctx context.Context, key, resourceType string, resourceID uuid.UUID) (*repository.IdempotencyResult, error)
	Release(ctx context.Context, key, resourceType string) error
}

// EventHandler handles calculation and event-record operations.
type EventHandler struct {
	eventRepo       *repository.EventRepository
	idempotencyRepo IdempotencyClaimer
	calculator      *impact.Calculator
}

// NewEventHandler creates a new event handler.
func NewEventHandler(
	eventRepo *repository.EventRepository,
	idempotencyRepo IdempotencyClaimer,
	calculator *impact.Calculator,
) *EventHandler {
	return &EventHandler{
		eventRepo:       eventRepo,
		idempotencyRepo: idempotencyRepo,
		calculator:      calculator,
	}
}

// calculateResponse pairs the persisted record with a stored flag so
// clients can still display a result whose write failed.
type calculateResponse struct {
	Record *models.EventRecord `json:"record"`
	Stored bool                `json:"stored"`
}

// HandleCalculate handles POST /api/v1/events/calculate.
func (h *EventHandler) HandleCalculate(c *gin.Context) {
	var input models.EventFormInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, "invalid event form input", err.Error())
		return
	}

	// Atomic idempotency claim keyed on the Idempotency-Key header. The
	// claimed id becomes the stored record's id, so a replay can look the
	// original result up.
	recordID := uuid.New()
	key := c.GetHeader("Idempotency-Key")
	if key != "" {
		claim, err := h.idempotencyRepo.Claim(c.Request.Context(), key, "calculation", recordID)
		if err != nil {
			response.InternalError(c, fmt.Sprintf("idempotency check failed: %v", err))
			return
		}
		if claim.AlreadyExists {
			existing, _ := h.eventRepo.GetByID(c.Request.Context(), claim.ResourceID)
			response.Conflict(c, "duplicate calculation (idempotency key match)", existing)
			return
		}
	}

	rec, err := h.calculator.Run(c.Request.Context(), recordID, input)
	if err != nil {
		// Nothing was stored under this key; drop the claim so the client
		// can retry with the same key.
		if key != "" {
			_ = h.idempotencyRepo.Release(c.Request.Context(), key, "calculation")
		}
		if errors.Is(err, impact.ErrPersist) {
			// The result is still usable; report it with stored=false.
			response.Success(c, http.StatusOK, calculateResponse{Record: rec, Stored: false})
			return
		}
		if repository.IsPermissionDenied(err) {
			response.PermissionDenied(c, "store rejected the calculation write")
			return
		}
		response.InternalError(c, fmt.Sprintf("calculation failed: %v", err))
		return
	}

	response.Success(c, http.StatusCreated, calculateResponse{Record: rec, Stored: true})
}

// HandleList handles GET /api/v1/events.
// Query params: archived (true/false), page, page_size.
func (h *EventHandler) HandleList(c *gin.Context) {
	var archived *bool
	if raw := c.Query("archived"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(c, "invalid archived filter", nil)
			return
		}
		archived = &v
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	records, total, err := h.eventRepo.List(c.Request.Context(), archived, page, pageSize)
	if err != nil {
		if repository.IsPermissionDenied(err) {
			response.PermissionDenied(c, "store rejected the event listing")
			return
		}
		response.InternalError(c, fmt.Sprintf("failed to list events: %v", err))
		return
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	response.Success(c, http.StatusOK, gin.H{
		"events": records,
		"pagination": models.Pagination{
			Page:         page,
			PageSize:     pageSize,
			TotalResults: total,
			TotalPages:   totalPages,
		},
	})
}

// HandleLatest handles GET /api/v1/events/latest, returning the most
// recently calculated or imported record.
func (h *EventHandler) HandleLatest(c *gin.Context) {
	rec, err := h.eventRepo.Latest(c.Request.Context())
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve latest event: %v", err))
		return
	}
	if rec == nil {
		response.NotFound(c, "no events recorded yet")
		return
	}

	response.Success(c, http.StatusOK, rec)
}

// HandleGet handles GET /api/v1/events/:event_id.
func (h *EventHandler) HandleGet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("event_id"))
	if err != nil {
		response.BadRequest(c, "invalid event_id format", nil)
		return
	}

	rec, err := h.eventRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve event: %v", err))
		return
	}
	if rec == nil {
		response.NotFound(c, "event not found")
		return
	}

	response.Success(c, http.StatusOK, rec)
}

// archiveRequest is the PATCH body for flipping the archival flag.
type archiveRequest struct {
	Archived bool `json:"archived"`
}

// HandleArchive handles PATCH /api/v1/events/:event_id/archive.
// The archival flag is the only mutation event records permit.
func (h *EventHandler) HandleArchive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("event_id"))
	if err != nil {
		response.BadRequest(c, "invalid event_id format", nil)
		return
	}

	req := archiveRequest{Archived: true}
	_ = c.ShouldBindJSON(&req) // optional body; defaults to archiving

	found, err := h.eventRepo.SetArchived(c.Request.Context(), id, req.Archived)
	if err != nil {
		if repository.IsPermissionDenied(err) {
			response.PermissionDenied(c, "store rejected the archive update")
			return
		}
		response.InternalError(c, fmt.Sprintf("failed to update event: %v", err))
		return
	}
	if !found {
		response.NotFound(c, "event not found")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"id": id, "archived": req.Archived})
}

// HandleDelete handles DELETE /api/v1/events/:event_id.
func (h *EventHandler) HandleDelete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("event_id"))
	if err != nil {
		response.BadRequest(c, "invalid event_id format", nil)
		return
	}

	found, err := h.eventRepo.Delete(c.Request.Context(), id)
	if err != nil {
		if repository.IsPermissionDenied(err) {
			response.PermissionDenied(c, "store rejected the delete")
			return
		}
		response.InternalError(c, fmt.Sprintf("failed to delete event: %v", err))
		return
	}
	if !found {
		response.NotFound(c, "event not found")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// HandleExport handles GET /api/v1/events/export, streaming an xlsx
// workbook of all (optionally non-archived) events.
func (h *EventHandler) HandleExport(c *gin.Context) {
	var archived *bool
	if raw := c.Query("archived"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(c, "invalid archived filter", nil)
			return
		}
		archived = &v
	}

	// Export everything in one page; listings this size stay well within
	// memory for the service's data volumes.
	records, _, err := h.eventRepo.List(c.Request.Context(), archived, 1, 100000)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to load events: %v", err))
		return
	}

	var buf bytes.Buffer
	if err := ingest.WriteEventsWorkbook(&buf, records); err != nil {
		response.InternalError(c, fmt.Sprintf("failed to render workbook: %v", err))
		return
	}

	filename := fmt.Sprintf("events-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}
