package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ecobalance/impact-balance/internal/api/response"
	"github.com/ecobalance/impact-balance/internal/factors"
	"github.com/ecobalance/impact-balance/internal/models"
	"github.com/ecobalance/impact-balance/internal/quotation"
	"github.com/ecobalance/impact-balance/internal/repository"
)

// SettingsHandler handles factor model and quotation endpoints.
type SettingsHandler struct {
	factorSvc    *factors.Service
	quotationSvc *quotation.Service
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(factorSvc *factors.Service, quotationSvc *quotation.Service) *SettingsHandler {
	return &SettingsHandler{
		factorSvc:    factorSvc,
		quotationSvc: quotationSvc,
	}
}

// HandleGetFactors handles GET /api/v1/settings/factors. The returned
// model is always complete: stored overrides merged over defaults.
func (h *SettingsHandler) HandleGetFactors(c *gin.Context) {
	model := h.factorSvc.Load(c.Request.Context())
	response.Success(c, http.StatusOK, model)
}

// HandlePutFactors handles PUT /api/v1/settings/factors. The body is a
// partial edit merged over the current model, so unspecified coefficients
// keep their values. Live quotation fields in the body are ignored on
// save; they come from the feed.
func (h *SettingsHandler) HandlePutFactors(c *gin.Context) {
	model := h.factorSvc.Load(c.Request.Context())
	if err := c.ShouldBindJSON(&model); err != nil {
		response.BadRequest(c, "invalid factor model", err.Error())
		return
	}

	if err := h.factorSvc.Save(c.Request.Context(), model); err != nil {
		if repository.IsPermissionDenied(err) {
			response.PermissionDenied(c, "store rejected the settings write")
			return
		}
		response.InternalError(c, fmt.Sprintf("failed to save factors: %v", err))
		return
	}

	response.Success(c, http.StatusOK, h.factorSvc.Load(c.Request.Context()))
}

// HandleGetQuotation handles GET /api/v1/quotation. The refresh query
// param bypasses and clears the 5-minute cache.
func (h *SettingsHandler) HandleGetQuotation(c *gin.Context) {
	refresh, _ := strconv.ParseBool(c.Query("refresh"))

	var (
		quote *models.Quotation
		err   error
	)
	if refresh {
		quote, err = h.quotationSvc.ForceRefresh(c.Request.Context())
	} else {
		quote, err = h.quotationSvc.Current(c.Request.Context())
	}
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to fetch quotation: %v", err))
		return
	}
	if quote == nil {
		response.NotFound(c, "no quotation available")
		return
	}

	response.Success(c, http.StatusOK, quote)
}
