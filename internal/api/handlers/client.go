package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecobalance/impact-balance/internal/api/response"
	"github.com/ecobalance/impact-balance/internal/models"
	"github.com/ecobalance/impact-balance/internal/repository"
)

// ClientHandler handles CRM client management.
type ClientHandler struct {
	clientRepo *repository.ClientRepository
}

// NewClientHandler creates a new client handler.
func NewClientHandler(clientRepo *repository.ClientRepository) *ClientHandler {
	return &ClientHandler{clientRepo: clientRepo}
}

// HandleCreate handles POST /api/v1/clients.
func (h *ClientHandler) HandleCreate(c *gin.Context) {
	var client models.Client
	if err := c.ShouldBindJSON(&client); err != nil {
		response.BadRequest(c, "invalid client payload", err.Error())
		return
	}
	if client.Name == "" {
		response.BadRequest(c, "client name is required", nil)
		return
	}
	if client.AccountType == "" {
		client.AccountType = "person"
	}
	if client.Status == "" {
		client.Status = "active"
	}

	client.ID = uuid.New()
	client.CreatedAt = time.Now()
	client.PhoneDigits = repository.PhoneDigits(client.Phone)

	if err := h.clientRepo.Create(c.Request.Context(), &client); err != nil {
		if repository.IsPermissionDenied(err) {
			response.PermissionDenied(c, "store rejected the client write")
			return
		}
		response.InternalError(c, fmt.Sprintf("failed to create client: %v", err))
		return
	}

	response.Success(c, http.StatusCreated, client)
}

// HandleList handles GET /api/v1/clients.
func (h *ClientHandler) HandleList(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	clients, total, err := h.clientRepo.List(c.Request.Context(), page, pageSize)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to list clients: %v", err))
		return
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	response.Success(c, http.StatusOK, gin.H{
		"clients": clients,
		"pagination": models.Pagination{
			Page:         page,
			PageSize:     pageSize,
			TotalResults: total,
			TotalPages:   totalPages,
		},
	})
}

// HandleGet handles GET /api/v1/clients/:client_id.
func (h *ClientHandler) HandleGet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("client_id"))
	if err != nil {
		response.BadRequest(c, "invalid client_id format", nil)
		return
	}

	client, err := h.clientRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve client: %v", err))
		return
	}
	if client == nil {
		response.NotFound(c, "client not found")
		return
	}

	response.Success(c, http.StatusOK, client)
}

// HandleUpdate handles PUT /api/v1/clients/:client_id.
func (h *ClientHandler) HandleUpdate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("client_id"))
	if err != nil {
		response.BadRequest(c, "invalid client_id format", nil)
		return
	}

	var client models.Client
	if err := c.ShouldBindJSON(&client); err != nil {
		response.BadRequest(c, "invalid client payload", err.Error())
		return
	}
	client.ID = id
	client.PhoneDigits = repository.PhoneDigits(client.Phone)

	found, err := h.clientRepo.Update(c.Request.Context(), &client)
	if err != nil {
		if repository.IsPermissionDenied(err) {
			response.PermissionDenied(c, "store rejected the client update")
			return
		}
		response.InternalError(c, fmt.Sprintf("failed to update client: %v", err))
		return
	}
	if !found {
		response.NotFound(c, "client not found")
		return
	}

	response.Success(c, http.StatusOK, client)
}

// HandleDelete handles DELETE /api/v1/clients/:client_id.
func (h *ClientHandler) HandleDelete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("client_id"))
	if err != nil {
		response.BadRequest(c, "invalid client_id format", nil)
		return
	}

	found, err := h.clientRepo.Delete(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to delete client: %v", err))
		return
	}
	if !found {
		response.NotFound(c, "client not found")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}
