package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/rafaelreis-se/gym-nfse/internal/application/service"
	"github.com/rafaelreis-se/gym-nfse/internal/domain/emission"
	"github.com/rafaelreis-se/gym-nfse/internal/domain/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	emission      service.EmissionService
	notifications service.NotificationService
	logger        Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	emission service.EmissionService,
	notifications service.NotificationService,
	logger Logger,
) *Handlers {
	return &Handlers{
		emission:      emission,
		notifications: notifications,
		logger:        logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CreateRPSRequest is the payload for creating a draft invoice
type CreateRPSRequest struct {
	ServiceDescription string  `json:"service_description"`
	ServiceValue       string  `json:"service_value"`
	RecipientName      string  `json:"recipient_name"`
	RecipientContact   string  `json:"recipient_contact"`
	Series             string  `json:"series"`
	Number             int64   `json:"number"`
	LinkedEntityID     *string `json:"linked_entity_id"`
}

// CancelRequest is the payload for cancelling an invoice
type CancelRequest struct {
	Reason string `json:"reason"`
}

// BatchRequest is the payload for batch notification
type BatchRequest struct {
	InvoiceIDs []string `json:"invoice_ids"`
}

// HealthCheck reports service liveness
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// CreateRPS creates a new draft invoice
func (h *Handlers) CreateRPS(c *gin.Context) {
	var req CreateRPSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid request body"})
		return
	}

	value, err := decimal.NewFromString(req.ServiceValue)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid service_value"})
		return
	}

	inv, err := h.emission.CreateRPS(c.Request.Context(), service.CreateRPSInput{
		ServiceDescription: req.ServiceDescription,
		ServiceValue:       value,
		RecipientName:      req.RecipientName,
		RecipientContact:   req.RecipientContact,
		Series:             req.Series,
		Number:             req.Number,
		LinkedEntityID:     req.LinkedEntityID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: inv})
}

// GetInvoice returns one invoice by id
func (h *Handlers) GetInvoice(c *gin.Context) {
	inv, err := h.emission.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: inv})
}

// ListInvoices lists invoices by status
func (h *Handlers) ListInvoices(c *gin.Context) {
	status := workflow.State(c.Query("status"))
	if !status.IsValid() {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid or missing status"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, Response{Error: "invalid limit"})
			return
		}
		limit = parsed
	}

	invoices, err := h.emission.ListByStatus(c.Request.Context(), status, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: invoices})
}

// ValidateRPS runs business validation on a draft
func (h *Handlers) ValidateRPS(c *gin.Context) {
	result, err := h.emission.ValidateRPS(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, Response{Success: result.Success, Data: result})
}

// SendToWebservice signs and transmits a validated invoice
func (h *Handlers) SendToWebservice(c *gin.Context) {
	result, err := h.emission.SendToWebservice(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	c.JSON(status, Response{Success: result.Success, Data: result})
}

// CheckProcessingStatus polls the remote processing status
func (h *Handlers) CheckProcessingStatus(c *gin.Context) {
	result, err := h.emission.CheckProcessingStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: result.Success, Data: result})
}

// CancelNFSe cancels an invoice locally and, when transmitted, remotely first
func (h *Handlers) CancelNFSe(c *gin.Context) {
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid request body"})
		return
	}

	result, err := h.emission.CancelNFSe(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: result.Success, Data: result})
}

// SendDocumentToCustomer explicitly delivers an approved invoice
func (h *Handlers) SendDocumentToCustomer(c *gin.Context) {
	sent, err := h.notifications.SendDocumentToCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: sent, Data: gin.H{"delivered": sent}})
}

// NotifyBatch delivers documents for a list of invoice ids
func (h *Handlers) NotifyBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.InvoiceIDs) == 0 {
		c.JSON(http.StatusBadRequest, Response{Error: "invoice_ids is required"})
		return
	}

	outcome := h.notifications.NotifyBatch(c.Request.Context(), req.InvoiceIDs)
	c.JSON(http.StatusOK, Response{
		Success: outcome.Failed == 0,
		Data: gin.H{
			"succeeded":    outcome.Succeeded,
			"failed":       outcome.Failed,
			"avg_attempts": outcome.AvgAttempts,
		},
	})
}

// respondError maps domain error kinds to HTTP statuses
func (h *Handlers) respondError(c *gin.Context, err error) {
	var validationErr *emission.ValidationError
	var preconditionErr *emission.PreconditionError
	var rejectionErr *emission.RemoteRejectionError
	var transportErr *emission.TransportError

	switch {
	case errors.Is(err, emission.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Error: err.Error()})
	case errors.Is(err, emission.ErrConflict):
		c.JSON(http.StatusConflict, Response{Error: err.Error()})
	case errors.Is(err, emission.ErrConcurrentModification):
		c.JSON(http.StatusConflict, Response{Error: err.Error()})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, Response{Error: err.Error()})
	case errors.As(err, &preconditionErr):
		c.JSON(http.StatusUnprocessableEntity, Response{Error: err.Error()})
	case errors.As(err, &rejectionErr), errors.As(err, &transportErr):
		c.JSON(http.StatusBadGateway, Response{Error: err.Error()})
	default:
		h.logger.Error("Unhandled error", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Error: "internal error"})
	}
}
