package payments

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akash-limitlessglobaltechnologies/contract/internal/contracts"
	"github.com/akash-limitlessglobaltechnologies/contract/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the payment service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the payment routes. They live on the public group
// because the payer is the anonymous signing-key holder, not the owner.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/intent", h.createIntent)
	rg.POST("/payments/complete", h.complete)
}

type intentRequest struct {
	ContractID string `json:"contractId" binding:"required"`
}

type intentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

func (h *Handler) createIntent(c *gin.Context) {
	var req intentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "contractId is required", nil)
		return
	}

	secret, err := h.Svc.CreateIntent(c.Request.Context(), req.ContractID)
	if err != nil {
		respondError(c, err, "failed to create payment intent")
		return
	}
	respond.JSON(c, http.StatusOK, intentResponse{ClientSecret: secret})
}

type completeRequest struct {
	ContractID      string `json:"contractId" binding:"required"`
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
}

func (h *Handler) complete(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "contractId and paymentIntentId are required", nil)
		return
	}

	contract, err := h.Svc.Complete(c.Request.Context(), req.ContractID, req.PaymentIntentID)
	if err != nil {
		respondError(c, err, "failed to record payment")
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{
		"contractId":    contract.ID,
		"paymentStatus": contract.PaymentStatus,
	})
}

func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, contracts.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, contracts.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "contract not found", nil)
	case errors.Is(err, contracts.ErrConflict):
		respond.Error(c, http.StatusConflict, "payment_conflict", "a different payment was already recorded for this contract", nil)
	case errors.Is(err, contracts.ErrUpstream):
		respond.Error(c, http.StatusBadGateway, "upstream_error", fallback, nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
