package contracts

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/akash-limitlessglobaltechnologies/contract/internal/shared/server/middleware"
	"github.com/akash-limitlessglobaltechnologies/contract/internal/shared/server/respond"
)

const maxUploadSize = 5 << 20 // 5MB, matching the upload limit recipients were promised

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches owner-authenticated contract routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/contracts", h.create)
	rg.GET("/contracts", h.list)
	rg.GET("/contracts/:id", h.get)
	rg.GET("/contracts/:id/download", h.ownerDownload)
	rg.POST("/contracts/:id/resend-email", h.resend)
}

// RegisterPublicRoutes attaches signing-key routes; the key itself is the
// credential, so these sit outside the auth middleware.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/sign/:signingKey", h.signingView)
	rg.POST("/sign/:signingKey", h.sign)
	rg.GET("/contracts/:id/document/:signingKey", h.documentByKey)
}

func (h *Handler) create(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize+1<<20)

	fileHeader, err := c.FormFile("pdf")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "pdf file is required", nil)
		return
	}
	if fileHeader.Size > maxUploadSize {
		respond.Error(c, http.StatusBadRequest, "validation_error", "pdf file exceeds 5MB limit", nil)
		return
	}
	if !isPDF(fileHeader.Filename, fileHeader.Header.Get("Content-Type")) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "only PDF files are accepted", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	expiresAt, err := parseExpiry(c.PostForm("expiryDate"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "expiryDate must be a valid timestamp", nil)
		return
	}

	spec := CreateSpec{
		OwnerID:        ownerID,
		Title:          c.PostForm("title"),
		Description:    c.PostForm("description"),
		RecipientEmail: strings.TrimSpace(c.PostForm("recipientEmail")),
		ExpiresAt:      expiresAt,
		FileName:       fileHeader.Filename,
		File:           file,
	}

	if strings.EqualFold(c.PostForm("requirePayment"), "true") {
		amount, err := decimal.NewFromString(strings.TrimSpace(c.PostForm("paymentAmount")))
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "paymentAmount must be a decimal number", nil)
			return
		}
		spec.RequirePayment = true
		spec.PaymentAmount = amount
		spec.PaymentCurrency = strings.ToUpper(strings.TrimSpace(c.PostForm("paymentCurrency")))
		spec.PaymentDescription = c.PostForm("paymentDescription")
	}

	contract, err := h.Svc.Create(c.Request.Context(), spec)
	if err != nil {
		h.respondError(c, err, "failed to create contract")
		return
	}

	c.Set("contractId", contract.ID)
	respond.JSON(c, http.StatusCreated, toOwnerResponse(contract))
}

func (h *Handler) list(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)

	list, err := h.Svc.List(c.Request.Context(), ownerID)
	if err != nil {
		h.respondError(c, err, "failed to list contracts")
		return
	}

	resp := make([]ContractResponse, 0, len(list))
	for _, contract := range list {
		resp = append(resp, toOwnerResponse(contract))
	}
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)

	contract, err := h.Svc.GetOwned(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to fetch contract")
		return
	}

	c.Set("contractId", contract.ID)
	respond.OK(c, toOwnerResponse(contract))
}

func (h *Handler) ownerDownload(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)

	rc, contract, err := h.Svc.OpenOwnerDocument(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to download contract")
		return
	}
	defer rc.Close()

	c.Set("contractId", contract.ID)
	serveDocument(c, contract, "attachment")
	// Headers are already out; a copy failure mid-stream has nowhere to go.
	_, _ = io.Copy(c.Writer, rc)
}

func (h *Handler) resend(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)

	contract, err := h.Svc.ResendInvite(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil && !errors.Is(err, ErrUpstream) {
		h.respondError(c, err, "failed to resend email")
		return
	}
	if err != nil {
		respond.Error(c, http.StatusBadGateway, "email_failed", "failed to send email", nil)
		return
	}

	c.Set("contractId", contract.ID)
	respond.OK(c, toOwnerResponse(contract))
}

func (h *Handler) signingView(c *gin.Context) {
	contract, err := h.Svc.GetForSigning(c.Request.Context(), c.Param("signingKey"))
	if err != nil {
		h.respondError(c, err, "failed to fetch contract")
		return
	}

	c.Set("contractId", contract.ID)
	respond.OK(c, toSigningResponse(contract))
}

type signRequest struct {
	SignatureData string `json:"signatureData"`
}

func (h *Handler) sign(c *gin.Context) {
	var req signRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	contract, err := h.Svc.Sign(c.Request.Context(), c.Param("signingKey"), req.SignatureData)
	if err != nil {
		h.respondError(c, err, "failed to sign contract")
		return
	}

	c.Set("contractId", contract.ID)
	c.Set("statusTransition", "pending->signed")
	respond.OK(c, toSigningResponse(contract))
}

func (h *Handler) documentByKey(c *gin.Context) {
	rc, contract, err := h.Svc.OpenDocumentByKey(c.Request.Context(), c.Param("id"), c.Param("signingKey"))
	if err != nil {
		h.respondError(c, err, "failed to fetch document")
		return
	}
	defer rc.Close()

	disposition := "attachment"
	if c.Query("disposition") == "inline" {
		disposition = "inline"
	}

	c.Set("contractId", contract.ID)
	serveDocument(c, contract, disposition)
	_, _ = io.Copy(c.Writer, rc)
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrInvalidSignature):
		respond.Error(c, http.StatusBadRequest, "invalid_signature", "a signature is required", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "contract not found", nil)
	case errors.Is(err, ErrExpired):
		respond.Error(c, http.StatusGone, "expired", "contract has expired", nil)
	case errors.Is(err, ErrAlreadySigned):
		respond.Error(c, http.StatusConflict, "already_signed", "contract has already been signed", nil)
	case errors.Is(err, ErrPaymentRequired):
		respond.Error(c, http.StatusPaymentRequired, "payment_required", "payment must be completed before the document is released", nil)
	case errors.Is(err, ErrUpstream):
		respond.Error(c, http.StatusBadGateway, "upstream_error", fallback, nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func serveDocument(c *gin.Context, contract Contract, disposition string) {
	key := contract.DocumentKey()
	contentType := "application/pdf"
	if contract.SignedKey != "" {
		contentType = "image/png"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%s", disposition, path.Base(key)))
	c.Status(http.StatusOK)
}

func isPDF(fileName, contentType string) bool {
	if strings.EqualFold(contentType, "application/pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(fileName), ".pdf")
}

func parseExpiry(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty expiry")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
