package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// EmailStatusResponse is the outward-facing notification record.
type EmailStatusResponse struct {
	Sent   bool       `json:"sent"`
	SentAt *time.Time `json:"sentAt,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// ContractResponse is the outward-facing representation of a contract.
type ContractResponse struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         string     `json:"status"`
	RecipientEmail string     `json:"recipientEmail"`
	SigningKey     string     `json:"signingKey"`
	ExpiryDate     time.Time  `json:"expiryDate"`
	SignedAt       *time.Time `json:"signedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`

	RequirePayment     bool             `json:"requirePayment"`
	PaymentAmount      *decimal.Decimal `json:"paymentAmount,omitempty"`
	PaymentCurrency    string           `json:"paymentCurrency,omitempty"`
	PaymentDescription string           `json:"paymentDescription,omitempty"`
	PaymentStatus      string           `json:"paymentStatus"`

	EmailStatus *EmailStatusResponse `json:"emailStatus,omitempty"`
}

// toOwnerResponse includes the notification record; owner views only.
func toOwnerResponse(c Contract) ContractResponse {
	resp := toSigningResponse(c)
	resp.EmailStatus = &EmailStatusResponse{
		Sent:   c.EmailStatus.Sent,
		SentAt: c.EmailStatus.SentAt,
		Error:  c.EmailStatus.Error,
	}
	return resp
}

// toSigningResponse is the recipient-facing view.
func toSigningResponse(c Contract) ContractResponse {
	resp := ContractResponse{
		ID:             c.ID,
		Title:          c.Title,
		Description:    c.Description,
		Status:         string(c.Status),
		RecipientEmail: c.RecipientEmail,
		SigningKey:     c.SigningKey,
		ExpiryDate:     c.ExpiresAt,
		SignedAt:       c.SignedAt,
		CreatedAt:      c.CreatedAt,
		RequirePayment: c.RequirePayment,
		PaymentStatus:  string(c.PaymentStatus),
	}
	if c.RequirePayment {
		amount := c.PaymentAmount
		resp.PaymentAmount = &amount
		resp.PaymentCurrency = c.PaymentCurrency
		resp.PaymentDescription = c.PaymentDescription
	}
	return resp
}
