package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus values.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

// Payment records an amount paid against a registration. Nothing is charged.
type Payment struct {
	ID             uuid.UUID       `json:"id"`
	RegistrationID uuid.UUID       `json:"registration"`
	PaymentMethod  string          `json:"payment_method"`
	PaymentStatus  string          `json:"payment_status"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	PaidAt         time.Time       `json:"paid_at"`

	// Resolved through registration -> ticket -> event.
	UserID      uuid.UUID `json:"user_id"`
	OrganizerID uuid.UUID `json:"organizer_id"`
}

// Target returns the ownership chain of the payment.
func (p *Payment) Target() Target {
	return Target{Type: ResourcePayment, OrganizerID: p.OrganizerID, OwnerID: p.UserID}
}
