package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type PaymentMethod string

const (
	MethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	MethodInstapay       PaymentMethod = "instapay"
	MethodCard           PaymentMethod = "card"
	MethodWallet         PaymentMethod = "wallet"
	MethodMobileWallet   PaymentMethod = "mobile_wallet"
	MethodKiosk          PaymentMethod = "kiosk"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCashOnDelivery, MethodInstapay, MethodCard, MethodWallet, MethodMobileWallet, MethodKiosk:
		return true
	}
	return false
}

// RequiresRedirect reports whether the method completes through an
// external gateway redirect rather than synchronously.
func (m PaymentMethod) RequiresRedirect() bool {
	switch m {
	case MethodCard, MethodWallet, MethodMobileWallet, MethodKiosk:
		return true
	}
	return false
}

// RequiresReview reports whether the method settles only after a human
// verifies an uploaded proof of payment.
func (m PaymentMethod) RequiresReview() bool {
	return m == MethodInstapay
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusInReview PaymentStatus = "in_review"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
)

type Order struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	CustomerEmail  string            `gorm:"not null" json:"customer_email"`
	TotalCents     int64             `gorm:"not null" json:"total_cents"`
	Currency       string            `gorm:"not null" json:"currency"`
	PaymentMethod  PaymentMethod     `gorm:"type:text;not null" json:"payment_method"`
	PaymentStatus  PaymentStatus     `gorm:"type:text;not null" json:"payment_status"`
	PaymentDetails datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"payment_details,omitempty"`
	PaymentProof   string            `gorm:"type:text" json:"payment_proof,omitempty"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// MergePaymentDetails folds incoming gateway metadata into the order's
// details blob. Keys merge last-writer-wins; existing keys absent from
// the incoming set are preserved, never clobbered.
func (o *Order) MergePaymentDetails(details map[string]any) {
	if len(details) == 0 {
		return
	}
	if o.PaymentDetails == nil {
		o.PaymentDetails = datatypes.JSONMap{}
	}
	for key, value := range details {
		if key == "" {
			continue
		}
		o.PaymentDetails[key] = value
	}
}
