package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus 付款状态，区分大小写
type PaymentStatus string

const (
	PaymentStatusPendingCash PaymentStatus = "pending_cash"
	PaymentStatusPaid        PaymentStatus = "paid"
)

// Payment 表示一次收银台交易。pending_cash -> paid 只允许发生一次
type Payment struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	ResidentID uint            `gorm:"index;not null" json:"resident_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Reference  string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"reference"`
	Status     PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	CashierID  *uint           `gorm:"index" json:"cashier_id,omitempty"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
	CreatedAt  time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	// Relations
	Resident *Resident `gorm:"foreignKey:ResidentID" json:"resident,omitempty"`
	Cashier  *Staff    `gorm:"foreignKey:CashierID" json:"cashier,omitempty"`
}
