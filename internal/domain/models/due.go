package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Due 状态值。数据库中可能存在大小写混用，比较时需忽略大小写
const (
	DueStatusPending = "pending"
	DueStatusOverdue = "overdue"
	DueStatusPaid    = "paid"
)

// Due 表示某个钥匙在一个计费周期内的费用
type Due struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	AccessKeyID uint            `gorm:"index;not null" json:"access_key_id"`
	BaseAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"base_amount"`
	GeneratedAt time.Time       `gorm:"index;not null" json:"generated_at"`
	Status      string          `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Description string          `gorm:"type:varchar(255)" json:"description"`
	PaymentID   *uint           `gorm:"index" json:"payment_id,omitempty"` // 结清该费用的付款
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Relations
	AccessKey *AccessKey `gorm:"foreignKey:AccessKeyID" json:"access_key,omitempty"`
	Payment   *Payment   `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
}

// UnpaidDueStatuses 可被分配付款的状态（小写）
func UnpaidDueStatuses() []string {
	return []string{DueStatusPending, DueStatusOverdue}
}
