package services

import (
	"context"
	"strings"
	"time"

	"dues-http-service/internal/domain/models"
	"dues-http-service/internal/infrastructure/database"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InterfaceBillingService 月度费用生成
type InterfaceBillingService interface {
	GenerateMonthlyDues(ctx context.Context, amount decimal.Decimal, description string, generatedAt time.Time) (int, error)
}

// BillingService 为每个有效钥匙生成一笔待支付费用
type BillingService struct {
	Pool *database.ConnectionPool
	log  *zap.Logger
}

var _ InterfaceBillingService = (*BillingService)(nil)

// NewBillingService 创建计费服务
func NewBillingService(pool *database.ConnectionPool, log *zap.Logger) *BillingService {
	return &BillingService{Pool: pool, log: log}
}

// GenerateMonthlyDues 返回生成的费用数量
func (s *BillingService) GenerateMonthlyDues(ctx context.Context, amount decimal.Decimal, description string, generatedAt time.Time) (int, error) {
	if err := CheckAmount(amount); err != nil {
		return 0, err
	}
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}
	description = strings.TrimSpace(description)
	if description == "" {
		description = "Monthly due " + generatedAt.Format("2006-01")
	}

	created := 0
	err := s.Pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		var keyIDs []uint
		if err := tx.Model(&models.AccessKey{}).
			Where("LOWER(status) = ?", string(models.AccessKeyStatusActive)).
			Order("id ASC").
			Pluck("id", &keyIDs).Error; err != nil {
			return err
		}
		if len(keyIDs) == 0 {
			return nil
		}

		dues := make([]models.Due, 0, len(keyIDs))
		for _, id := range keyIDs {
			dues = append(dues, models.Due{
				AccessKeyID: id,
				BaseAmount:  amount,
				GeneratedAt: generatedAt,
				Status:      models.DueStatusPending,
				Description: description,
			})
		}
		if err := tx.CreateInBatches(&dues, 100).Error; err != nil {
			return err
		}
		created = len(dues)
		return nil
	})
	if err != nil {
		s.log.Error("monthly dues generation failed", zap.Error(err))
		return 0, storeError("generate monthly dues", err)
	}

	s.log.Info("monthly dues generated",
		zap.Int("count", created), zap.String("amount", amount.StringFixed(CurrencyPlaces)))
	return created, nil
}
