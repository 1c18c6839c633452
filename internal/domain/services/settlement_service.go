package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dues-http-service/internal/domain/models"
	"dues-http-service/internal/infrastructure/database"
	"dues-http-service/internal/infrastructure/events"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InterfaceSettlementService 收银台结算
type InterfaceSettlementService interface {
	SettlePayment(ctx context.Context, req SettleRequest) (*SettlementResult, error)
}

// SettleRequest 结算请求
type SettleRequest struct {
	Reference      string
	CashierID      uint
	ResidentID     uint
	TenderedAmount decimal.Decimal
}

// SettlementResult 结算结果
type SettlementResult struct {
	PaymentID          uint
	DuesApplied        int
	DueIDs             []uint
	RemainingUnapplied decimal.Decimal
}

// errDueStateChanged 锁定后费用状态仍被改变，整个事务回滚
var errDueStateChanged = errors.New("due state changed during settlement")

// SettlementService 将参考号置为已支付并按最早优先分配到费用
type SettlementService struct {
	Pool      *database.ConnectionPool
	Publisher events.Publisher
	log       *zap.Logger
	now       func() time.Time
}

var _ InterfaceSettlementService = (*SettlementService)(nil)

// NewSettlementService 创建结算服务
func NewSettlementService(pool *database.ConnectionPool, publisher events.Publisher, log *zap.Logger) *SettlementService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &SettlementService{
		Pool:      pool,
		Publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// Validate 在访问存储前检查请求
func (r SettleRequest) Validate() error {
	if strings.TrimSpace(r.Reference) == "" {
		return invalidRequest("reference is required")
	}
	if r.CashierID == 0 {
		return invalidRequest("cashier id is required")
	}
	if r.ResidentID == 0 {
		return invalidRequest("resident id is required")
	}
	return CheckAmount(r.TenderedAmount)
}

// SettlePayment 在一个事务内完成：
//  1. 条件更新 pending_cash -> paid（唯一的并发闸门）
//  2. 锁定住户名下未支付费用，按生成日期升序
//  3. 最早优先的严格前缀分配
//  4. 提交
//
// 失败时不做任何重试。
func (s *SettlementService) SettlePayment(ctx context.Context, req SettleRequest) (*SettlementResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.Reference = strings.TrimSpace(req.Reference)

	var (
		result    SettlementResult
		settledAt = s.now().UTC()
	)

	err := s.Pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		gate := tx.Model(&models.Payment{}).
			Where("reference = ? AND status = ?", req.Reference, models.PaymentStatusPendingCash).
			Updates(map[string]interface{}{
				"status":     models.PaymentStatusPaid,
				"cashier_id": req.CashierID,
				"paid_at":    settledAt,
			})
		if gate.Error != nil {
			return gate.Error
		}
		if gate.RowsAffected == 0 {
			return ErrAlreadySettledOrUnknown
		}

		var payment models.Payment
		if err := tx.Select("id").Where("reference = ?", req.Reference).Take(&payment).Error; err != nil {
			return err
		}

		var dues []models.Due
		if err := tx.Model(&models.Due{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Joins("JOIN resident_keys rk ON rk.access_key_id = dues.access_key_id").
			Where("rk.resident_id = ? AND LOWER(dues.status) IN ?", req.ResidentID, models.UnpaidDueStatuses()).
			Order("dues.generated_at ASC").
			Order("dues.id ASC").
			Find(&dues).Error; err != nil {
			return err
		}

		covered, remaining := AllocateOldestFirst(dues, req.TenderedAmount)

		ids := make([]uint, 0, len(covered))
		for _, due := range covered {
			ids = append(ids, due.ID)
		}

		if len(ids) > 0 {
			upd := tx.Model(&models.Due{}).
				Where("id IN ? AND LOWER(status) IN ?", ids, models.UnpaidDueStatuses()).
				Updates(map[string]interface{}{
					"status":     models.DueStatusPaid,
					"payment_id": payment.ID,
				})
			if upd.Error != nil {
				return upd.Error
			}
			if upd.RowsAffected != int64(len(ids)) {
				return fmt.Errorf("%w: expected %d rows, updated %d", errDueStateChanged, len(ids), upd.RowsAffected)
			}
		}

		result = SettlementResult{
			PaymentID:          payment.ID,
			DuesApplied:        len(ids),
			DueIDs:             ids,
			RemainingUnapplied: RoundCurrency(remaining),
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadySettledOrUnknown) {
			s.log.Info("settlement rejected, reference not pending",
				zap.String("reference", req.Reference), zap.Uint("cashier_id", req.CashierID))
			return nil, err
		}
		s.log.Error("settlement transaction failed, rolled back",
			zap.String("reference", req.Reference),
			zap.Uint("resident_id", req.ResidentID),
			zap.Error(err))
		return nil, storeError("settle payment", err)
	}

	s.log.Info("payment settled",
		zap.Uint("payment_id", result.PaymentID),
		zap.String("reference", req.Reference),
		zap.Uint("resident_id", req.ResidentID),
		zap.Uint("cashier_id", req.CashierID),
		zap.Int("dues_applied", result.DuesApplied),
		zap.String("remaining_unapplied", result.RemainingUnapplied.StringFixed(CurrencyPlaces)))

	s.publishSettled(ctx, req, &result, settledAt)
	return &result, nil
}

// publishSettled 提交后尽力发布事件，失败只记录日志
func (s *SettlementService) publishSettled(ctx context.Context, req SettleRequest, result *SettlementResult, settledAt time.Time) {
	event := events.PaymentSettledEvent{
		PaymentID:          result.PaymentID,
		Reference:          req.Reference,
		ResidentID:         req.ResidentID,
		CashierID:          req.CashierID,
		TenderedAmount:     req.TenderedAmount.StringFixed(CurrencyPlaces),
		DuesApplied:        result.DuesApplied,
		DueIDs:             result.DueIDs,
		RemainingUnapplied: result.RemainingUnapplied.StringFixed(CurrencyPlaces),
		SettledAt:          settledAt,
	}
	if err := s.Publisher.PublishPaymentSettled(context.WithoutCancel(ctx), event); err != nil {
		s.log.Warn("failed to publish payment.settled event",
			zap.Uint("payment_id", result.PaymentID), zap.Error(err))
	}
}
