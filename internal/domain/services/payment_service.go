package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dues-http-service/internal/domain/models"
	"dues-http-service/internal/infrastructure/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InterfacePaymentService 参考号生成与查询
type InterfacePaymentService interface {
	IssueReference(ctx context.Context, residentID uint, amount decimal.Decimal) (*IssuedReference, error)
	LookupPending(ctx context.Context, reference string) (*PendingPaymentView, error)
}

// IssuedReference 返回给住户展示的参考号
type IssuedReference struct {
	Reference string
	Amount    decimal.Decimal
}

// PendingPaymentView 收银员核对用的待支付信息
type PendingPaymentView struct {
	Reference          string
	Amount             decimal.Decimal
	ResidentID         uint
	ResidentName       string
	ResidentNationalID string
}

// IssuanceThrottle 限制参考号生成频率
type IssuanceThrottle interface {
	AllowIssuance(ctx context.Context, residentID uint) (bool, error)
}

// PaymentService 提供参考号相关的服务
type PaymentService struct {
	Pool     *database.ConnectionPool
	Throttle IssuanceThrottle // 可为 nil
	log      *zap.Logger
	newToken func() string
}

var _ InterfacePaymentService = (*PaymentService)(nil)

// NewPaymentService 创建参考号服务，throttle 可为 nil
func NewPaymentService(pool *database.ConnectionPool, throttle IssuanceThrottle, log *zap.Logger) *PaymentService {
	return &PaymentService{
		Pool:     pool,
		Throttle: throttle,
		log:      log,
		newToken: newReferenceToken,
	}
}

// newReferenceToken 20位十六进制随机串（来自 UUIDv4）
func newReferenceToken() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:20])
}

// FormatReference 参考号格式 REF-<住户ID>-<随机串>
func FormatReference(residentID uint, token string) string {
	return fmt.Sprintf("REF-%d-%s", residentID, token)
}

// 1 IssueReference 为住户生成一次性付款参考号，不触碰任何费用
func (s *PaymentService) IssueReference(ctx context.Context, residentID uint, amount decimal.Decimal) (*IssuedReference, error) {
	if err := CheckAmount(amount); err != nil {
		return nil, err
	}
	if residentID == 0 {
		return nil, invalidRequest("resident id is required")
	}

	if s.Throttle != nil {
		allowed, err := s.Throttle.AllowIssuance(ctx, residentID)
		switch {
		case err != nil:
			// Redis 不可用时放行
			s.log.Warn("issuance throttle unavailable", zap.Uint("resident_id", residentID), zap.Error(err))
		case !allowed:
			return nil, ErrTooManyReferences
		}
	}

	payment := models.Payment{
		ResidentID: residentID,
		Amount:     amount,
		Reference:  FormatReference(residentID, s.newToken()),
		Status:     models.PaymentStatusPendingCash,
	}

	if err := s.Pool.DB.WithContext(ctx).Create(&payment).Error; err != nil {
		if isUniqueViolation(err) {
			s.log.Warn("payment reference collision", zap.String("reference", payment.Reference))
			return nil, ErrReferenceCollision
		}
		s.log.Error("failed to persist payment reference",
			zap.Uint("resident_id", residentID), zap.Error(err))
		return nil, storeError("issue reference", err)
	}

	s.log.Info("payment reference issued",
		zap.Uint("payment_id", payment.ID),
		zap.Uint("resident_id", residentID),
		zap.String("reference", payment.Reference),
		zap.String("amount", amount.StringFixed(CurrencyPlaces)))

	return &IssuedReference{Reference: payment.Reference, Amount: amount}, nil
}

// 2 LookupPending 查询待支付参考号。不存在与已支付同样返回 ErrNotFound
func (s *PaymentService) LookupPending(ctx context.Context, reference string) (*PendingPaymentView, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, invalidRequest("reference is required")
	}

	var view PendingPaymentView
	result := s.Pool.DB.WithContext(ctx).
		Table("payments AS p").
		Select("p.reference, p.amount, p.resident_id, r.full_name AS resident_name, r.national_id AS resident_national_id").
		Joins("JOIN residents r ON r.id = p.resident_id").
		Where("p.reference = ? AND p.status = ?", reference, models.PaymentStatusPendingCash).
		Limit(1).
		Scan(&view)
	if result.Error != nil {
		if errors.Is(result.Error, context.Canceled) {
			return nil, result.Error
		}
		s.log.Error("failed to look up pending reference", zap.String("reference", reference), zap.Error(result.Error))
		return nil, storeError("lookup pending reference", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &view, nil
}
