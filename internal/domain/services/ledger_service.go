package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"dues-http-service/internal/domain/models"
	"dues-http-service/internal/infrastructure/database"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// OnlineProcessor 没有收银员的付款显示的处理人
const OnlineProcessor = "online"

// InterfaceLedgerService 只读查询：余额汇总、付款历史
type InterfaceLedgerService interface {
	GetDuesSummary(ctx context.Context, residentID uint) (*DuesSummary, error)
	GetPaymentHistory(ctx context.Context, residentID uint) ([]PaymentHistoryEntry, error)
	ExportPaymentHistory(ctx context.Context, residentID uint) ([]byte, error)
}

// DuesSummary 住户欠费汇总
type DuesSummary struct {
	ResidentID   uint
	TotalBalance decimal.Decimal
	MonthsDue    int64
	MonthlyFee   decimal.Decimal
}

// PaymentHistoryEntry 付款历史条目
type PaymentHistoryEntry struct {
	PaymentID   uint
	Reference   string
	Amount      decimal.Decimal
	Status      string
	CreatedAt   time.Time
	PaidAt      *time.Time
	ProcessedBy string
}

// LedgerService 每次查询都直接读库，不做缓存
type LedgerService struct {
	Pool       *database.ConnectionPool
	MonthlyFee decimal.Decimal
	log        *zap.Logger
}

var _ InterfaceLedgerService = (*LedgerService)(nil)

// NewLedgerService 创建查询服务
func NewLedgerService(pool *database.ConnectionPool, monthlyFee decimal.Decimal, log *zap.Logger) *LedgerService {
	return &LedgerService{Pool: pool, MonthlyFee: monthlyFee, log: log}
}

// 1 GetDuesSummary 汇总住户名下所有钥匙的未支付费用
func (s *LedgerService) GetDuesSummary(ctx context.Context, residentID uint) (*DuesSummary, error) {
	if residentID == 0 {
		return nil, invalidRequest("resident id is required")
	}

	var row struct {
		TotalBalance decimal.NullDecimal
		MonthsDue    int64
	}
	err := s.Pool.DB.WithContext(ctx).
		Table("dues").
		Select("COALESCE(SUM(dues.base_amount), 0) AS total_balance, COUNT(dues.id) AS months_due").
		Joins("JOIN resident_keys rk ON rk.access_key_id = dues.access_key_id").
		Where("rk.resident_id = ? AND LOWER(dues.status) IN ?", residentID, models.UnpaidDueStatuses()).
		Scan(&row).Error
	if err != nil {
		s.log.Error("failed to query dues summary", zap.Uint("resident_id", residentID), zap.Error(err))
		return nil, storeError("dues summary", err)
	}

	total := decimal.Zero
	if row.TotalBalance.Valid {
		total = row.TotalBalance.Decimal
	}
	return &DuesSummary{
		ResidentID:   residentID,
		TotalBalance: RoundCurrency(total),
		MonthsDue:    row.MonthsDue,
		MonthlyFee:   s.MonthlyFee,
	}, nil
}

// 2 GetPaymentHistory 按时间倒序返回住户的付款记录
func (s *LedgerService) GetPaymentHistory(ctx context.Context, residentID uint) ([]PaymentHistoryEntry, error) {
	if residentID == 0 {
		return nil, invalidRequest("resident id is required")
	}

	entries := make([]PaymentHistoryEntry, 0)
	err := s.Pool.DB.WithContext(ctx).
		Table("payments AS p").
		Select("p.id AS payment_id, p.reference, p.amount, p.status, p.created_at, p.paid_at, COALESCE(st.full_name, ?) AS processed_by", OnlineProcessor).
		Joins("LEFT JOIN staffs st ON st.id = p.cashier_id").
		Where("p.resident_id = ?", residentID).
		Order("p.created_at DESC").
		Order("p.id DESC").
		Scan(&entries).Error
	if err != nil {
		s.log.Error("failed to query payment history", zap.Uint("resident_id", residentID), zap.Error(err))
		return nil, storeError("payment history", err)
	}
	return entries, nil
}

// 3 ExportPaymentHistory 导出付款历史为 xlsx
func (s *LedgerService) ExportPaymentHistory(ctx context.Context, residentID uint) ([]byte, error) {
	entries, err := s.GetPaymentHistory(ctx, residentID)
	if err != nil {
		return nil, err
	}
	return renderHistoryWorkbook(residentID, entries)
}

var historyHeaders = []string{"Payment ID", "Reference", "Amount", "Status", "Created At", "Paid At", "Processed By"}

func renderHistoryWorkbook(residentID uint, entries []PaymentHistoryEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Payments"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	for col, header := range historyHeaders {
		if err := setCellValue(f, sheetName, col+1, 1, header); err != nil {
			return nil, err
		}
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(historyHeaders), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle); err != nil {
		return nil, err
	}

	for i, e := range entries {
		row := i + 2
		paidAt := ""
		if e.PaidAt != nil {
			paidAt = e.PaidAt.UTC().Format(time.RFC3339)
		}
		values := []interface{}{
			e.PaymentID,
			e.Reference,
			e.Amount.StringFixed(CurrencyPlaces),
			e.Status,
			e.CreatedAt.UTC().Format(time.RFC3339),
			paidAt,
			e.ProcessedBy,
		}
		for col, v := range values {
			if err := setCellValue(f, sheetName, col+1, row, v); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   fmt.Sprintf("Payment history resident %d", residentID),
		Creator: "dues-http-service",
	}); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setCellValue(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}
