package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"dues-http-service/internal/domain/models"
	"dues-http-service/internal/infrastructure/database"
	"dues-http-service/internal/infrastructure/events"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.PaymentSettledEvent
	err    error
}

func (p *recordingPublisher) PublishPaymentSettled(ctx context.Context, event events.PaymentSettledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestSettlePayment_PartialCoverage(t *testing.T) {
	pool := setupTestDB(t)
	resident, key := seedResident(t, pool.DB, "V-300")
	cashier := seedCashier(t, pool.DB, "caja1")
	d1 := seedDue(t, pool.DB, key.ID, "50", month(1), models.DueStatusPending)
	d2 := seedDue(t, pool.DB, key.ID, "50", month(2), models.DueStatusPending)
	d3 := seedDue(t, pool.DB, key.ID, "50", month(3), models.DueStatusPending)
	seedPendingPayment(t, pool.DB, resident.ID, "REF-300", "120")

	svc := NewSettlementService(pool, nil, zap.NewNop())
	result, err := svc.SettlePayment(context.Background(), SettleRequest{
		Reference:      "REF-300",
		CashierID:      cashier.ID,
		ResidentID:     resident.ID,
		TenderedAmount: dec(t, "120"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.DuesApplied)
	assert.Equal(t, []uint{d1.ID, d2.ID}, result.DueIDs)
	assert.Equal(t, "20.00", result.RemainingUnapplied.StringFixed(2))

	payment := loadPayment(t, pool.DB, "REF-300")
	assert.Equal(t, result.PaymentID, payment.ID)
	assert.Equal(t, models.PaymentStatusPaid, payment.Status)
	require.NotNil(t, payment.CashierID)
	assert.Equal(t, cashier.ID, *payment.CashierID)
	assert.NotNil(t, payment.PaidAt)

	for _, id := range []uint{d1.ID, d2.ID} {
		due := loadDue(t, pool.DB, id)
		assert.Equal(t, models.DueStatusPaid, due.Status)
		require.NotNil(t, due.PaymentID)
		assert.Equal(t, payment.ID, *due.PaymentID)
	}
	third := loadDue(t, pool.DB, d3.ID)
	assert.Equal(t, models.DueStatusPending, third.Status)
	assert.Nil(t, third.PaymentID)
}

func TestSettlePayment_ExactSingleDue(t *testing.T) {
	pool := setupTestDB(t)
	resident, key := seedResident(t, pool.DB, "V-301")
	cashier := seedCashier(t, pool.DB, "caja1")
	d1 := seedDue(t, pool.DB, key.ID, "50", month(1), models.DueStatusOverdue)
	seedPendingPayment(t, pool.DB, resident.ID, "REF-301", "50")

	svc := NewSettlementService(pool, nil, zap.NewNop())
	result, err := svc.SettlePayment(context.Background(), SettleRequest{
		Reference: "REF-301", CashierID: cashier.ID, ResidentID: resident.ID, TenderedAmount: dec(t, "50"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.DuesApplied)
	assert.Equal(t, "0.00", result.RemainingUnapplied.StringFixed(2))
	assert.Equal(t, models.DueStatusPaid, loadDue(t, pool.DB, d1.ID).Status)
}

func TestSettlePayment_NothingCovered(t *testing.T) {
	pool := setupTestDB(t)
	resident, key := seedResident(t, pool.DB, "V-302")
	cashier := seedCashier(t, pool.DB, "caja1")
	d1 := seedDue(t, pool.DB, key.ID, "50", month(1), models.DueStatusPending)
	d2 := seedDue(t, pool.DB, key.ID, "10", month(2), models.DueStatusPending)
	seedPendingPayment(t, pool.DB, resident.ID, "REF-302", "30")

	svc := NewSettlementService(pool, nil, zap.NewNop())
	result, err := svc.SettlePayment(context.Background(), SettleRequest{
		Reference: "REF-302", CashierID: cashier.ID, ResidentID: resident.ID, TenderedAmount: dec(t, "30"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.DuesApplied)
	assert.Empty(t, result.DueIDs)
	assert.Equal(t, "30.00", result.RemainingUnapplied.StringFixed(2))

	// 付款仍然结算；较小的后续费用不会被跳跃分配
	assert.Equal(t, models.PaymentStatusPaid, loadPayment(t, pool.DB, "REF-302").Status)
	assert.Equal(t, models.DueStatusPending, loadDue(t, pool.DB, d1.ID).Status)
	assert.Equal(t, models.DueStatusPending, loadDue(t, pool.DB, d2.ID).Status)
}

func TestSettlePayment_NoDues(t *testing.T) {
	pool := setupTestDB(t)
	resident, _ := seedResident(t, pool.DB, "V-303")
	cashier := seedCashier(t, pool.DB, "caja1")
	seedPendingPayment(t, pool.DB, resident.ID, "REF-303", "40")

	svc := NewSettlementService(pool, nil, zap.NewNop())
	result, err := svc.SettlePayment(context.Background(), SettleRequest{
		Reference: "REF-303", CashierID: cashier.ID, ResidentID: resident.ID, TenderedAmount: dec(t, "40"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.DuesApplied)
	assert.Equal(t, "40.00", result.RemainingUnapplied.StringFixed(2))
	assert.Equal(t, models.PaymentStatusPaid, loadPayment(t, pool.DB, "REF-303").Status)
}

func TestSettlePayment_OrderingAndMixedCase(t *testing.T) {
	pool := setupTestDB(t)
	resident, key := seedResident(t, pool.DB, "V-304")
	cashier := seedCashier(t, pool.DB, "caja1")
	// 插入顺序与生成日期不同
	march := seedDue(t, pool.DB, key.ID, "50", month(3), "PENDING")
	paidJan := seedDue(t, pool.DB, key.ID, "50", month(1), "PAID")
	feb := seedDue(t, pool.DB, key.ID, "50", month(2), "Overdue")
	aprilA := seedDue(t, pool.DB, key.ID, "25", month(4), "pending")
	aprilB := seedDue(t, pool.DB, key.ID, "25", month(4), "pending")
	seedPendingPayment(t, pool.DB, resident.ID, "REF-304", "125")

	svc := NewSettlementService(pool, nil, zap.NewNop())
	result, err := svc.SettlePayment(context.Background(), SettleRequest{
		Reference: "REF-304", CashierID: cashier.ID, ResidentID: resident.ID, TenderedAmount: dec(t, "125"),
	})
	require.NoError(t, err)

	// 同一生成日期按 id 排序
	assert.Equal(t, []uint{feb.ID, march.ID, aprilA.ID}, result.DueIDs)
	assert.Equal(t, "0.00", result.RemainingUnapplied.StringFixed(2))
	assert.Equal(t, models.DueStatusPending, loadDue(t, pool.DB, aprilB.ID).Status)

	// 原本已支付的费用不被改动
	untouched := loadDue(t, pool.DB, paidJan.ID)
	assert.Equal(t, "PAID", untouched.Status)
	assert.Nil(t, untouched.PaymentID)
}

func TestSettlePayment_OnlyResidentKeys(t *testing.T) {
	pool := setupTestDB(t)
	resident, key := seedResident(t, pool.DB, "V-305")
	other, otherKey := seedResident(t, pool.DB, "V-306")
	cashier := seedCashier(t, pool.DB, "caja1")

	secondKey := seedKey(t, pool.DB, "KEY-V-305-B", models.AccessKeyStatusActive)
	linkKey(t, pool.DB, resident.ID, secondKey.ID)

	d1 := seedDue(t, pool.DB, key.ID, "50", month(2), models.DueStatusPending)
	d2 := seedDue(t, pool.DB, secondKey.ID, "50", month(1), models.DueStatusPending)
	foreign := seedDue(t, pool.DB, otherKey.ID, "50", month(1), models.DueStatusPending)
	seedPendingPayment(t, pool.DB, resident.ID, "REF-305", "500")

	svc := NewSettlementService(pool, nil, zap.NewNop())
	result, err := svc.SettlePayment(context.Background(), SettleRequest{
		Reference: "REF-305", CashierID: cashier.ID, ResidentID: resident.ID, TenderedAmount: dec(t, "500"),
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{d2.ID, d1.ID}, result.DueIDs)
	assert.Equal(t, "400.00", result.RemainingUnapplied.StringFixed(2))
	assert.Equal(t, models.DueStatusPending, loadDue(t, pool.DB, foreign.ID).Status)
	assert.NotZero(t, other.ID)
}

func TestSettlePayment_AlreadySettled(t *testing.T) {
	pool := setupTestDB(t)
	resident, key := seedResident(t, pool.DB, "V-307")
	cashier := seedCashier(t, pool.DB, "caja1")
	d1 := seedDue(t, pool.DB, key.ID, "50", month(1), models.DueStatusPending)
	d2 := seedDue(t, pool.DB, key.ID, "50", month(2), models.DueStatusPending)
	seedPendingPayment(t, pool.DB, resident.ID, "REF-307", "50")

	svc := NewSettlementService(pool, nil, zap.NewNop())
	req := SettleRequest{Reference: "REF-307", CashierID: cashier.ID, ResidentID: resident.ID, TenderedAmount: dec(t, "50")}

	_, err := svc.SettlePayment(context.Background(), req)
	require.NoError(t, err)
	first := loadPayment(t, pool.DB, "REF-307")

	// 第二次结算失败，且不产生任何改动
	req.TenderedAmount = dec(t, "100")
	_, err = svc.SettlePayment(context.Background(), req)
	assert.True(t, errors.Is(err, ErrAlreadySettledOrUnknown))
	assert.False(t, errors.Is(err, ErrStoreUnavailable))

	assert.Equal(t, models.DueStatusPaid, loadDue(t, pool.DB, d1.ID).Status)
	assert.Equal(t, models.DueStatusPending, loadDue(t, pool.DB, d2.ID).Status)
	after := loadPayment(t, pool.DB, "REF-307")
	assert.Equal(t, first.PaidAt.Unix(), after.PaidAt.Unix())

	_, err = svc.SettlePayment(context.Background(), SettleRequest{
		Reference: "REF-NOPE", CashierID: cashier.ID, ResidentID: resident.ID, TenderedAmount: dec(t, "50"),
	})
	assert.True(t, errors.Is(err, ErrAlreadySettledOrUnknown))
	assert.Equal(t, models.DueStatusPending, loadDue(t, pool.DB, d2.ID).Status)
}

func TestSettlePayment_PaymentStatusCaseSensitive(t *testing.T) {
	pool := setupTestDB(t)
	resident, _ := seedResident(t, pool.DB, "V-308")
	cashier := seedCashier(t, pool.DB, "caja1")
	payment := seedPendingPayment(t, pool.DB, resident.ID, "REF-308", "50")
	require.NoError(t, pool.DB.Model(&payment).Update("status", "Pending_Cash").Error)

	svc := NewSettlementService(pool, nil, zap.NewNop())
	_, err := svc.SettlePayment(context.Background(), SettleRequest{
		Reference: "REF-308", CashierID: cashier.ID, ResidentID: resident.ID, TenderedAmount: dec(t, "50"),
	})
	assert.True(t, errors.Is(err, ErrAlreadySettledOrUnknown))
}

func TestSettlePayment_InvalidRequest(t *testing.T) {
	pool := setupTestDB(t)
	resident, key := seedResident(t, pool.DB, "V-309")
	cashier := seedCashier(t, pool.DB, "caja1")
	due := seedDue(t, pool.DB, key.ID, "50", month(1), models.DueStatusPending)
	seedPendingPayment(t, pool.DB, resident.ID, "REF-309", "50")
	svc := NewSettlementService(pool, nil, zap.NewNop())

	valid := SettleRequest{Reference: "REF-309", CashierID: cashier.ID, ResidentID: resident.ID, TenderedAmount: dec(t, "50")}
	cases := map[string]func(r *SettleRequest){
		"empty reference":  func(r *SettleRequest) { r.Reference = "  " },
		"missing cashier":  func(r *SettleRequest) { r.CashierID = 0 },
		"missing resident": func(r *SettleRequest) { r.ResidentID = 0 },
		"zero amount":      func(r *SettleRequest) { r.TenderedAmount = dec(t, "0") },
		"negative amount":  func(r *SettleRequest) { r.TenderedAmount = dec(t, "-1") },
		"sub-cent amount":  func(r *SettleRequest) { r.TenderedAmount = dec(t, "50.005") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := valid
			mutate(&req)
			_, err := svc.SettlePayment(context.Background(), req)
			assert.True(t, errors.Is(err, ErrInvalidRequest))
		})
	}

	assert.Equal(t, models.PaymentStatusPendingCash, loadPayment(t, pool.DB, "REF-309").Status)
	assert.Equal(t, models.DueStatusPending, loadDue(t, pool.DB, due.ID).Status)
}

func TestSettlePayment_CanceledContextRollsBack(t *testing.T) {
	pool := setupTestDB(t)
	resident, key := seedResident(t, pool.DB, "V-310")
	cashier := seedCashier(t, pool.DB, "caja1")
	due := seedDue(t, pool.DB, key.ID, "50", month(1), models.DueStatusPending)
	seedPendingPayment(t, pool.DB, resident.ID, "REF-310", "50")
	publisher := &recordingPublisher{}
	svc := NewSettlementService(pool, publisher, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.SettlePayment(ctx, SettleRequest{
		Reference: "REF-310", CashierID: cashier.ID, ResidentID: resident.ID, TenderedAmount: dec(t, "50"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStoreUnavailable))

	assert.Equal(t, models.PaymentStatusPendingCash, loadPayment(t, pool.DB, "REF-310").Status)
	assert.Equal(t, models.DueStatusPending, loadDue(t, pool.DB, due.ID).Status)
	assert.Empty(t, publisher.events)
}

func TestSettlePayment_PublishesEvent(t *testing.T) {
	pool := setupTestDB(t)
	resident, key := seedResident(t, pool.DB, "V-311")
	cashier := seedCashier(t, pool.DB, "caja1")
	due := seedDue(t, pool.DB, key.ID, "50", month(1), models.DueStatusPending)
	seedPendingPayment(t, pool.DB, resident.ID, "REF-311", "60")
	publisher := &recordingPublisher{}
	svc := NewSettlementService(pool, publisher, zap.NewNop())

	result, err := svc.SettlePayment(context.Background(), SettleRequest{
		Reference: "REF-311", CashierID: cashier.ID, ResidentID: resident.ID, TenderedAmount: dec(t, "60"),
	})
	require.NoError(t, err)

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, result.PaymentID, event.PaymentID)
	assert.Equal(t, "REF-311", event.Reference)
	assert.Equal(t, cashier.ID, event.CashierID)
	assert.Equal(t, "60.00", event.TenderedAmount)
	assert.Equal(t, "10.00", event.RemainingUnapplied)
	assert.Equal(t, []uint{due.ID}, event.DueIDs)
}

func TestSettlePayment_PublishFailureIgnored(t *testing.T) {
	pool := setupTestDB(t)
	resident, _ := seedResident(t, pool.DB, "V-312")
	cashier := seedCashier(t, pool.DB, "caja1")
	seedPendingPayment(t, pool.DB, resident.ID, "REF-312", "60")
	publisher := &recordingPublisher{err: errors.New("broker unavailable")}
	svc := NewSettlementService(pool, publisher, zap.NewNop())

	_, err := svc.SettlePayment(context.Background(), SettleRequest{
		Reference: "REF-312", CashierID: cashier.ID, ResidentID: resident.ID, TenderedAmount: dec(t, "60"),
	})
	require.NoError(t, err)
	assert.Len(t, publisher.events, 1)
	assert.Equal(t, models.PaymentStatusPaid, loadPayment(t, pool.DB, "REF-312").Status)
}

func TestSettlePayment_ConcurrentSameReference(t *testing.T) {
	pool := setupFileDB(t)
	resident, key := seedResident(t, pool.DB, "V-400")
	cashier := seedCashier(t, pool.DB, "caja1")
	for m := 1; m <= 3; m++ {
		seedDue(t, pool.DB, key.ID, "50", month(m), models.DueStatusPending)
	}
	seedPendingPayment(t, pool.DB, resident.ID, "REF-400", "100")
	svc := NewSettlementService(pool, nil, zap.NewNop())

	const workers = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
		others    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SettlePayment(context.Background(), SettleRequest{
				Reference: "REF-400", CashierID: cashier.ID, ResidentID: resident.ID, TenderedAmount: dec(t, "100"),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrAlreadySettledOrUnknown):
				rejected++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, others)
	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, rejected)

	var paidDues int64
	require.NoError(t, pool.DB.Model(&models.Due{}).Where("status = ?", models.DueStatusPaid).Count(&paidDues).Error)
	assert.Equal(t, int64(2), paidDues)
}

func TestSettlePayment_ConcurrentReferencesSameResident(t *testing.T) {
	pool := setupFileDB(t)
	resident, key := seedResident(t, pool.DB, "V-401")
	cashier := seedCashier(t, pool.DB, "caja1")
	for m := 1; m <= 4; m++ {
		seedDue(t, pool.DB, key.ID, "50", month(m), models.DueStatusPending)
	}
	const refs = 4
	for i := 0; i < refs; i++ {
		seedPendingPayment(t, pool.DB, resident.ID, fmt.Sprintf("REF-401-%d", i), "50")
	}
	svc := NewSettlementService(pool, nil, zap.NewNop())

	var wg sync.WaitGroup
	errs := make([]error, refs)
	results := make([]*SettlementResult, refs)
	for i := 0; i < refs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.SettlePayment(context.Background(), SettleRequest{
				Reference:      fmt.Sprintf("REF-401-%d", i),
				CashierID:      cashier.ID,
				ResidentID:     resident.ID,
				TenderedAmount: dec(t, "50"),
			})
		}(i)
	}
	wg.Wait()

	// 每笔费用只被一次付款结清
	seen := make(map[uint]bool)
	for i := 0; i < refs; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 1, results[i].DuesApplied)
		for _, id := range results[i].DueIDs {
			assert.False(t, seen[id], "due %d applied twice", id)
			seen[id] = true
		}
	}
	assert.Len(t, seen, refs)

	var dues []models.Due
	require.NoError(t, pool.DB.Find(&dues).Error)
	for _, d := range dues {
		assert.Equal(t, models.DueStatusPaid, d.Status)
		assert.NotNil(t, d.PaymentID)
	}
}

func setupMockPool(t *testing.T) (*database.ConnectionPool, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), database.GormConfig())
	require.NoError(t, err)
	return database.NewConnectionPoolFromDB(db, zap.NewNop()), mock
}

func TestSettlePayment_GateRejectsWithoutTouchingDues(t *testing.T) {
	pool, mock := setupMockPool(t)
	svc := NewSettlementService(pool, nil, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "payments" SET .+ WHERE \(?reference = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.SettlePayment(context.Background(), SettleRequest{
		Reference: "REF-1-ABC", CashierID: 3, ResidentID: 1, TenderedAmount: dec(t, "50"),
	})
	assert.True(t, errors.Is(err, ErrAlreadySettledOrUnknown))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettlePayment_LocksDueRows(t *testing.T) {
	pool, mock := setupMockPool(t)
	svc := NewSettlementService(pool, nil, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "payments" SET .+ WHERE \(?reference = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT "id" FROM "payments" WHERE reference = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`FROM "dues" JOIN resident_keys rk .+ ORDER BY dues.generated_at ASC.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "access_key_id", "base_amount", "generated_at", "status"}))
	mock.ExpectCommit()

	result, err := svc.SettlePayment(context.Background(), SettleRequest{
		Reference: "REF-1-ABC", CashierID: 3, ResidentID: 1, TenderedAmount: dec(t, "50"),
	})
	require.NoError(t, err)
	assert.Equal(t, uint(7), result.PaymentID)
	assert.Equal(t, 0, result.DuesApplied)
	assert.NoError(t, mock.ExpectationsWereMet())
}
