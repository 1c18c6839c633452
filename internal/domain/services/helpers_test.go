package services

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"dues-http-service/internal/domain/models"
	"dues-http-service/internal/infrastructure/database"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *database.ConnectionPool {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig())
	require.NoError(t, err)
	// 内存库每个连接独立，限制为单连接
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return database.NewConnectionPoolFromDB(db, zap.NewNop())
}

// setupFileDB 文件库，多连接并发；写事务使用 BEGIN IMMEDIATE
func setupFileDB(t *testing.T) *database.ConnectionPool {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dues.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=10000&_txlock=immediate"), database.GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(8)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return database.NewConnectionPoolFromDB(db, zap.NewNop())
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// seedResident 创建住户及一把有效钥匙
func seedResident(t *testing.T, db *gorm.DB, nationalID string) (models.Resident, models.AccessKey) {
	t.Helper()
	resident := models.Resident{FullName: "Resident " + nationalID, NationalID: nationalID, Phone: "555-0100", Email: nationalID + "@example.com"}
	require.NoError(t, db.Create(&resident).Error)
	key := seedKey(t, db, "KEY-"+nationalID, models.AccessKeyStatusActive)
	linkKey(t, db, resident.ID, key.ID)
	return resident, key
}

func seedKey(t *testing.T, db *gorm.DB, number string, status models.AccessKeyStatus) models.AccessKey {
	t.Helper()
	key := models.AccessKey{KeyNumber: number, Status: status}
	require.NoError(t, db.Create(&key).Error)
	return key
}

func linkKey(t *testing.T, db *gorm.DB, residentID, keyID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.ResidentKey{ResidentID: residentID, AccessKeyID: keyID}).Error)
}

func seedDue(t *testing.T, db *gorm.DB, keyID uint, amount string, generatedAt time.Time, status string) models.Due {
	t.Helper()
	due := models.Due{
		AccessKeyID: keyID,
		BaseAmount:  dec(t, amount),
		GeneratedAt: generatedAt,
		Status:      status,
		Description: fmt.Sprintf("due %s", generatedAt.Format("2006-01")),
	}
	require.NoError(t, db.Create(&due).Error)
	return due
}

func seedCashier(t *testing.T, db *gorm.DB, username string) models.Staff {
	t.Helper()
	staff := models.Staff{Username: username, Password: "cashier-pass", FullName: "Cashier " + username, Role: models.StaffRoleCashier, Status: "active"}
	require.NoError(t, db.Create(&staff).Error)
	return staff
}

func seedPendingPayment(t *testing.T, db *gorm.DB, residentID uint, reference, amount string) models.Payment {
	t.Helper()
	payment := models.Payment{
		ResidentID: residentID,
		Amount:     dec(t, amount),
		Reference:  reference,
		Status:     models.PaymentStatusPendingCash,
	}
	require.NoError(t, db.Create(&payment).Error)
	return payment
}

func month(m int) time.Time {
	return time.Date(2024, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
}

func loadDue(t *testing.T, db *gorm.DB, id uint) models.Due {
	t.Helper()
	var due models.Due
	require.NoError(t, db.First(&due, id).Error)
	return due
}

func loadPayment(t *testing.T, db *gorm.DB, reference string) models.Payment {
	t.Helper()
	var payment models.Payment
	require.NoError(t, db.Where("reference = ?", reference).First(&payment).Error)
	return payment
}
