package database

import (
	"fmt"

	"dues-http-service/internal/domain/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 迁移模式
const (
	MigrationModeAuto = "auto"
	MigrationModeDrop = "drop"
	MigrationModeNone = "none"
)

// Migrate 根据模式执行数据库迁移
func Migrate(db *gorm.DB, mode string, log *zap.Logger) error {
	switch mode {
	case MigrationModeNone:
		log.Info("skipping schema migration")
		return nil
	case MigrationModeDrop:
		log.Warn("running in drop mode, all tables will be dropped and recreated")
		return DropAndRecreateTables(db)
	case MigrationModeAuto, "":
		return AutoMigrate(db)
	default:
		return fmt.Errorf("unknown migration mode %q", mode)
	}
}

// AutoMigrate 自动迁移所有模型（只添加新列和新表）
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// DropAndRecreateTables 删除并重建所有表
func DropAndRecreateTables(db *gorm.DB) error {
	all := models.AllModels()
	// 逆序删除，先删依赖表
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return AutoMigrate(db)
}

// EnsureAdminExists 确保系统中有管理员账户
func EnsureAdminExists(db *gorm.DB, password string, log *zap.Logger) error {
	var count int64
	if err := db.Model(&models.Staff{}).Where("role = ?", models.StaffRoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if password == "" {
		log.Warn("no admin account and DEFAULT_ADMIN_PASSWORD is empty, skipping admin bootstrap")
		return nil
	}

	admin := models.Staff{
		Username: "admin",
		Password: password,
		FullName: "Administrator",
		Role:     models.StaffRoleAdmin,
		Status:   "active",
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}
	log.Info("default admin account created")
	return nil
}
