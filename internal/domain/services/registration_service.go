package services

import (
	"context"
	"errors"
	"strings"

	"dues-http-service/internal/domain/models"
	"dues-http-service/internal/infrastructure/database"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InterfaceRegistrationService 住户与钥匙登记
type InterfaceRegistrationService interface {
	RegisterResident(ctx context.Context, input RegisterResidentInput) (*RegisteredResident, error)
}

// RegisterResidentInput 登记参数，全部必填
type RegisterResidentInput struct {
	FullName   string
	NationalID string
	Phone      string
	Email      string
	KeyNumber  string
}

// RegisteredResident 登记结果
type RegisteredResident struct {
	ResidentID  uint
	AccessKeyID uint
	KeyNumber   string
}

// RegistrationService 在一个事务内创建住户、钥匙和关联
type RegistrationService struct {
	Pool *database.ConnectionPool
	log  *zap.Logger
}

var _ InterfaceRegistrationService = (*RegistrationService)(nil)

// NewRegistrationService 创建登记服务
func NewRegistrationService(pool *database.ConnectionPool, log *zap.Logger) *RegistrationService {
	return &RegistrationService{Pool: pool, log: log}
}

// RegisterResident 登记新住户及其钥匙。身份证号或钥匙编号重复时返回 ErrConstraintViolation
func (s *RegistrationService) RegisterResident(ctx context.Context, input RegisterResidentInput) (*RegisteredResident, error) {
	input = input.trimmed()
	if input.FullName == "" || input.NationalID == "" || input.Phone == "" || input.Email == "" || input.KeyNumber == "" {
		return nil, invalidRequest("full name, national id, phone, email and key number are required")
	}

	var out RegisteredResident
	err := s.Pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		// 验证唯一性
		var count int64
		if err := tx.Model(&models.Resident{}).Where("national_id = ?", input.NationalID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrConstraintViolation
		}
		if err := tx.Model(&models.AccessKey{}).Where("key_number = ?", input.KeyNumber).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrConstraintViolation
		}

		resident := models.Resident{
			FullName:   input.FullName,
			NationalID: input.NationalID,
			Phone:      input.Phone,
			Email:      input.Email,
		}
		if err := tx.Create(&resident).Error; err != nil {
			return err
		}

		key := models.AccessKey{KeyNumber: input.KeyNumber, Status: models.AccessKeyStatusActive}
		if err := tx.Create(&key).Error; err != nil {
			return err
		}

		if err := tx.Create(&models.ResidentKey{ResidentID: resident.ID, AccessKeyID: key.ID}).Error; err != nil {
			return err
		}

		out = RegisteredResident{ResidentID: resident.ID, AccessKeyID: key.ID, KeyNumber: key.KeyNumber}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConstraintViolation) || isUniqueViolation(err) {
			s.log.Warn("resident registration conflict",
				zap.String("national_id", input.NationalID), zap.String("key_number", input.KeyNumber))
			return nil, ErrConstraintViolation
		}
		s.log.Error("resident registration failed", zap.Error(err))
		return nil, storeError("register resident", err)
	}

	s.log.Info("resident registered",
		zap.Uint("resident_id", out.ResidentID), zap.Uint("access_key_id", out.AccessKeyID))
	return &out, nil
}

func (in RegisterResidentInput) trimmed() RegisterResidentInput {
	return RegisterResidentInput{
		FullName:   strings.TrimSpace(in.FullName),
		NationalID: strings.TrimSpace(in.NationalID),
		Phone:      strings.TrimSpace(in.Phone),
		Email:      strings.TrimSpace(in.Email),
		KeyNumber:  strings.TrimSpace(in.KeyNumber),
	}
}
