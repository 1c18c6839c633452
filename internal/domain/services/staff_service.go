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

// InterfaceStaffService 定义员工账号管理接口
type InterfaceStaffService interface {
	ListStaff(ctx context.Context, page, pageSize int, search string) ([]models.Staff, int64, error)
	GetStaffByID(ctx context.Context, id uint) (*models.Staff, error)
	CreateStaff(ctx context.Context, input CreateStaffInput) (*models.Staff, error)
	SetStaffStatus(ctx context.Context, id uint, status string) (*models.Staff, error)
	IsStaffActive(ctx context.Context, id uint) (bool, error)
}

// CreateStaffInput 新建员工参数，角色缺省为收银员
type CreateStaffInput struct {
	Username string
	Password string
	FullName string
	Role     string
}

// StaffService 管理收银员和管理员账号
type StaffService struct {
	Pool *database.ConnectionPool
	log  *zap.Logger
}

var _ InterfaceStaffService = (*StaffService)(nil)

// NewStaffService 创建员工服务
func NewStaffService(pool *database.ConnectionPool, log *zap.Logger) *StaffService {
	return &StaffService{Pool: pool, log: log}
}

// 1 ListStaff 分页查询员工，支持按用户名和姓名搜索
func (s *StaffService) ListStaff(ctx context.Context, page, pageSize int, search string) ([]models.Staff, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	var (
		staff []models.Staff
		total int64
	)
	query := s.Pool.DB.WithContext(ctx).Model(&models.Staff{})
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + search + "%"
		query = query.Where("username LIKE ? OR full_name LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeError("count staff", err)
	}
	if err := query.Order("id ASC").Limit(pageSize).Offset((page - 1) * pageSize).Find(&staff).Error; err != nil {
		return nil, 0, storeError("list staff", err)
	}
	return staff, total, nil
}

// 2 GetStaffByID 根据ID获取员工
func (s *StaffService) GetStaffByID(ctx context.Context, id uint) (*models.Staff, error) {
	var staff models.Staff
	if err := s.Pool.DB.WithContext(ctx).First(&staff, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, storeError("load staff", err)
	}
	return &staff, nil
}

// 3 CreateStaff 创建员工账号，密码由 Staff.BeforeSave 哈希
func (s *StaffService) CreateStaff(ctx context.Context, input CreateStaffInput) (*models.Staff, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.FullName = strings.TrimSpace(input.FullName)
	if input.Role == "" {
		input.Role = models.StaffRoleCashier
	}
	if input.Username == "" || input.Password == "" || input.FullName == "" {
		return nil, invalidRequest("username, password and full name are required")
	}
	if input.Role != models.StaffRoleCashier && input.Role != models.StaffRoleAdmin {
		return nil, invalidRequest("role must be cashier or admin")
	}

	staff := models.Staff{
		Username: input.Username,
		Password: input.Password,
		FullName: input.FullName,
		Role:     input.Role,
		Status:   models.StaffStatusActive,
	}

	err := s.Pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		// 验证用户名唯一性
		var count int64
		if err := tx.Model(&models.Staff{}).Where("username = ?", staff.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUsernameTaken
		}
		return tx.Create(&staff).Error
	})
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) || isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		s.log.Error("failed to create staff", zap.String("username", staff.Username), zap.Error(err))
		return nil, storeError("create staff", err)
	}

	s.log.Info("staff account created",
		zap.Uint("staff_id", staff.ID), zap.String("username", staff.Username), zap.String("role", staff.Role))
	return &staff, nil
}

// 4 SetStaffStatus 启用或停用账号，停用后已签发的令牌随即失效
func (s *StaffService) SetStaffStatus(ctx context.Context, id uint, status string) (*models.Staff, error) {
	if status != models.StaffStatusActive && status != models.StaffStatusInactive {
		return nil, invalidRequest("status must be active or inactive")
	}

	result := s.Pool.DB.WithContext(ctx).Model(&models.Staff{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return nil, storeError("update staff status", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrStaffNotFound
	}

	s.log.Info("staff status changed", zap.Uint("staff_id", id), zap.String("status", status))
	return s.GetStaffByID(ctx, id)
}

// 5 IsStaffActive 每次请求校验账号仍然可用
func (s *StaffService) IsStaffActive(ctx context.Context, id uint) (bool, error) {
	staff, err := s.GetStaffByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrStaffNotFound) {
			return false, nil
		}
		return false, err
	}
	return staff.Active(), nil
}
