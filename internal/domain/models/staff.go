package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// 员工角色
const (
	StaffRoleAdmin   = "admin"
	StaffRoleCashier = "cashier"
)

// 员工状态
const (
	StaffStatusActive   = "active"
	StaffStatusInactive = "inactive"
)

// Staff 物业员工（收银员、管理员）
type Staff struct {
	BaseModel
	Username string `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Password string `gorm:"type:varchar(100);not null" json:"-"` // 不在JSON中暴露密码
	FullName string `gorm:"type:varchar(120)" json:"full_name"`
	Role     string `gorm:"type:varchar(20);not null;default:'cashier'" json:"role"`
	Status   string `gorm:"type:varchar(20);default:'active'" json:"status"`
}

// BeforeSave 保存前对明文密码做哈希
func (s *Staff) BeforeSave(tx *gorm.DB) error {
	// bcrypt哈希长度为60，短于60视为明文
	if s.Password != "" && len(s.Password) < 60 {
		hashed, err := HashPassword(s.Password)
		if err != nil {
			return err
		}
		s.Password = hashed
	}
	return nil
}

// HashPassword 使用 bcrypt 对密码进行哈希处理
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPasswordHash 比较密码和哈希值
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Active 账号是否可用
func (s *Staff) Active() bool {
	return s.Status == "" || s.Status == StaffStatusActive
}
