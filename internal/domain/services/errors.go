package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// 领域错误。调用方通过 errors.Is 判断类别
var (
	// ErrInvalidRequest 请求缺少或包含非法字段，不会访问存储
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidAmount 金额缺失、非数字或不大于零
	ErrInvalidAmount = fmt.Errorf("%w: amount must be a positive number", ErrInvalidRequest)
	// ErrReferenceCollision 生成的参考号与已有记录冲突，可重新申请
	ErrReferenceCollision = fmt.Errorf("%w: payment reference collision, please retry", ErrInvalidRequest)
	// ErrNotFound 参考号不存在或已结算
	ErrNotFound = errors.New("not found")
	// ErrAlreadySettledOrUnknown 结算闸门没有匹配到待支付的参考号
	ErrAlreadySettledOrUnknown = errors.New("payment reference already settled or unknown")
	// ErrConstraintViolation 唯一字段重复
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrUsernameTaken 员工用户名重复
	ErrUsernameTaken = fmt.Errorf("%w: username already exists", ErrConstraintViolation)
	// ErrStaffNotFound 员工不存在
	ErrStaffNotFound = errors.New("staff not found")
	// ErrTooManyReferences 住户生成参考号过于频繁
	ErrTooManyReferences = errors.New("too many payment references requested")
	// ErrStoreUnavailable 存储访问或提交失败，事务已回滚
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvalidCredentials 用户名或密码错误
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// storeError 包装存储层错误，保留原始错误用于日志
func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func invalidRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// isUniqueViolation 判断是否为唯一约束冲突
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// 驱动未翻译时按错误文本识别
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "Duplicate entry")
}
