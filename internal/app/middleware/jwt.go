package middleware

import (
	"context"
	"strings"

	"dues-http-service/internal/domain/services"
	"dues-http-service/internal/error/code"
	"dues-http-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// 上下文中保存的认证信息
const (
	ContextUserID = "userID"
	ContextRole   = "role"
	ContextClaims = "claims"
)

// TokenValidator 验证令牌并返回声明
type TokenValidator interface {
	ValidateToken(tokenString string) (*services.JWTClaims, error)
}

// StaffStatusChecker 查询员工账号当前是否可用
type StaffStatusChecker interface {
	IsStaffActive(ctx context.Context, id uint) (bool, error)
}

// extractToken 从授权头中提取token
func extractToken(authHeader string) string {
	// 检查并移除 "Bearer " 前缀
	if len(authHeader) > 7 && strings.HasPrefix(authHeader, "Bearer ") {
		return authHeader[7:]
	}
	return authHeader
}

// AuthenticateStaff 验证员工令牌，roles 为空时任何员工角色都可访问。
// checker 不为空时拒绝签发令牌后被停用的账号
func AuthenticateStaff(validator TokenValidator, checker StaffStatusChecker, roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AbortWithCode(c, code.ErrTokenInvalid, "authorization header is required")
			return
		}

		claims, err := validator.ValidateToken(extractToken(authHeader))
		if err != nil {
			response.AbortWithCode(c, code.ErrTokenInvalid, "")
			return
		}

		if len(allowed) > 0 && !allowed[claims.Role] {
			response.AbortWithCode(c, code.ErrForbidden, "")
			return
		}

		if checker != nil {
			active, err := checker.IsStaffActive(c.Request.Context(), claims.UserID)
			if err != nil {
				_ = c.Error(err)
				response.AbortWithCode(c, code.ErrUnknown, "")
				return
			}
			if !active {
				response.AbortWithCode(c, code.ErrTokenInvalid, "account is deactivated")
				return
			}
		}

		// 存储claims到上下文
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// AuthenticateAdmin 仅管理员
func AuthenticateAdmin(validator TokenValidator, checker StaffStatusChecker) gin.HandlerFunc {
	return AuthenticateStaff(validator, checker, "admin")
}

// AuthenticateCashier 收银员或管理员
func AuthenticateCashier(validator TokenValidator, checker StaffStatusChecker) gin.HandlerFunc {
	return AuthenticateStaff(validator, checker, "cashier", "admin")
}

// CurrentStaffID 当前请求的员工ID
func CurrentStaffID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id > 0
}
