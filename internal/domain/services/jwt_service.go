package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dues-http-service/internal/domain/models"
	"dues-http-service/internal/infrastructure/database"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InterfaceJWTService 定义JWT服务接口
type InterfaceJWTService interface {
	GenerateToken(staffID uint, role string) (string, error)
	ValidateToken(tokenString string) (*JWTClaims, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
}

// LoginResult 表示登录结果
type LoginResult struct {
	Token     string    `json:"token"`
	UserID    uint      `json:"user_id"`
	Role      string    `json:"role"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	ExpiresAt time.Time `json:"expires_at"`
}

// JWTClaims 定义JWT令牌的声明结构
type JWTClaims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService 提供JWT相关服务
type JWTService struct {
	secretKey string
	issuer    string
	ttl       time.Duration
	Pool      *database.ConnectionPool
	log       *zap.Logger
}

var _ InterfaceJWTService = (*JWTService)(nil)

// NewJWTService 创建一个新的JWT服务
func NewJWTService(secretKey string, pool *database.ConnectionPool, log *zap.Logger) *JWTService {
	return &JWTService{
		secretKey: secretKey,
		issuer:    "dues-http-service",
		ttl:       12 * time.Hour,
		Pool:      pool,
		log:       log,
	}
}

// GenerateToken 生成JWT令牌
func (s *JWTService) GenerateToken(staffID uint, role string) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		UserID: staffID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// ValidateToken 验证JWT令牌并返回声明
func (s *JWTService) ValidateToken(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid token claims")
	}
	if claims.Issuer != s.issuer {
		return nil, errors.New("invalid token issuer")
	}
	return claims, nil
}

// Login 校验工作人员账号密码，成功后签发令牌
func (s *JWTService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalidRequest("username and password are required")
	}

	var staff models.Staff
	err := s.Pool.DB.WithContext(ctx).Where("username = ?", username).First(&staff).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeError("load staff", err)
	}
	if !staff.Active() || !models.CheckPasswordHash(password, staff.Password) {
		s.log.Warn("staff login rejected", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	token, err := s.GenerateToken(staff.ID, staff.Role)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &LoginResult{
		Token:     token,
		UserID:    staff.ID,
		Role:      staff.Role,
		Username:  staff.Username,
		FullName:  staff.FullName,
		ExpiresAt: time.Now().Add(s.ttl),
	}, nil
}
