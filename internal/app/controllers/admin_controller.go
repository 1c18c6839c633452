package controllers

import (
	"encoding/json"
	"time"

	"dues-http-service/internal/domain/services"
	"dues-http-service/internal/domain/services/container"
	"dues-http-service/internal/error/code"
	"dues-http-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// InterfaceAdminController 管理员接口
type InterfaceAdminController interface {
	RegisterResident()
	GenerateMonthlyDues()
}

// AdminController 处理管理员请求
type AdminController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAdminController 创建管理员控制器
func NewAdminController(ctx *gin.Context, container *container.ServiceContainer) *AdminController {
	return &AdminController{Ctx: ctx, Container: container}
}

// RegisterResidentRequest 登记住户及钥匙
type RegisterResidentRequest struct {
	FullName   string `json:"full_name" binding:"required" example:"María Pérez"`
	NationalID string `json:"national_id" binding:"required" example:"V-12345678"`
	Phone      string `json:"phone" binding:"required" example:"0414-5550000"`
	Email      string `json:"email" binding:"required,email" example:"maria@example.com"`
	KeyNumber  string `json:"key_number" binding:"required" example:"A-101"`
}

// GenerateDuesRequest 生成月度费用，金额缺省使用配置的月费
type GenerateDuesRequest struct {
	Amount      json.RawMessage `json:"amount,omitempty" swaggertype:"number" example:"50.00"`
	Description string          `json:"description" example:"Monthly due 2024-06"`
	GeneratedAt *time.Time      `json:"generated_at,omitempty"`
}

// HandleAdminFunc 返回管理员相关的处理函数
func HandleAdminFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAdminController(ctx, container)

		switch method {
		case "registerResident":
			controller.RegisterResident()
		case "generateMonthlyDues":
			controller.GenerateMonthlyDues()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "invalid method", nil)
		}
	}
}

// RegisterResident 登记住户
// @Summary      Register a resident
// @Description  在一个事务内创建住户、钥匙及其关联
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body RegisterResidentRequest true "住户信息"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /v1/admin/register-resident [post]
// @Security     BearerAuth
func (c *AdminController) RegisterResident() {
	var req RegisterResidentRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		bindError(c.Ctx, err)
		return
	}

	registration := c.Container.GetService("registration").(*services.RegistrationService)
	out, err := registration.RegisterResident(c.Ctx.Request.Context(), services.RegisterResidentInput{
		FullName:   req.FullName,
		NationalID: req.NationalID,
		Phone:      req.Phone,
		Email:      req.Email,
		KeyNumber:  req.KeyNumber,
	})
	if err != nil {
		respondError(c.Ctx, err)
		return
	}

	response.Created(c.Ctx, gin.H{
		"resident_id":   out.ResidentID,
		"access_key_id": out.AccessKeyID,
		"key_number":    out.KeyNumber,
	})
}

// GenerateMonthlyDues 为所有有效钥匙生成费用
// @Summary      Generate monthly dues
// @Description  为每个有效钥匙生成一笔待支付费用，金额缺省为配置的月费
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body GenerateDuesRequest false "金额、说明和生成时间"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /v1/admin/generate-monthly-dues [post]
// @Security     BearerAuth
func (c *AdminController) GenerateMonthlyDues() {
	var req GenerateDuesRequest
	if c.Ctx.Request.ContentLength > 0 {
		if err := c.Ctx.ShouldBindJSON(&req); err != nil {
			bindError(c.Ctx, err)
			return
		}
	}

	amount := c.Container.GetConfig().MonthlyFee
	if len(req.Amount) > 0 {
		parsed, err := parseAmount(req.Amount)
		if err != nil {
			respondError(c.Ctx, err)
			return
		}
		amount = parsed
	}

	generatedAt := time.Now().UTC()
	if req.GeneratedAt != nil {
		generatedAt = *req.GeneratedAt
	}

	billing := c.Container.GetService("billing").(*services.BillingService)
	count, err := billing.GenerateMonthlyDues(c.Ctx.Request.Context(), amount, req.Description, generatedAt)
	if err != nil {
		respondError(c.Ctx, err)
		return
	}

	response.Created(c.Ctx, gin.H{
		"dues_created": count,
		"amount":       money(amount),
		"generated_at": generatedAt,
	})
}
