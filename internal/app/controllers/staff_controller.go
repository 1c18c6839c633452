package controllers

import (
	"strconv"

	"dues-http-service/internal/app/middleware"
	"dues-http-service/internal/domain/models"
	"dues-http-service/internal/domain/services"
	"dues-http-service/internal/domain/services/container"
	"dues-http-service/internal/error/code"
	"dues-http-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// InterfaceStaffController 定义员工账号控制器接口
type InterfaceStaffController interface {
	GetStaffs()
	CreateStaff()
	DeactivateStaff()
	ActivateStaff()
}

// StaffController 处理员工账号相关的请求
type StaffController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewStaffController 创建一个新的员工控制器
func NewStaffController(ctx *gin.Context, container *container.ServiceContainer) *StaffController {
	return &StaffController{
		Ctx:       ctx,
		Container: container,
	}
}

// CreateStaffRequest 表示创建员工账号的请求体
type CreateStaffRequest struct {
	Username string `json:"username" binding:"required" example:"caja2"`
	Password string `json:"password" binding:"required,min=8" example:"Cashier@123"`
	FullName string `json:"full_name" binding:"required" example:"Ana Rojas"`
	Role     string `json:"role" binding:"omitempty,oneof=cashier admin" example:"cashier"` // 缺省为 cashier
}

// HandleStaffFunc 返回员工账号相关的处理函数
func HandleStaffFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewStaffController(ctx, container)

		switch method {
		case "getStaffs":
			controller.GetStaffs()
		case "createStaff":
			controller.CreateStaff()
		case "deactivateStaff":
			controller.DeactivateStaff()
		case "activateStaff":
			controller.ActivateStaff()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "invalid method", nil)
		}
	}
}

func staffView(staff *models.Staff) gin.H {
	return gin.H{
		"id":         staff.ID,
		"username":   staff.Username,
		"full_name":  staff.FullName,
		"role":       staff.Role,
		"status":     staff.Status,
		"created_at": staff.CreatedAt,
	}
}

// GetStaffs 获取员工列表
// @Summary      List staff accounts
// @Description  分页获取收银员和管理员账号，支持按用户名或姓名搜索
// @Tags         Staff
// @Produce      json
// @Param        page query int false "页码，默认为1" example:"1"
// @Param        page_size query int false "每页条数，默认为10" example:"10"
// @Param        search query string false "搜索关键词" example:"caja"
// @Success      200  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /v1/admin/staff [get]
// @Security     BearerAuth
func (c *StaffController) GetStaffs() {
	page, _ := strconv.Atoi(c.Ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.Ctx.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	staffService := c.Container.GetService("staff").(*services.StaffService)
	staffs, total, err := staffService.ListStaff(c.Ctx.Request.Context(), page, pageSize, c.Ctx.Query("search"))
	if err != nil {
		respondError(c.Ctx, err)
		return
	}

	items := make([]gin.H, 0, len(staffs))
	for i := range staffs {
		items = append(items, staffView(&staffs[i]))
	}

	response.Success(c.Ctx, gin.H{
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
		"data":        items,
	})
}

// CreateStaff 创建员工账号
// @Summary      Create a staff account
// @Description  创建收银员（默认）或管理员账号，密码以 bcrypt 存储
// @Tags         Staff
// @Accept       json
// @Produce      json
// @Param        request body CreateStaffRequest true "员工信息"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /v1/admin/staff [post]
// @Security     BearerAuth
func (c *StaffController) CreateStaff() {
	var req CreateStaffRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		bindError(c.Ctx, err)
		return
	}

	staffService := c.Container.GetService("staff").(*services.StaffService)
	staff, err := staffService.CreateStaff(c.Ctx.Request.Context(), services.CreateStaffInput{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.Role,
	})
	if err != nil {
		respondError(c.Ctx, err)
		return
	}

	response.Created(c.Ctx, staffView(staff))
}

// DeactivateStaff 停用员工账号
// @Summary      Deactivate a staff account
// @Description  停用后该员工无法登录，已签发的令牌立即失效
// @Tags         Staff
// @Produce      json
// @Param        id path int true "员工ID" example:"2"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /v1/admin/staff/{id}/deactivate [post]
// @Security     BearerAuth
func (c *StaffController) DeactivateStaff() {
	id, ok := parseIDParam(c.Ctx, "id")
	if !ok {
		return
	}
	if current, _ := middleware.CurrentStaffID(c.Ctx); current == id {
		response.ParamError(c.Ctx, "cannot deactivate your own account")
		return
	}
	c.setStatus(id, models.StaffStatusInactive)
}

// ActivateStaff 重新启用员工账号
// @Summary      Activate a staff account
// @Tags         Staff
// @Produce      json
// @Param        id path int true "员工ID" example:"2"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /v1/admin/staff/{id}/activate [post]
// @Security     BearerAuth
func (c *StaffController) ActivateStaff() {
	id, ok := parseIDParam(c.Ctx, "id")
	if !ok {
		return
	}
	c.setStatus(id, models.StaffStatusActive)
}

func (c *StaffController) setStatus(id uint, status string) {
	staffService := c.Container.GetService("staff").(*services.StaffService)
	staff, err := staffService.SetStaffStatus(c.Ctx.Request.Context(), id, status)
	if err != nil {
		respondError(c.Ctx, err)
		return
	}
	response.Success(c.Ctx, staffView(staff))
}
