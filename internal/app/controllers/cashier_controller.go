package controllers

import (
	"encoding/json"

	"dues-http-service/internal/app/middleware"
	"dues-http-service/internal/domain/services"
	"dues-http-service/internal/domain/services/container"
	"dues-http-service/internal/error/code"
	"dues-http-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// InterfaceCashierController 收银台接口
type InterfaceCashierController interface {
	SearchPendingPayment()
	RegisterCashPayment()
}

// CashierController 处理收银员请求
type CashierController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewCashierController 创建收银控制器
func NewCashierController(ctx *gin.Context, container *container.ServiceContainer) *CashierController {
	return &CashierController{Ctx: ctx, Container: container}
}

// CashPaymentRequest 登记现金付款，收银员取自令牌
type CashPaymentRequest struct {
	Reference  string          `json:"reference" binding:"required" example:"REF-1-0A1B2C3D4E5F60718293"`
	ResidentID uint            `json:"resident_id" binding:"required" example:"1"`
	AmountPaid json.RawMessage `json:"amount_paid" binding:"required" swaggertype:"number" example:"120.00"`
}

// HandleCashierFunc 返回收银相关的处理函数
func HandleCashierFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewCashierController(ctx, container)

		switch method {
		case "searchPendingPayment":
			controller.SearchPendingPayment()
		case "registerCashPayment":
			controller.RegisterCashPayment()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "invalid method", nil)
		}
	}
}

// SearchPendingPayment 查询待支付参考号
// @Summary      Search a pending payment
// @Description  收银员核对参考号，已支付或不存在均返回404
// @Tags         Cashier
// @Produce      json
// @Param        reference path string true "付款参考号" example:"REF-1-0A1B2C3D4E5F60718293"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /v1/admin/search-pending-payment/{reference} [get]
// @Security     BearerAuth
func (c *CashierController) SearchPendingPayment() {
	payments := c.Container.GetService("payment").(*services.PaymentService)
	view, err := payments.LookupPending(c.Ctx.Request.Context(), c.Ctx.Param("reference"))
	if err != nil {
		respondError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, gin.H{
		"reference":            view.Reference,
		"amount":               money(view.Amount),
		"resident_id":          view.ResidentID,
		"resident_name":        view.ResidentName,
		"resident_national_id": view.ResidentNationalID,
	})
}

// RegisterCashPayment 结算现金付款
// @Summary      Register a cash payment
// @Description  结算参考号并按最早优先分配到未支付费用
// @Tags         Cashier
// @Accept       json
// @Produce      json
// @Param        request body CashPaymentRequest true "参考号、住户ID和实收金额"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /v1/admin/register-cash-payment [post]
// @Security     BearerAuth
func (c *CashierController) RegisterCashPayment() {
	var req CashPaymentRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		bindError(c.Ctx, err)
		return
	}
	amount, err := parseAmount(req.AmountPaid)
	if err != nil {
		respondError(c.Ctx, err)
		return
	}
	cashierID, ok := middleware.CurrentStaffID(c.Ctx)
	if !ok {
		response.Unauthorized(c.Ctx)
		return
	}

	settlement := c.Container.GetService("settlement").(*services.SettlementService)
	result, err := settlement.SettlePayment(c.Ctx.Request.Context(), services.SettleRequest{
		Reference:      req.Reference,
		CashierID:      cashierID,
		ResidentID:     req.ResidentID,
		TenderedAmount: amount,
	})
	if err != nil {
		respondError(c.Ctx, err)
		return
	}

	response.Created(c.Ctx, gin.H{
		"payment_id":          result.PaymentID,
		"dues_applied":        result.DuesApplied,
		"due_ids":             result.DueIDs,
		"remaining_unapplied": money(result.RemainingUnapplied),
	})
}
