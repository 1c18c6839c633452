package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dues-http-service/internal/domain/services"
	"dues-http-service/internal/domain/services/container"
	"dues-http-service/internal/error/code"
	"dues-http-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// InterfaceDuesController 住户侧接口
type InterfaceDuesController interface {
	GetSummary()
	RequestReference()
	GetHistory()
	ExportHistory()
}

// DuesController 处理住户费用相关请求
type DuesController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewDuesController 创建费用控制器
func NewDuesController(ctx *gin.Context, container *container.ServiceContainer) *DuesController {
	return &DuesController{Ctx: ctx, Container: container}
}

// ReferenceRequest 申请付款参考号
type ReferenceRequest struct {
	ResidentID uint            `json:"resident_id" binding:"required" example:"1"`
	Amount     json.RawMessage `json:"amount" binding:"required" swaggertype:"number" example:"120.00"`
}

// HistoryItem 付款历史条目
type HistoryItem struct {
	PaymentID   uint        `json:"payment_id"`
	Reference   string      `json:"reference"`
	Amount      json.Number `json:"amount"`
	Status      string      `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	PaidAt      *time.Time  `json:"paid_at"`
	ProcessedBy string      `json:"processed_by"`
}

// HandleDuesFunc 返回费用相关的处理函数
func HandleDuesFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewDuesController(ctx, container)

		switch method {
		case "getSummary":
			controller.GetSummary()
		case "requestReference":
			controller.RequestReference()
		case "getHistory":
			controller.GetHistory()
		case "exportHistory":
			controller.ExportHistory()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "invalid method", nil)
		}
	}
}

// GetSummary 欠费汇总
// @Summary      Get dues summary
// @Description  返回住户未支付费用总额、欠费月数及当前月费
// @Tags         Dues
// @Produce      json
// @Param        residentId path int true "住户ID" example:"1"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /v1/dues/summary/{residentId} [get]
func (c *DuesController) GetSummary() {
	residentID, ok := parseIDParam(c.Ctx, "residentId")
	if !ok {
		return
	}

	ledger := c.Container.GetService("ledger").(*services.LedgerService)
	summary, err := ledger.GetDuesSummary(c.Ctx.Request.Context(), residentID)
	if err != nil {
		respondError(c.Ctx, err)
		return
	}

	response.Success(c.Ctx, gin.H{
		"resident_id":   summary.ResidentID,
		"total_balance": money(summary.TotalBalance),
		"months_due":    summary.MonthsDue,
		"monthly_fee":   money(summary.MonthlyFee),
	})
}

// RequestReference 生成付款参考号
// @Summary      Request a payment reference
// @Description  生成一次性付款参考号，不修改任何费用
// @Tags         Dues
// @Accept       json
// @Produce      json
// @Param        request body ReferenceRequest true "住户ID与金额"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      429  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /v1/dues/request-reference [post]
func (c *DuesController) RequestReference() {
	var req ReferenceRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		bindError(c.Ctx, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondError(c.Ctx, err)
		return
	}

	payments := c.Container.GetService("payment").(*services.PaymentService)
	issued, err := payments.IssueReference(c.Ctx.Request.Context(), req.ResidentID, amount)
	if err != nil {
		respondError(c.Ctx, err)
		return
	}

	response.Created(c.Ctx, gin.H{
		"reference": issued.Reference,
		"amount":    money(issued.Amount),
	})
}

// GetHistory 付款历史
// @Summary      Get payment history
// @Description  按创建时间倒序返回付款记录及处理人
// @Tags         Dues
// @Produce      json
// @Param        residentId path int true "住户ID" example:"1"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /v1/dues/history/{residentId} [get]
func (c *DuesController) GetHistory() {
	residentID, ok := parseIDParam(c.Ctx, "residentId")
	if !ok {
		return
	}

	ledger := c.Container.GetService("ledger").(*services.LedgerService)
	entries, err := ledger.GetPaymentHistory(c.Ctx.Request.Context(), residentID)
	if err != nil {
		respondError(c.Ctx, err)
		return
	}

	items := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, HistoryItem{
			PaymentID:   e.PaymentID,
			Reference:   e.Reference,
			Amount:      money(e.Amount),
			Status:      e.Status,
			CreatedAt:   e.CreatedAt,
			PaidAt:      e.PaidAt,
			ProcessedBy: e.ProcessedBy,
		})
	}
	response.Success(c.Ctx, gin.H{
		"resident_id": residentID,
		"history":     items,
	})
}

// ExportHistory 导出付款历史 xlsx
// @Summary      Export payment history
// @Description  以 xlsx 文件导出付款历史
// @Tags         Dues
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        residentId path int true "住户ID" example:"1"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      429  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /v1/dues/history/{residentId}/export [get]
func (c *DuesController) ExportHistory() {
	residentID, ok := parseIDParam(c.Ctx, "residentId")
	if !ok {
		return
	}

	ledger := c.Container.GetService("ledger").(*services.LedgerService)
	data, err := ledger.ExportPaymentHistory(c.Ctx.Request.Context(), residentID)
	if err != nil {
		respondError(c.Ctx, err)
		return
	}

	filename := fmt.Sprintf("payment-history-%d.xlsx", residentID)
	c.Ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Ctx.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
