package controllers

import (
	"encoding/json"
	"errors"
	"strconv"

	"dues-http-service/internal/domain/services"
	"dues-http-service/internal/error/code"
	"dues-http-service/internal/error/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// respondError 将领域错误映射为统一响应。存储错误只返回通用信息
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		response.Fail(c, code.ErrInvalidAmount, nil)
	case errors.Is(err, services.ErrReferenceCollision):
		response.Fail(c, code.ErrReferenceCollision, nil)
	case errors.Is(err, services.ErrInvalidRequest):
		response.FailWithMessage(c, code.ErrValidation, err.Error(), nil)
	case errors.Is(err, services.ErrNotFound):
		response.Fail(c, code.ErrReferenceNotFound, nil)
	case errors.Is(err, services.ErrAlreadySettledOrUnknown):
		response.Fail(c, code.ErrAlreadySettled, nil)
	case errors.Is(err, services.ErrUsernameTaken):
		response.Fail(c, code.ErrStaffAlreadyExist, nil)
	case errors.Is(err, services.ErrStaffNotFound):
		response.Fail(c, code.ErrStaffNotFound, nil)
	case errors.Is(err, services.ErrConstraintViolation):
		response.Fail(c, code.ErrResidentAlreadyExist, nil)
	case errors.Is(err, services.ErrTooManyReferences):
		response.Fail(c, code.ErrTooManyReferences, nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		response.Fail(c, code.ErrStaffPasswordIncorrect, nil)
	default:
		_ = c.Error(err)
		response.ServerError(c)
	}
}

// bindError 请求体绑定或校验失败
func bindError(c *gin.Context, err error) {
	response.FailWithMessage(c, code.ErrBind, "invalid request body: "+err.Error(), nil)
}

// parseIDParam 解析路径中的正整数ID
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.ParamError(c, name+" must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

// parseAmount 金额可以是 JSON 数字或字符串
func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	return services.ParseAmount(string(raw))
}

// money 以两位小数的 JSON 数字输出金额
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(services.CurrencyPlaces))
}
