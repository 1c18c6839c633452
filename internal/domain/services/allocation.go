package services

import (
	"dues-http-service/internal/domain/models"

	"github.com/shopspring/decimal"
)

// AllocateOldestFirst 按最早优先分配付款金额。
// dues 必须已按生成日期升序排列。返回被完全覆盖的最长前缀和剩余金额；
// 遇到第一笔无法完全覆盖的费用即停止，不会跳到后面更小的费用。
func AllocateOldestFirst(dues []models.Due, tendered decimal.Decimal) ([]models.Due, decimal.Decimal) {
	remaining := tendered
	covered := 0
	for _, due := range dues {
		if remaining.LessThan(due.BaseAmount) {
			break
		}
		remaining = remaining.Sub(due.BaseAmount)
		covered++
	}
	return dues[:covered], remaining
}
