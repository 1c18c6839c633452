package services

import (
	"testing"

	"dues-http-service/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func duesOf(t *testing.T, amounts ...string) []models.Due {
	dues := make([]models.Due, 0, len(amounts))
	for i, a := range amounts {
		dues = append(dues, models.Due{ID: uint(i + 1), BaseAmount: dec(t, a), GeneratedAt: month(i + 1)})
	}
	return dues
}

func TestAllocateOldestFirst(t *testing.T) {
	tests := []struct {
		name      string
		dues      []string
		tendered  string
		covered   int
		remaining string
	}{
		{name: "two of three covered", dues: []string{"50", "50", "50"}, tendered: "120", covered: 2, remaining: "20.00"},
		{name: "exact single due", dues: []string{"50"}, tendered: "50", covered: 1, remaining: "0.00"},
		{name: "below oldest due", dues: []string{"50", "10"}, tendered: "30", covered: 0, remaining: "30.00"},
		{name: "no dues", dues: nil, tendered: "75.50", covered: 0, remaining: "75.50"},
		{name: "overpay all", dues: []string{"20", "30"}, tendered: "60", covered: 2, remaining: "10.00"},
		{name: "cents", dues: []string{"33.33", "33.33", "33.34"}, tendered: "100", covered: 3, remaining: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dues := duesOf(t, tt.dues...)
			tendered := dec(t, tt.tendered)

			covered, remaining := AllocateOldestFirst(dues, tendered)

			assert.Len(t, covered, tt.covered)
			assert.Equal(t, tt.remaining, remaining.StringFixed(2))

			// 守恒：已分配 + 剩余 = 支付金额
			sum := remaining
			for _, d := range covered {
				sum = sum.Add(d.BaseAmount)
			}
			assert.True(t, sum.Equal(tendered))
		})
	}
}

func TestAllocateOldestFirst_StrictPrefix(t *testing.T) {
	// 第二笔无法覆盖时，不会跳到更小的第三笔
	dues := duesOf(t, "40", "100", "5")
	covered, remaining := AllocateOldestFirst(dues, dec(t, "60"))

	assert.Len(t, covered, 1)
	assert.Equal(t, uint(1), covered[0].ID)
	assert.Equal(t, "20.00", remaining.StringFixed(2))
	assert.True(t, remaining.LessThan(dues[1].BaseAmount))
}
