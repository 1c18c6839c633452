package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces 货币精度
const CurrencyPlaces = 2

// ParseAmount 解析外部输入的金额，必须为正数
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.Trim(strings.TrimSpace(raw), `"`)
	if raw == "" || raw == "null" {
		return decimal.Zero, ErrInvalidAmount
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := CheckAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// CheckAmount 金额必须为正且最多两位小数，不做四舍五入
func CheckAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Round(CurrencyPlaces)) {
		return ErrInvalidAmount
	}
	return nil
}

// RoundCurrency 四舍五入到分
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}
