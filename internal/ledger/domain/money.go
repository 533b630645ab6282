package domain

import "github.com/shopspring/decimal"

// MoneyScale 金额最多 4 位小数，与 decimal(20,4) 列一致
const MoneyScale = 4

// FitsMoneyScale 金额可被金额列无损保存
func FitsMoneyScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(MoneyScale))
}
