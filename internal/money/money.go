package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency — валюта по умолчанию (ринггит).
const DefaultCurrency = "MYR"

var aliases = map[string]string{
	"RM": "MYR",
}

// NormalizeCurrency приводит код валюты к верхнему регистру и раскрывает
// алиасы. Пустое значение даёт валюту по умолчанию.
func NormalizeCurrency(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return DefaultCurrency
	}
	if a, ok := aliases[c]; ok {
		return a
	}
	return c
}

// Parse разбирает сумму из строки. Отрицательные суммы не допускаются.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %q", s)
	}
	return d, nil
}

func Sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Mean — среднее арифметическое; для пустого набора 0.
func Mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return Sum(values).Div(decimal.NewFromInt(int64(len(values))))
}

// PercentageChange = (current - previous) / previous * 100, при previous == 0 возвращает 0.
func PercentageChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100))
}
