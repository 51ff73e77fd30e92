package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/valeevte/PriceLedger/internal/money"
)

// Entry — сумма с категорией и моментом.
type Entry struct {
	Amount   decimal.Decimal
	Category string
	At       time.Time
}

type Summary struct {
	TotalAmount       decimal.Decimal            `json:"totalAmount"`
	Count             int                        `json:"transactionCount"`
	Average           decimal.Decimal            `json:"averageTransaction"`
	CategoryBreakdown map[string]decimal.Decimal `json:"categoryBreakdown"`
}

// Summarize суммирует записи, попавшие в период. Категории без записей
// в разбивку не попадают.
func Summarize(entries []Entry, p Period) Summary {
	s := Summary{
		TotalAmount:       decimal.Zero,
		Average:           decimal.Zero,
		CategoryBreakdown: map[string]decimal.Decimal{},
	}
	for _, e := range entries {
		if !p.Contains(e.At) {
			continue
		}
		s.TotalAmount = s.TotalAmount.Add(e.Amount)
		s.Count++
		cat := e.Category
		if cat == "" {
			cat = "other"
		}
		s.CategoryBreakdown[cat] = s.CategoryBreakdown[cat].Add(e.Amount)
	}
	if s.Count > 0 {
		s.Average = s.TotalAmount.Div(decimal.NewFromInt(int64(s.Count)))
	}
	return s
}

type TrendPoint struct {
	Month       string          `json:"month"`
	TotalAmount decimal.Decimal `json:"amount"`
	Count       int             `json:"transactionCount"`
}

// Trend раскладывает записи по периодам; порядок периодов сохраняется.
func Trend(entries []Entry, periods []Period) []TrendPoint {
	out := make([]TrendPoint, len(periods))
	for i, p := range periods {
		out[i] = TrendPoint{Month: p.Label(), TotalAmount: decimal.Zero}
	}
	for _, e := range entries {
		for i, p := range periods {
			if p.Contains(e.At) {
				out[i].TotalAmount = out[i].TotalAmount.Add(e.Amount)
				out[i].Count++
				break
			}
		}
	}
	return out
}

// PercentageChange — изменение current относительно previous в процентах.
func PercentageChange(current, previous decimal.Decimal) decimal.Decimal {
	return money.PercentageChange(current, previous)
}
