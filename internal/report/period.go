package report

import (
	"fmt"
	"time"
)

// Period — календарный месяц. Start — первая секунда, End — последняя
// (23:59:59 последнего дня), обе границы включительно.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MonthPeriod строит период для месяца в заданной зоне.
func MonthPeriod(year int, month time.Month, loc *time.Location) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Period{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Second)}
}

// MonthOf — месяц, в который попадает t.
func MonthOf(t time.Time, loc *time.Location) Period {
	t = t.In(loc)
	return MonthPeriod(t.Year(), t.Month(), loc)
}

// ParseMonth разбирает "YYYY-MM".
func ParseMonth(s string, loc *time.Location) (Period, error) {
	t, err := time.ParseInLocation("2006-01", s, loc)
	if err != nil {
		return Period{}, fmt.Errorf("invalid month %q, expected YYYY-MM", s)
	}
	return MonthPeriod(t.Year(), t.Month(), loc), nil
}

// Until — исключающая верхняя граница (начало следующего месяца).
func (p Period) Until() time.Time { return p.End.Add(time.Second) }

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.Until())
}

func (p Period) Previous() Period {
	prev := p.Start.AddDate(0, -1, 0)
	return MonthPeriod(prev.Year(), prev.Month(), p.Start.Location())
}

// Label — "YYYY-MM".
func (p Period) Label() string { return p.Start.Format("2006-01") }

// LastMonths возвращает n месяцев, заканчивая месяцем now, от старого к новому.
func LastMonths(now time.Time, n int, loc *time.Location) []Period {
	if n <= 0 {
		return nil
	}
	out := make([]Period, n)
	p := MonthOf(now, loc)
	for i := n - 1; i >= 0; i-- {
		out[i] = p
		p = p.Previous()
	}
	return out
}
