package expenses

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/money"
	"github.com/valeevte/PriceLedger/internal/report"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

type Service struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

func NewService(repo Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, loc: loc, now: time.Now}
}

func (s *Service) owned(ctx context.Context, userID, id string) (*Expense, error) {
	e, err := s.repo.GetExpenseByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.UserID != userID {
		return nil, apperr.AccessDenied("Access denied")
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, userID string, f ListFilter) ([]Expense, error) {
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return nil, apperr.Invalid("endDate must not be before startDate")
	}
	return s.repo.ListExpenses(ctx, userID, f)
}

// Summary — сводка за месяц "YYYY-MM" (пусто — текущий месяц).
func (s *Service) Summary(ctx context.Context, userID, month string) (*MonthlySummary, error) {
	period := report.MonthOf(s.now(), s.loc)
	if month != "" {
		p, err := report.ParseMonth(month, s.loc)
		if err != nil {
			return nil, apperr.Invalid(err.Error())
		}
		period = p
	}
	prev := period.Previous()

	list, err := s.repo.ExpensesBetween(ctx, userID, prev.Start, period.Until())
	if err != nil {
		return nil, err
	}
	entries := make([]report.Entry, len(list))
	for i, e := range list {
		entries[i] = e.entry()
	}

	cur := report.Summarize(entries, period)
	before := report.Summarize(entries, prev)
	return &MonthlySummary{
		Month:               period.Label(),
		Currency:            money.DefaultCurrency,
		Summary:             cur,
		PreviousMonthAmount: before.TotalAmount,
		PercentageChange:    report.PercentageChange(cur.TotalAmount, before.TotalAmount).Round(2),
	}, nil
}

// Trends — суммы по месяцам за последние months месяцев, от старого к новому.
func (s *Service) Trends(ctx context.Context, userID string, months int) ([]report.TrendPoint, error) {
	if months < 1 || months > 24 {
		return nil, apperr.Invalid("months must be an integer between 1 and 24")
	}
	periods := report.LastMonths(s.now(), months, s.loc)
	list, err := s.repo.ExpensesBetween(ctx, userID, periods[0].Start, periods[len(periods)-1].Until())
	if err != nil {
		return nil, err
	}
	entries := make([]report.Entry, len(list))
	for i, e := range list {
		entries[i] = e.entry()
	}
	return report.Trend(entries, periods), nil
}

func normalizeCategory(c string) (string, error) {
	c = strings.ToLower(strings.TrimSpace(c))
	if !knownCategory(c) {
		return "", apperr.Invalid("unknown category " + c)
	}
	return c, nil
}

func validAmount(a *decimal.Decimal) error {
	if a == nil || a.IsNegative() {
		return apperr.Invalid("amount must be a non-negative number")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, userID string, req CreateExpenseRequest) (*Expense, error) {
	cat, err := normalizeCategory(req.Category)
	if err != nil {
		return nil, err
	}
	if err := validAmount(req.Amount); err != nil {
		return nil, err
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return nil, apperr.Invalid("Missing required fields: category, amount, description")
	}
	date := s.now()
	if req.Date != nil {
		date = *req.Date
	}
	e := &Expense{
		UserID:      userID,
		Category:    cat,
		Amount:      req.Amount.Round(2),
		Currency:    money.NormalizeCurrency(req.Currency),
		Description: desc,
		Date:        date,
		ReceiptID:   req.ReceiptID,
		StoreID:     req.StoreID,
		StoreName:   req.StoreName,
		Tags:        req.Tags,
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	if err := s.repo.InsertExpense(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, req UpdateExpenseRequest) (*Expense, error) {
	e, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if req.Category != nil {
		if e.Category, err = normalizeCategory(*req.Category); err != nil {
			return nil, err
		}
	}
	if req.Amount != nil {
		if err := validAmount(req.Amount); err != nil {
			return nil, err
		}
		e.Amount = req.Amount.Round(2)
	}
	if req.Currency != nil {
		e.Currency = money.NormalizeCurrency(*req.Currency)
	}
	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		if desc == "" {
			return nil, apperr.Invalid("description must not be empty")
		}
		e.Description = desc
	}
	if req.Date != nil {
		e.Date = *req.Date
	}
	if req.ReceiptID != nil {
		e.ReceiptID = req.ReceiptID
	}
	if req.StoreID != nil {
		e.StoreID = req.StoreID
	}
	if req.StoreName != nil {
		e.StoreName = req.StoreName
	}
	if req.Tags != nil {
		e.Tags = req.Tags
	}
	if err := s.repo.UpdateExpense(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.DeleteExpense(ctx, id)
}
