package expenses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/database"
)

type Repository interface {
	InsertExpense(ctx context.Context, e *Expense) error
	GetExpenseByID(ctx context.Context, id string) (*Expense, error)
	ListExpenses(ctx context.Context, userID string, f ListFilter) ([]Expense, error)
	// ExpensesBetween — расходы пользователя с датой в [from, until).
	ExpensesBetween(ctx context.Context, userID string, from, until time.Time) ([]Expense, error)
	UpdateExpense(ctx context.Context, e *Expense) error
	DeleteExpense(ctx context.Context, id string) error
}

type pgRepository struct {
	db database.DBTX
}

func NewRepository(db database.DBTX) Repository {
	return &pgRepository{db: db}
}

const expenseColumns = `id::text, user_id, category, amount::text, currency, description, date,
receipt_id, store_id, store_name, tags, created_at, updated_at`

func scanExpense(row pgx.Row) (*Expense, error) {
	var (
		e      Expense
		amount string
	)
	err := row.Scan(&e.ID, &e.UserID, &e.Category, &amount, &e.Currency, &e.Description, &e.Date,
		&e.ReceiptID, &e.StoreID, &e.StoreName, &e.Tags, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, apperr.New(apperr.KindInvalidInput, "malformed expense row", err)
	}
	if err := e.validate(); err != nil {
		return nil, apperr.New(apperr.KindInvalidInput, "malformed expense row", err)
	}
	return &e, nil
}

func (r *pgRepository) list(ctx context.Context, q string, args ...any) ([]Expense, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, apperr.Upstream("failed to get expenses", err)
	}
	defer rows.Close()

	var res []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, apperr.Upstreamf(err, "failed to read expenses")
		}
		res = append(res, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream("failed to read expenses", err)
	}
	return res, nil
}

func (r *pgRepository) InsertExpense(ctx context.Context, e *Expense) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO expenses (id, user_id, category, amount, currency, description, date,
    receipt_id, store_id, store_name, tags)
VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11)
RETURNING created_at, updated_at`,
		e.ID, e.UserID, e.Category, e.Amount.String(), e.Currency, e.Description, e.Date,
		e.ReceiptID, e.StoreID, e.StoreName, e.Tags).
		Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return apperr.Upstream("failed to add expense", err)
	}
	return nil
}

func (r *pgRepository) GetExpenseByID(ctx context.Context, id string) (*Expense, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("Expense not found")
	}
	e, err := scanExpense(r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Expense not found")
		}
		return nil, apperr.Upstreamf(err, "failed to get expense")
	}
	return e, nil
}

func (r *pgRepository) ListExpenses(ctx context.Context, userID string, f ListFilter) ([]Expense, error) {
	args := []any{userID}
	q := `SELECT ` + expenseColumns + ` FROM expenses WHERE user_id = $1`
	if f.StartDate != nil {
		args = append(args, *f.StartDate)
		q += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if f.EndDate != nil {
		args = append(args, *f.EndDate)
		q += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		q += fmt.Sprintf(" AND category = $%d", len(args))
	}
	args = append(args, f.Limit, f.Offset)
	q += fmt.Sprintf(" ORDER BY date DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return r.list(ctx, q, args...)
}

func (r *pgRepository) ExpensesBetween(ctx context.Context, userID string, from, until time.Time) ([]Expense, error) {
	return r.list(ctx, `SELECT `+expenseColumns+` FROM expenses
WHERE user_id = $1 AND date >= $2 AND date < $3 ORDER BY date`, userID, from, until)
}

func (r *pgRepository) UpdateExpense(ctx context.Context, e *Expense) error {
	err := r.db.QueryRow(ctx,
		`UPDATE expenses
SET category = $2, amount = $3::numeric, currency = $4, description = $5, date = $6,
    receipt_id = $7, store_id = $8, store_name = $9, tags = $10, updated_at = now()
WHERE id = $1
RETURNING updated_at`,
		e.ID, e.Category, e.Amount.String(), e.Currency, e.Description, e.Date,
		e.ReceiptID, e.StoreID, e.StoreName, e.Tags).
		Scan(&e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("Expense not found")
		}
		return apperr.Upstream("failed to update expense", err)
	}
	return nil
}

func (r *pgRepository) DeleteExpense(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return apperr.Upstream("failed to delete expense", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Expense not found")
	}
	return nil
}
