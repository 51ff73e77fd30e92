package receipts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/database"
)

type Repository interface {
	InsertReceipt(ctx context.Context, r *Receipt) error
	GetReceiptByID(ctx context.Context, id string) (*Receipt, error)
	ListReceipts(ctx context.Context, userID string, f ListFilter) ([]Receipt, error)
	UpdateReceipt(ctx context.Context, r *Receipt) error
	DeleteReceipt(ctx context.Context, id string) error
}

type pgRepository struct {
	db database.DBTX
}

func NewRepository(db database.DBTX) Repository {
	return &pgRepository{db: db}
}

const receiptColumns = `id::text, user_id, store_id, store_name, image_url, total_amount::text, currency,
purchase_date, items::text, status, ocr_text, created_at, updated_at`

func scanReceipt(row pgx.Row) (*Receipt, error) {
	var (
		r                    Receipt
		total, items, status string
	)
	err := row.Scan(&r.ID, &r.UserID, &r.StoreID, &r.StoreName, &r.ImageURL, &total, &r.Currency,
		&r.PurchaseDate, &items, &status, &r.OCRText, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	malformed := func(err error) error {
		return apperr.New(apperr.KindInvalidInput, "malformed receipt row", err)
	}
	if r.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, malformed(err)
	}
	if err := json.Unmarshal([]byte(items), &r.Items); err != nil {
		return nil, malformed(err)
	}
	r.Status = Status(status)
	if err := r.validate(); err != nil {
		return nil, malformed(err)
	}
	return &r, nil
}

func encodeItems(items []LineItem) (string, error) {
	if items == nil {
		items = []LineItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", apperr.Invalid("invalid receipt items")
	}
	return string(b), nil
}

func (r *pgRepository) InsertReceipt(ctx context.Context, rc *Receipt) error {
	if rc.ID == "" {
		rc.ID = uuid.NewString()
	}
	items, err := encodeItems(rc.Items)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx,
		`INSERT INTO receipts (id, user_id, store_id, store_name, image_url, total_amount, currency,
    purchase_date, items, status, ocr_text)
VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9::jsonb, $10, $11)
RETURNING created_at, updated_at`,
		rc.ID, rc.UserID, rc.StoreID, rc.StoreName, rc.ImageURL, rc.TotalAmount.String(), rc.Currency,
		rc.PurchaseDate, items, string(rc.Status), rc.OCRText).
		Scan(&rc.CreatedAt, &rc.UpdatedAt)
	if err != nil {
		return apperr.Upstream("failed to save receipt", err)
	}
	return nil
}

func (r *pgRepository) GetReceiptByID(ctx context.Context, id string) (*Receipt, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("Receipt not found")
	}
	rc, err := scanReceipt(r.db.QueryRow(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Receipt not found")
		}
		return nil, apperr.Upstreamf(err, "failed to get receipt")
	}
	return rc, nil
}

func (r *pgRepository) ListReceipts(ctx context.Context, userID string, f ListFilter) ([]Receipt, error) {
	args := []any{userID}
	q := `SELECT ` + receiptColumns + ` FROM receipts WHERE user_id = $1`
	if f.Status != "" {
		args = append(args, string(f.Status))
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	args = append(args, f.Limit)
	q += fmt.Sprintf(" ORDER BY purchase_date DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, apperr.Upstream("failed to get receipts", err)
	}
	defer rows.Close()

	var res []Receipt
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			return nil, apperr.Upstreamf(err, "failed to read receipts")
		}
		res = append(res, *rc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream("failed to read receipts", err)
	}
	return res, nil
}

func (r *pgRepository) UpdateReceipt(ctx context.Context, rc *Receipt) error {
	items, err := encodeItems(rc.Items)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx,
		`UPDATE receipts
SET store_id = $2, store_name = $3, total_amount = $4::numeric, currency = $5, purchase_date = $6,
    items = $7::jsonb, status = $8, ocr_text = $9, updated_at = now()
WHERE id = $1
RETURNING updated_at`,
		rc.ID, rc.StoreID, rc.StoreName, rc.TotalAmount.String(), rc.Currency, rc.PurchaseDate,
		items, string(rc.Status), rc.OCRText).
		Scan(&rc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("Receipt not found")
		}
		return apperr.Upstream("failed to update receipt", err)
	}
	return nil
}

func (r *pgRepository) DeleteReceipt(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM receipts WHERE id = $1`, id)
	if err != nil {
		return apperr.Upstream("failed to delete receipt", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Receipt not found")
	}
	return nil
}
