package prices

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/database"
	"github.com/valeevte/PriceLedger/internal/lifecycle"
)

type Repository interface {
	InsertPrice(ctx context.Context, p *PriceRecord) error
	GetPriceByID(ctx context.Context, id string) (*PriceRecord, error)
	// History — активные записи с validFrom <= at, новые первыми.
	History(ctx context.Context, productID string, at time.Time, limit int) ([]PriceRecord, error)
	// ActiveUpTo — все активные записи товара с validFrom <= at.
	ActiveUpTo(ctx context.Context, productID string, at time.Time) ([]PriceRecord, error)
	// ActiveBetween — активные записи с validFrom в [from, until).
	ActiveBetween(ctx context.Context, productID string, from, until time.Time) ([]PriceRecord, error)
	RetirePrice(ctx context.Context, id string) error
}

type pgRepository struct {
	db database.DBTX
}

func NewRepository(db database.DBTX) Repository {
	return &pgRepository{db: db}
}

const priceColumns = `id::text, product_id::text, store_id::text, price::text, currency, is_on_sale,
original_price::text, sale_description, valid_from, valid_until, source, submitted_by, status, created_at, updated_at`

func scanPrice(row pgx.Row) (*PriceRecord, error) {
	var (
		p                    PriceRecord
		price, source, state string
		original             *string
	)
	err := row.Scan(&p.ID, &p.ProductID, &p.StoreID, &price, &p.Currency, &p.IsOnSale,
		&original, &p.SaleDescription, &p.ValidFrom, &p.ValidUntil, &source, &p.SubmittedBy,
		&state, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	malformed := func(err error) error {
		return apperr.New(apperr.KindInvalidInput, "malformed price row", err)
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, malformed(err)
	}
	if original != nil {
		op, err := decimal.NewFromString(*original)
		if err != nil {
			return nil, malformed(err)
		}
		p.OriginalPrice = &op
	}
	p.Source = Source(source)
	if p.Status, err = lifecycle.Parse(state); err != nil {
		return nil, malformed(err)
	}
	if err := p.validate(); err != nil {
		return nil, malformed(err)
	}
	return &p, nil
}

func (r *pgRepository) collect(ctx context.Context, msg, q string, args ...any) ([]PriceRecord, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, apperr.Upstreamf(err, msg)
	}
	defer rows.Close()

	var res []PriceRecord
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, apperr.Upstreamf(err, msg)
		}
		res = append(res, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstreamf(err, msg)
	}
	return res, nil
}

func (r *pgRepository) InsertPrice(ctx context.Context, p *PriceRecord) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Status = lifecycle.Active
	var original *string
	if p.OriginalPrice != nil {
		s := p.OriginalPrice.String()
		original = &s
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO prices (id, product_id, store_id, price, currency, is_on_sale, original_price,
    sale_description, valid_from, valid_until, source, submitted_by, status)
VALUES ($1, $2, $3, $4::numeric, $5, $6, $7::numeric, $8, $9, $10, $11, $12, $13)
RETURNING created_at, updated_at`,
		p.ID, p.ProductID, p.StoreID, p.Price.String(), p.Currency, p.IsOnSale, original,
		p.SaleDescription, p.ValidFrom, p.ValidUntil, string(p.Source), p.SubmittedBy, string(p.Status)).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return apperr.Upstream("failed to insert price", err)
	}
	p.IsActive = true
	return nil
}

func (r *pgRepository) GetPriceByID(ctx context.Context, id string) (*PriceRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("Price not found")
	}
	p, err := scanPrice(r.db.QueryRow(ctx, `SELECT `+priceColumns+` FROM prices WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Price not found")
		}
		return nil, apperr.Upstreamf(err, "failed to fetch price")
	}
	return p, nil
}

func (r *pgRepository) History(ctx context.Context, productID string, at time.Time, limit int) ([]PriceRecord, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return nil, nil
	}
	return r.collect(ctx, "failed to fetch price history",
		`SELECT `+priceColumns+` FROM prices
WHERE product_id = $1 AND status = $2 AND valid_from <= $3
ORDER BY valid_from DESC, created_at DESC, id DESC
LIMIT $4`,
		productID, string(lifecycle.Active), at, limit)
}

func (r *pgRepository) ActiveUpTo(ctx context.Context, productID string, at time.Time) ([]PriceRecord, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return nil, nil
	}
	return r.collect(ctx, "failed to fetch prices",
		`SELECT `+priceColumns+` FROM prices
WHERE product_id = $1 AND status = $2 AND valid_from <= $3`,
		productID, string(lifecycle.Active), at)
}

func (r *pgRepository) ActiveBetween(ctx context.Context, productID string, from, until time.Time) ([]PriceRecord, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return nil, nil
	}
	return r.collect(ctx, "failed to fetch prices",
		`SELECT `+priceColumns+` FROM prices
WHERE product_id = $1 AND status = $2 AND valid_from >= $3 AND valid_from < $4
ORDER BY valid_from`,
		productID, string(lifecycle.Active), from, until)
}

func (r *pgRepository) RetirePrice(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFound("Price not found")
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE prices SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`,
		string(lifecycle.Retired), id, string(lifecycle.Active))
	if err != nil {
		return apperr.Upstream("failed to retire price", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Price not found")
	}
	return nil
}
