package wishlist

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/database"
	"github.com/valeevte/PriceLedger/internal/lifecycle"
)

type Repository interface {
	InsertItem(ctx context.Context, it *Item) error
	GetItemByID(ctx context.Context, id string) (*Item, error)
	ListByUser(ctx context.Context, userID string) ([]Item, error)
	ListActive(ctx context.Context) ([]Item, error)
	UpdateItem(ctx context.Context, it *Item) error
	RetireItem(ctx context.Context, id string) error
	// CompareAndSetNotifyState меняет состояние уведомлений, только если
	// текущее совпадает с expect. false — гонку выиграл другой.
	CompareAndSetNotifyState(ctx context.Context, id string, expect, next NotifyState) (bool, error)
}

type pgRepository struct {
	db database.DBTX
}

func NewRepository(db database.DBTX) Repository {
	return &pgRepository{db: db}
}

const itemColumns = `id::text, user_id, product_id, product_name, product_image_url, target_price::text,
currency, preferred_stores, notes, status, last_notified_at, target_reached, created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var (
		it            Item
		target, state string
	)
	err := row.Scan(&it.ID, &it.UserID, &it.ProductID, &it.ProductName, &it.ProductImageURL, &target,
		&it.Currency, &it.PreferredStores, &it.Notes, &state, &it.LastNotifiedAt, &it.TargetReached,
		&it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if it.TargetPrice, err = decimal.NewFromString(target); err != nil {
		return nil, apperr.New(apperr.KindInvalidInput, "malformed wishlist row", err)
	}
	if it.Status, err = lifecycle.Parse(state); err != nil {
		return nil, apperr.New(apperr.KindInvalidInput, "malformed wishlist row", err)
	}
	if err := it.validate(); err != nil {
		return nil, apperr.New(apperr.KindInvalidInput, "malformed wishlist row", err)
	}
	return &it, nil
}

func (r *pgRepository) list(ctx context.Context, q string, args ...any) ([]Item, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, apperr.Upstream("failed to fetch wishlist", err)
	}
	defer rows.Close()

	var res []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, apperr.Upstreamf(err, "failed to read wishlist")
		}
		res = append(res, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream("failed to read wishlist", err)
	}
	return res, nil
}

func (r *pgRepository) InsertItem(ctx context.Context, it *Item) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.PreferredStores == nil {
		it.PreferredStores = []string{}
	}
	it.Status = lifecycle.Active
	err := r.db.QueryRow(ctx,
		`INSERT INTO wishlist_items (id, user_id, product_id, product_name, product_image_url, target_price,
    currency, preferred_stores, notes, status)
VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10)
RETURNING created_at, updated_at`,
		it.ID, it.UserID, it.ProductID, it.ProductName, it.ProductImageURL, it.TargetPrice.String(),
		it.Currency, it.PreferredStores, it.Notes, string(it.Status)).
		Scan(&it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return apperr.Upstream("failed to add to wishlist", err)
	}
	it.IsActive = true
	return nil
}

func (r *pgRepository) GetItemByID(ctx context.Context, id string) (*Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("Wishlist item not found")
	}
	it, err := scanItem(r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM wishlist_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Wishlist item not found")
		}
		return nil, apperr.Upstreamf(err, "failed to fetch wishlist item")
	}
	return it, nil
}

func (r *pgRepository) ListByUser(ctx context.Context, userID string) ([]Item, error) {
	return r.list(ctx, `SELECT `+itemColumns+` FROM wishlist_items
WHERE user_id = $1 AND status = $2 ORDER BY created_at DESC`, userID, string(lifecycle.Active))
}

func (r *pgRepository) ListActive(ctx context.Context) ([]Item, error) {
	return r.list(ctx, `SELECT `+itemColumns+` FROM wishlist_items WHERE status = $1 ORDER BY id`, string(lifecycle.Active))
}

func (r *pgRepository) UpdateItem(ctx context.Context, it *Item) error {
	err := r.db.QueryRow(ctx,
		`UPDATE wishlist_items
SET product_name = $2, product_image_url = $3, target_price = $4::numeric, currency = $5,
    preferred_stores = $6, notes = $7, updated_at = now()
WHERE id = $1 AND status = $8
RETURNING updated_at`,
		it.ID, it.ProductName, it.ProductImageURL, it.TargetPrice.String(), it.Currency,
		it.PreferredStores, it.Notes, string(lifecycle.Active)).
		Scan(&it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("Wishlist item not found")
		}
		return apperr.Upstream("failed to update wishlist item", err)
	}
	return nil
}

func (r *pgRepository) RetireItem(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE wishlist_items SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`,
		string(lifecycle.Retired), id, string(lifecycle.Active))
	if err != nil {
		return apperr.Upstream("failed to remove wishlist item", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Wishlist item not found")
	}
	return nil
}

func (r *pgRepository) CompareAndSetNotifyState(ctx context.Context, id string, expect, next NotifyState) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE wishlist_items
SET last_notified_at = $2, target_reached = $3, updated_at = now()
WHERE id = $1 AND status = $4
  AND last_notified_at IS NOT DISTINCT FROM $5 AND target_reached = $6`,
		id, next.LastNotifiedAt, next.TargetReached, string(lifecycle.Active),
		expect.LastNotifiedAt, expect.TargetReached)
	if err != nil {
		return false, apperr.Upstream("failed to update notify state", err)
	}
	return tag.RowsAffected() == 1, nil
}
