package stores

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/database"
	"github.com/valeevte/PriceLedger/internal/lifecycle"
)

type Repository interface {
	InsertStore(ctx context.Context, s *Store) error
	GetStoreByID(ctx context.Context, id string) (*Store, error)
	ListStores(ctx context.Context, f ListFilter) ([]Store, error)
}

type pgRepository struct {
	db database.DBTX
}

func NewRepository(db database.DBTX) Repository {
	return &pgRepository{db: db}
}

const storeColumns = `id::text, name, chain, type, address, city, region, latitude, longitude, status, created_at, updated_at`

func scanStore(row pgx.Row) (*Store, error) {
	var s Store
	var status string
	err := row.Scan(&s.ID, &s.Name, &s.Chain, &s.Type, &s.Address, &s.City, &s.Region,
		&s.Latitude, &s.Longitude, &status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if s.Status, err = lifecycle.Parse(status); err != nil {
		return nil, apperr.New(apperr.KindInvalidInput, "malformed store row", err)
	}
	if err := s.validate(); err != nil {
		return nil, apperr.New(apperr.KindInvalidInput, "malformed store row", err)
	}
	return &s, nil
}

func (r *pgRepository) InsertStore(ctx context.Context, s *Store) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.Status = lifecycle.Active
	err := r.db.QueryRow(ctx,
		`INSERT INTO stores (id, name, chain, type, address, city, region, latitude, longitude, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at, updated_at`,
		s.ID, s.Name, s.Chain, s.Type, s.Address, s.City, s.Region, s.Latitude, s.Longitude, string(s.Status)).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return apperr.Upstream("failed to insert store", err)
	}
	s.IsActive = true
	return nil
}

// GetStoreByID возвращает магазин в любом состоянии; отфильтровывать
// retired — забота вызывающего.
func (r *pgRepository) GetStoreByID(ctx context.Context, id string) (*Store, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("Store not found")
	}
	s, err := scanStore(r.db.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Store not found")
		}
		return nil, apperr.Upstreamf(err, "failed to fetch store")
	}
	return s, nil
}

func (r *pgRepository) ListStores(ctx context.Context, f ListFilter) ([]Store, error) {
	args := []any{string(lifecycle.Active)}
	q := `SELECT ` + storeColumns + ` FROM stores WHERE status = $1`
	for _, cond := range []struct{ col, val string }{
		{"city", f.City}, {"region", f.Region}, {"type", f.Type},
	} {
		if cond.val == "" {
			continue
		}
		args = append(args, cond.val)
		q += fmt.Sprintf(" AND %s = $%d", cond.col, len(args))
	}
	q += " ORDER BY name"

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, apperr.Upstream("failed to fetch stores", err)
	}
	defer rows.Close()

	var res []Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, apperr.Upstreamf(err, "failed to read stores")
		}
		res = append(res, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream("failed to read stores", err)
	}
	return res, nil
}
