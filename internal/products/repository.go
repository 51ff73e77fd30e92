package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/valeevte/PriceLedger/internal/apperr"
	"github.com/valeevte/PriceLedger/internal/database"
	"github.com/valeevte/PriceLedger/internal/lifecycle"
)

type Repository interface {
	InsertProduct(ctx context.Context, p *Product) error
	GetProductByID(ctx context.Context, id string) (*Product, error)
	GetProducts(ctx context.Context, f ListFilter) ([]Product, error)
	SearchProducts(ctx context.Context, query, category string, limit int) ([]Product, error)
	RetireProduct(ctx context.Context, id string) error
}

type pgRepository struct {
	db database.DBTX
}

func NewRepository(db database.DBTX) Repository {
	return &pgRepository{db: db}
}

const productColumns = `id::text, name, brand, category, barcode, image_url, unit, status, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var status string
	if err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.Category, &p.Barcode, &p.ImageURL, &p.Unit, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	st, err := lifecycle.Parse(status)
	if err != nil {
		return nil, apperr.New(apperr.KindInvalidInput, "malformed product row", err)
	}
	p.Status = st
	if err := p.validate(); err != nil {
		return nil, apperr.New(apperr.KindInvalidInput, "malformed product row", err)
	}
	return &p, nil
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()
	var res []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, apperr.Upstreamf(err, "failed to read products")
		}
		res = append(res, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream("failed to read products", err)
	}
	return res, nil
}

func (r *pgRepository) InsertProduct(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Status = lifecycle.Active
	err := r.db.QueryRow(ctx,
		`INSERT INTO products (id, name, brand, category, barcode, image_url, unit, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Brand, p.Category, p.Barcode, p.ImageURL, p.Unit, string(p.Status)).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return apperr.Upstream("failed to insert product", err)
	}
	p.IsActive = true
	return nil
}

func (r *pgRepository) GetProductByID(ctx context.Context, id string) (*Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("Product not found")
	}
	p, err := scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Product not found")
		}
		return nil, apperr.Upstreamf(err, "failed to fetch product")
	}
	return p, nil
}

func (r *pgRepository) GetProducts(ctx context.Context, f ListFilter) ([]Product, error) {
	args := []any{string(lifecycle.Active)}
	q := `SELECT ` + productColumns + ` FROM products WHERE status = $1`
	if f.Category != "" {
		args = append(args, f.Category)
		q += fmt.Sprintf(" AND category = $%d", len(args))
	}
	args = append(args, f.Limit, f.Offset)
	q += fmt.Sprintf(" ORDER BY name LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, apperr.Upstream("failed to fetch products", err)
	}
	return collectProducts(rows)
}

// SearchProducts ищет по подстроке в названии или бренде; порядок выдачи
// задаётся SortByRelevance.
func (r *pgRepository) SearchProducts(ctx context.Context, query, category string, limit int) ([]Product, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	args := []any{string(lifecycle.Active), pattern}
	q := `SELECT ` + productColumns + ` FROM products
WHERE status = $1 AND (lower(name) LIKE $2 OR lower(brand) LIKE $2)`
	if category != "" {
		args = append(args, category)
		q += fmt.Sprintf(" AND category = $%d", len(args))
	}
	args = append(args, limit)
	q += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, apperr.Upstream("failed to search products", err)
	}
	res, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}
	SortByRelevance(res, query)
	return res, nil
}

func (r *pgRepository) RetireProduct(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFound("Product not found")
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET status = $1, updated_at = now() WHERE id = $2`,
		string(lifecycle.Retired), id)
	if err != nil {
		return apperr.Upstream("failed to retire product", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Product not found")
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
