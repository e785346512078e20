package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-order-inventory/internal/domain"
)

type productRepo struct{ tx pgx.Tx }

const productColumns = `id, name, unit_price, stock, version, created_at, updated_at`

func (r *productRepo) FindProduct(ctx context.Context, id string) (*domain.Product, error) {
	return r.find(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
}

func (r *productRepo) FindProductForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	return r.find(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1 FOR UPDATE`, id)
}

func (r *productRepo) find(ctx context.Context, sql, id string) (*domain.Product, error) {
	var p domain.Product
	err := r.tx.QueryRow(ctx, sql, id).Scan(
		&p.ID, &p.Name, &p.UnitPrice, &p.Stock, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) SaveProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO products(id, name, unit_price, stock, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name, unit_price=EXCLUDED.unit_price, stock=EXCLUDED.stock,
			version=EXCLUDED.version, updated_at=EXCLUDED.updated_at`,
		p.ID, p.Name, p.UnitPrice, p.Stock, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}
