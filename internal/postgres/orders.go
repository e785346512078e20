package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-order-inventory/internal/domain"
)

type orderRepo struct{ tx pgx.Tx }

const (
	orderColumns = `id, user_id, status, placed_date, total_price, total_quantity, version, created_at, updated_at`
	lineColumns  = `id, order_id, position, quantity_reserved, price_per_unit, product_ids, created_at`
)

func (r *orderRepo) SaveOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, placed_date, total_price, total_quantity, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			status=EXCLUDED.status, placed_date=EXCLUDED.placed_date,
			total_price=EXCLUDED.total_price, total_quantity=EXCLUDED.total_quantity,
			version=EXCLUDED.version, updated_at=EXCLUDED.updated_at`,
		o.ID, o.UserID, string(o.Status), o.PlacedDate, o.TotalPrice, o.TotalQuantity, o.Version, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *orderRepo) FindOrder(ctx context.Context, id string) (*domain.Order, error) {
	return r.find(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
}

func (r *orderRepo) FindOrderForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.find(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id)
}

func (r *orderRepo) find(ctx context.Context, sql, id string) (*domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	err := r.tx.QueryRow(ctx, sql, id).Scan(
		&o.ID, &o.UserID, &status, &o.PlacedDate, &o.TotalPrice, &o.TotalQuantity, &o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o.Status = domain.Status(status)

	rows, err := r.tx.Query(ctx, `SELECT `+lineColumns+` FROM line_items WHERE order_id=$1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		li, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		o.LineItems = append(o.LineItems, li)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) DeleteOrder(ctx context.Context, id string) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	return err
}

func (r *orderRepo) SaveLineItem(ctx context.Context, li domain.LineItem) (domain.LineItem, error) {
	ids := li.ProductIDs
	if ids == nil {
		ids = []string{}
	}
	_, err := r.tx.Exec(ctx, `
		INSERT INTO line_items(id, order_id, position, quantity_reserved, price_per_unit, product_ids, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			position=EXCLUDED.position, quantity_reserved=EXCLUDED.quantity_reserved,
			price_per_unit=EXCLUDED.price_per_unit, product_ids=EXCLUDED.product_ids`,
		li.ID, li.OrderID, li.Position, li.QuantityReserved, li.PricePerUnit, ids, li.CreatedAt,
	)
	if err != nil {
		return domain.LineItem{}, err
	}
	return li, nil
}

func (r *orderRepo) FindLineItem(ctx context.Context, id string) (*domain.LineItem, error) {
	li, err := scanLine(r.tx.QueryRow(ctx, `SELECT `+lineColumns+` FROM line_items WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &li, nil
}

func (r *orderRepo) DeleteLineItem(ctx context.Context, id string) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM line_items WHERE id=$1`, id)
	return err
}

func scanLine(row pgx.Row) (domain.LineItem, error) {
	var li domain.LineItem
	err := row.Scan(&li.ID, &li.OrderID, &li.Position, &li.QuantityReserved, &li.PricePerUnit, &li.ProductIDs, &li.CreatedAt)
	return li, err
}
