package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"storefront.dev/internal/auth"
	"storefront.dev/internal/products"
)

var _ products.Store = (*ProductRepo)(nil)

// ProductRepo implements products.Store on the shared pool.
type ProductRepo struct {
	s *Store
}

func (r *ProductRepo) Create(ctx context.Context, p *products.Product) error {
	if p == nil {
		return auth.ErrInvalidInput
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt
	_, err := r.s.db.ExecContext(ctx, `
		insert into products (id, name, description, price_cents, stock, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Name, p.Description, p.PriceCents, p.Stock, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *ProductRepo) Find(ctx context.Context, id string) (*products.Product, error) {
	var p products.Product
	err := r.s.db.QueryRowContext(ctx, `
		select id, name, description, price_cents, stock, created_at, updated_at
		from products where id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List pages by id; product ids are ULIDs, so id order is creation order.
func (r *ProductRepo) List(ctx context.Context, limit int, afterID string) ([]products.Product, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := r.s.db.QueryContext(ctx, `
		select id, name, description, price_cents, stock, created_at, updated_at
		from products
		where id > $1
		order by id asc
		limit $2
	`, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []products.Product
	for rows.Next() {
		var p products.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *ProductRepo) Update(ctx context.Context, p *products.Product) (*products.Product, error) {
	if p == nil {
		return nil, auth.ErrInvalidInput
	}
	p.UpdatedAt = time.Now().UTC()
	res, err := r.s.db.ExecContext(ctx, `
		update products
		set name = $2, description = $3, price_cents = $4, stock = $5, updated_at = $6
		where id = $1
	`, p.ID, p.Name, p.Description, p.PriceCents, p.Stock, p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, auth.ErrNotFound
	}
	return p, nil
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	res, err := r.s.db.ExecContext(ctx, `delete from products where id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}
