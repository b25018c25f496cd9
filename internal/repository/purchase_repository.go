package repository

import (
	"context"

	"github.com/spec-kit/crm-support/internal/domain"
)

// PurchaseRepository looks up purchases referenced by tickets.
type PurchaseRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Purchase, error)
}

type purchaseRepository struct {
	pool PgxPool
}

// NewPurchaseRepository returns a Postgres-backed implementation.
func NewPurchaseRepository(pool PgxPool) PurchaseRepository {
	return &purchaseRepository{pool: pool}
}

func (r *purchaseRepository) GetByID(ctx context.Context, id string) (*domain.Purchase, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	const query = `SELECT id, customer_id, created_at FROM purchases WHERE id=$1`
	var purchase domain.Purchase
	if err := r.pool.QueryRow(ctx, query, id).Scan(&purchase.ID, &purchase.CustomerID, &purchase.CreatedAt); err != nil {
		return nil, notFoundOr(err)
	}
	return &purchase, nil
}
