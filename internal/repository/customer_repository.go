package repository

import (
	"context"

	"github.com/spec-kit/crm-support/internal/domain"
)

// CustomerRepository defines read access to CRM customers.
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
}

type customerRepository struct {
	pool PgxPool
}

// NewCustomerRepository returns a Postgres-backed implementation.
func NewCustomerRepository(pool PgxPool) CustomerRepository {
	return &customerRepository{pool: pool}
}

func (r *customerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	const query = `
        SELECT id, name, email, password_hash, created_at, updated_at
        FROM customers WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	const query = `
        SELECT id, name, email, password_hash, created_at, updated_at
        FROM customers WHERE LOWER(email)=LOWER($1)`
	return r.fetchSingle(ctx, query, email)
}

func (r *customerRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Customer, error) {
	var customer domain.Customer
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&customer.ID,
		&customer.Name,
		&customer.Email,
		&customer.PasswordHash,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	); err != nil {
		return nil, notFoundOr(err)
	}
	return &customer, nil
}
