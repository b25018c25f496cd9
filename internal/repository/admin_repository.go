package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/crm-support/internal/domain"
)

// AdminRepository reads back-office accounts. Admins are provisioned outside this service.
type AdminRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Admin, error)
	GetByEmail(ctx context.Context, email string) (*domain.Admin, error)
	List(ctx context.Context, filter AdminFilter) ([]domain.Admin, error)
}

// AdminFilter defines query params for admin listing.
type AdminFilter struct {
	Role   *domain.AdminRole
	Active *bool
	Limit  int
	Offset int
}

const adminColumns = `id, username, email, password_hash, role, active_flag, created_at, updated_at`

type adminRepository struct {
	pool PgxPool
}

// NewAdminRepository instantiates the repository.
func NewAdminRepository(pool PgxPool) AdminRepository {
	return &adminRepository{pool: pool}
}

func (r *adminRepository) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *adminRepository) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE LOWER(email)=LOWER($1)`
	return r.fetchSingle(ctx, query, email)
}

func (r *adminRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Admin, error) {
	admin, err := scanAdmin(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, notFoundOr(err)
	}
	return admin, nil
}

func (r *adminRepository) List(ctx context.Context, filter AdminFilter) ([]domain.Admin, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active_flag=$%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT %s FROM admins WHERE %s ORDER BY username ASC LIMIT %d OFFSET %d`,
		adminColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Admin{}
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *admin)
	}
	return result, rows.Err()
}

func scanAdmin(row rowScanner) (*domain.Admin, error) {
	var admin domain.Admin
	if err := row.Scan(
		&admin.ID,
		&admin.Username,
		&admin.Email,
		&admin.PasswordHash,
		&admin.Role,
		&admin.Active,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &admin, nil
}
