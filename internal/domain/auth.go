package domain

import "time"

// SubjectType differentiates admin vs customer tokens.
type SubjectType string

const (
	SubjectTypeCustomer SubjectType = "customer"
	SubjectTypeAdmin    SubjectType = "admin"
	SubjectTypeSystem   SubjectType = "system"
)

// Token represents issued authentication tokens (JWT or opaque) metadata.
type Token struct {
	ID        string
	SubjectID string
	Subject   SubjectType
	Role      *AdminRole
	ExpiresAt time.Time
	IssuedAt  time.Time
}
