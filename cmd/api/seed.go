package main

import (
	"os"
	"time"

	"github.com/spec-kit/crm-support/internal/auth"
	"github.com/spec-kit/crm-support/internal/domain"
	"github.com/spec-kit/crm-support/internal/repository/memory"
)

const demoPasswordEnv = "DEMO_PASSWORD"

// seedDemoAccounts provisions one account of each kind so the in-memory
// mode is usable without an external identity store.
func seedDemoAccounts(store *memory.Store, bcryptCost int) error {
	password := os.Getenv(demoPasswordEnv)
	if password == "" {
		password = "changeme"
	}
	hash, err := auth.HashPassword(password, bcryptCost)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	store.AddAdmin(domain.Admin{
		Username:     "admin",
		Email:        "admin@example.com",
		PasswordHash: hash,
		Role:         domain.AdminRoleSuperAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	store.AddCustomer(domain.Customer{
		Name:         "Demo Customer",
		Email:        "customer@example.com",
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	return nil
}
