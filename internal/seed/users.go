package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/civic-reporter/internal/domain"
)

// DemoUser is an account created by the seed command.
type DemoUser struct {
	Name  string
	Email string
	Role  domain.Role
}

// DemoUsers is the fixed set of demo accounts, one citizen and one official.
var DemoUsers = []DemoUser{
	{Name: "Demo Citizen", Email: "citizen@example.com", Role: domain.RoleUser},
	{Name: "City Official", Email: "official@city.gov", Role: domain.RoleAdmin},
}

// UserEnsurer creates an account unless one already holds the email.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, bool, error)
}

// SeedUsers makes sure every demo account exists. Existing accounts are left
// untouched, so running it twice is harmless. It returns how many accounts
// were created.
func SeedUsers(ctx context.Context, users UserEnsurer, password string, logger *zap.Logger) (int, error) {
	created := 0
	for _, demo := range DemoUsers {
		user, isNew, err := users.EnsureUser(ctx, demo.Name, demo.Email, password, demo.Role)
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", demo.Email, err)
		}
		if isNew {
			created++
			logger.Info("demo user created", zap.String("email", user.Email), zap.String("role", string(user.Role)))
			continue
		}
		logger.Debug("demo user exists", zap.String("email", user.Email))
	}
	return created, nil
}
