package store

import (
	"context"

	"github.com/omprussia/weblate-omp/internal/trans"
)

// UserStore resolves users.
//
//go:generate mockgen -destination=mocks/mock_users.go -package=mocks -source=users.go UserStore
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*trans.User, error)
	// GetUserByUsername returns ErrUserNotFound for unknown usernames.
	GetUserByUsername(ctx context.Context, username string) (*trans.User, error)
}
