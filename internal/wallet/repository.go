package wallet

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned for session identifiers that were never
// opened or have been closed.
var ErrSessionNotFound = errors.New("session not found")

// Repository tracks open sessions.
type Repository interface {
	Create(ctx context.Context, session Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) int
}
