package patterns

import (
	"context"

	"github.com/standupstack/pulse-engine/internal/models"
)

// StoreFunc adapts a function to the Store interface.
type StoreFunc func(ctx context.Context, pattern models.TeamPattern) error

// StorePattern implements Store.
func (f StoreFunc) StorePattern(ctx context.Context, pattern models.TeamPattern) error {
	return f(ctx, pattern)
}
