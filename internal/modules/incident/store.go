// README: Durable incident store contract.
package incident

import (
	"context"
	"errors"

	"ridesafe/internal/types"
)

var (
	ErrNotFound   = errors.New("incident not found")
	ErrBadRequest = errors.New("bad request")
)

// Store commits records. Create must be atomic: after an error the record
// is either fully written or absent.
type Store interface {
	Create(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	ListByUser(ctx context.Context, userID types.ID, limit int) ([]Record, error)
}
