// Package refreshsessions manages long-lived refresh sessions: opaque
// secrets handed to clients, persisted server-side as one-way hashes with
// an expiry, supporting multi-device use, rotation, and revocation.
package refreshsessions

import (
	"context"

	"github.com/jaeha-dev/inklings/internal/dbx"
)

// Repository defines storage operations over refresh sessions, keyed by
// the unique token hash.
type Repository interface {
	// Create stores a new session row.
	Create(ctx context.Context, session *Session) error

	// FindByHash looks up a session by its token hash. Implementations
	// return common.ErrorNotFound when the hash is absent.
	FindByHash(ctx context.Context, hash string) (*Session, error)

	// DeleteByHash removes a session by its token hash. Deleting a
	// non-existent row is not an error.
	DeleteByHash(ctx context.Context, hash string) error

	// DeleteByUserID removes every session owned by the user and returns
	// the number of rows removed.
	DeleteByUserID(ctx context.Context, userID string) (int64, error)

	// DeleteExpired removes all rows past expiry and returns the count.
	DeleteExpired(ctx context.Context) (int64, error)

	// WithTx returns a repository bound to the given transaction handle.
	WithTx(tx dbx.DBTX) Repository
}
