package refreshsessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/jaeha-dev/inklings/internal/common"
	"github.com/jaeha-dev/inklings/internal/dbx"
)

// rawSecretBytes is the entropy of a refresh secret before hex encoding.
const rawSecretBytes = 32

// Store issues and redeems opaque refresh secrets on top of a Repository.
// Secrets are random and carry no relation to the owning user id; the
// store persists only their SHA-256 hash.
type Store struct {
	repo     Repository
	validity time.Duration
}

func NewStore(repo Repository, validity time.Duration) *Store {
	return &Store{repo: repo, validity: validity}
}

// WithTx returns a Store whose repository is bound to the given
// transaction handle. Used by callers that rotate sessions atomically.
func (s *Store) WithTx(tx dbx.DBTX) *Store {
	return &Store{repo: s.repo.WithTx(tx), validity: s.validity}
}

// HashSecret returns the lowercase hex SHA-256 digest of a raw secret.
// The digest is the storage and lookup key for sessions.
func HashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Issue creates a session for userID and returns the raw secret. The raw
// value is returned exactly once and never retrievable again.
func (s *Store) Issue(ctx context.Context, userID string) (string, error) {
	raw, err := common.MakeRandHexString(rawSecretBytes)
	if err != nil {
		return "", err
	}

	session := &Session{
		UserID:    userID,
		TokenHash: HashSecret(raw),
		ExpiresAt: time.Now().Add(s.validity),
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return "", err
	}

	return raw, nil
}

// Redeem exchanges a raw secret for the owning user id. Unknown secrets
// yield common.ErrorNotFound. Expired sessions are deleted on detection and
// yield common.ErrRefreshTokenExpired; a later redeem of the same secret
// therefore reports not-found rather than expired.
func (s *Store) Redeem(ctx context.Context, raw string) (string, error) {
	hash := HashSecret(raw)

	session, err := s.repo.FindByHash(ctx, hash)
	if err != nil {
		return "", err
	}

	if session.Expired(time.Now()) {
		if err := s.repo.DeleteByHash(ctx, hash); err != nil {
			return "", err
		}
		return "", common.ErrRefreshTokenExpired
	}

	return session.UserID, nil
}

// Revoke deletes the session matching the raw secret. Idempotent: revoking
// an already-absent session is not an error.
func (s *Store) Revoke(ctx context.Context, raw string) error {
	return s.repo.DeleteByHash(ctx, HashSecret(raw))
}

// RevokeAll deletes every session owned by userID ("logout everywhere").
func (s *Store) RevokeAll(ctx context.Context, userID string) (int64, error) {
	return s.repo.DeleteByUserID(ctx, userID)
}

// ReapExpired deletes all sessions past expiry. Invoked by the background
// reaper, never from the request path.
func (s *Store) ReapExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx)
}
