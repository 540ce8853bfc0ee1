package refreshsessions

import "time"

// Session is a persisted refresh session. Only the SHA-256 hash of the
// opaque secret is stored; the raw secret exists transiently at issuance
// and in the client's possession.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session's expiry lies before now.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}
