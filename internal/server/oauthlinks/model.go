// Package oauthlinks declares OAuth provider links and their persistence
// contract. A link associates an external provider identity with a local
// user; (provider, provider_user_id) is globally unique and a user may hold
// links across several providers.
package oauthlinks

import (
	"fmt"
	"time"

	"github.com/jaeha-dev/inklings/internal/common"
)

// Provider is an enumerated OAuth identity provider.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderKakao  Provider = "kakao"
	ProviderNaver  Provider = "naver"
)

// ParseProvider validates a wire-level provider name.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderGoogle, ProviderKakao, ProviderNaver:
		return Provider(s), nil
	}
	return "", fmt.Errorf("%w: unknown provider %q", common.ErrorValidation, s)
}

// Link ties a provider-scoped external identity to a user.
type Link struct {
	ID             string
	UserID         string
	Provider       Provider
	ProviderUserID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
