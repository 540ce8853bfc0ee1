package oauth

import (
	"github.com/jaeha-dev/inklings/internal/server/config"
	"github.com/jaeha-dev/inklings/internal/server/oauthlinks"
)

// NewProviders builds the provider registry from configuration. Providers
// without a configured client id are left out; their callback routes then
// answer 404.
func NewProviders(cfg *config.Config) map[oauthlinks.Provider]Provider {
	providers := make(map[oauthlinks.Provider]Provider)

	if cfg.GoogleClientID != "" {
		providers[oauthlinks.ProviderGoogle] = NewGoogle(Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
	}
	if cfg.KakaoClientID != "" {
		providers[oauthlinks.ProviderKakao] = NewKakao(Config{
			ClientID:     cfg.KakaoClientID,
			ClientSecret: cfg.KakaoClientSecret,
			RedirectURL:  cfg.KakaoRedirectURL,
		})
	}
	if cfg.NaverClientID != "" {
		providers[oauthlinks.ProviderNaver] = NewNaver(Config{
			ClientID:     cfg.NaverClientID,
			ClientSecret: cfg.NaverClientSecret,
			RedirectURL:  cfg.NaverRedirectURL,
		})
	}

	return providers
}
