package oauth

import (
	"context"
	"fmt"

	"github.com/jaeha-dev/inklings/internal/server/identity"
	"github.com/jaeha-dev/inklings/internal/server/oauthlinks"
)

const (
	defaultGoogleAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	defaultGoogleTokenURL    = "https://oauth2.googleapis.com/token"
	defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// Google authenticates users through Google OAuth 2.0.
type Google struct {
	cfg Config
}

func NewGoogle(cfg Config) *Google {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultGoogleAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultGoogleTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultGoogleUserInfoURL
	}
	return &Google{cfg: cfg}
}

func (g *Google) LoginURL(state string) string {
	return loginURL(g.cfg, "openid email profile", state)
}

// googleUserInfo is the OIDC userinfo response.
type googleUserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (g *Google) ExchangeCode(ctx context.Context, code string) (identity.Assertion, error) {
	tok, err := exchangeToken(ctx, g.cfg, code)
	if err != nil {
		return identity.Assertion{}, err
	}

	var info googleUserInfo
	if err := fetchJSON(ctx, g.cfg, tok.AccessToken, &info); err != nil {
		return identity.Assertion{}, err
	}
	if info.Sub == "" {
		return identity.Assertion{}, fmt.Errorf("empty sub in google user info")
	}

	return identity.Assertion{
		Provider:       oauthlinks.ProviderGoogle,
		ProviderUserID: info.Sub,
		Email:          info.Email,
		Username:       info.Name,
	}, nil
}

var _ Provider = (*Google)(nil)
