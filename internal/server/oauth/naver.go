package oauth

import (
	"context"
	"fmt"

	"github.com/jaeha-dev/inklings/internal/server/identity"
	"github.com/jaeha-dev/inklings/internal/server/oauthlinks"
)

const (
	defaultNaverAuthURL     = "https://nid.naver.com/oauth2.0/authorize"
	defaultNaverTokenURL    = "https://nid.naver.com/oauth2.0/token"
	defaultNaverUserInfoURL = "https://openapi.naver.com/v1/nid/me"
)

// Naver authenticates users through Naver Login.
type Naver struct {
	cfg Config
}

func NewNaver(cfg Config) *Naver {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultNaverAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultNaverTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultNaverUserInfoURL
	}
	return &Naver{cfg: cfg}
}

func (n *Naver) LoginURL(state string) string {
	return loginURL(n.cfg, "", state)
}

// naverUserInfo is the /v1/nid/me response envelope.
type naverUserInfo struct {
	Response struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Nickname string `json:"nickname"`
	} `json:"response"`
}

func (n *Naver) ExchangeCode(ctx context.Context, code string) (identity.Assertion, error) {
	tok, err := exchangeToken(ctx, n.cfg, code)
	if err != nil {
		return identity.Assertion{}, err
	}

	var info naverUserInfo
	if err := fetchJSON(ctx, n.cfg, tok.AccessToken, &info); err != nil {
		return identity.Assertion{}, err
	}
	if info.Response.ID == "" {
		return identity.Assertion{}, fmt.Errorf("empty id in naver user info")
	}

	return identity.Assertion{
		Provider:       oauthlinks.ProviderNaver,
		ProviderUserID: info.Response.ID,
		Email:          info.Response.Email,
		Username:       info.Response.Nickname,
	}, nil
}

var _ Provider = (*Naver)(nil)
