package oauth

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jaeha-dev/inklings/internal/server/identity"
	"github.com/jaeha-dev/inklings/internal/server/oauthlinks"
)

const (
	defaultKakaoAuthURL     = "https://kauth.kakao.com/oauth/authorize"
	defaultKakaoTokenURL    = "https://kauth.kakao.com/oauth/token"
	defaultKakaoUserInfoURL = "https://kapi.kakao.com/v2/user/me"
)

// Kakao authenticates users through Kakao Login.
type Kakao struct {
	cfg Config
}

func NewKakao(cfg Config) *Kakao {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultKakaoAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultKakaoTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultKakaoUserInfoURL
	}
	return &Kakao{cfg: cfg}
}

func (k *Kakao) LoginURL(state string) string {
	return loginURL(k.cfg, "", state)
}

// kakaoUserInfo is the /v2/user/me response. The numeric id is the
// provider-scoped identity; email and nickname require consent scopes.
type kakaoUserInfo struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname string `json:"nickname"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

func (k *Kakao) ExchangeCode(ctx context.Context, code string) (identity.Assertion, error) {
	tok, err := exchangeToken(ctx, k.cfg, code)
	if err != nil {
		return identity.Assertion{}, err
	}

	var info kakaoUserInfo
	if err := fetchJSON(ctx, k.cfg, tok.AccessToken, &info); err != nil {
		return identity.Assertion{}, err
	}
	if info.ID == 0 {
		return identity.Assertion{}, fmt.Errorf("empty id in kakao user info")
	}

	return identity.Assertion{
		Provider:       oauthlinks.ProviderKakao,
		ProviderUserID: strconv.FormatInt(info.ID, 10),
		Email:          info.KakaoAccount.Email,
		Username:       info.KakaoAccount.Profile.Nickname,
	}, nil
}

var _ Provider = (*Kakao)(nil)
