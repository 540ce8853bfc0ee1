// Package oauth implements authorization-code clients for the supported
// identity providers. Each provider exchanges a callback code for the
// provider's user info and returns it as an identity assertion.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jaeha-dev/inklings/internal/server/identity"
)

// Provider is an OAuth 2.0 authorization-code client.
type Provider interface {
	// LoginURL builds the provider's authorization URL for the given
	// anti-forgery state.
	LoginURL(state string) string

	// ExchangeCode trades an authorization code for the provider's user
	// info, returned as an assertion about the caller's identity.
	ExchangeCode(ctx context.Context, code string) (identity.Assertion, error)
}

// Config carries one provider's client credentials and endpoints. Endpoint
// fields exist so tests can point the client at a local server.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL     string
	TokenURL    string
	UserInfoURL string

	// HTTPClient overrides http.DefaultClient when set.
	HTTPClient *http.Client
}

func (c *Config) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// tokenResponse is the provider's token-endpoint response. All three
// providers use the same field names here.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// loginURL builds a standard authorization-code URL with the given scope.
func loginURL(cfg Config, scope, state string) string {
	params := url.Values{
		"client_id":     {cfg.ClientID},
		"redirect_uri":  {cfg.RedirectURL},
		"response_type": {"code"},
		"state":         {state},
	}
	if scope != "" {
		params.Set("scope", scope)
	}
	return cfg.AuthURL + "?" + params.Encode()
}

// exchangeToken posts the authorization code to the token endpoint.
func exchangeToken(ctx context.Context, cfg Config, code string) (*tokenResponse, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {cfg.ClientID},
		"client_secret": {cfg.ClientSecret},
		"redirect_uri":  {cfg.RedirectURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := doRead(cfg.client(), req)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	return &tok, nil
}

// fetchJSON gets the user-info endpoint with a bearer token and decodes the
// response into out.
func fetchJSON(ctx context.Context, cfg Config, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.UserInfoURL, nil)
	if err != nil {
		return fmt.Errorf("creating user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	body, err := doRead(cfg.client(), req)
	if err != nil {
		return fmt.Errorf("user info fetch: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing user info response: %w", err)
	}

	return nil
}

func doRead(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
