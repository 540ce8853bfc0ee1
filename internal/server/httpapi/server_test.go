package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaeha-dev/inklings/internal/common"
	"github.com/jaeha-dev/inklings/internal/dbx"
	"github.com/jaeha-dev/inklings/internal/logging"
	"github.com/jaeha-dev/inklings/internal/server/auth"
	"github.com/jaeha-dev/inklings/internal/server/config"
	"github.com/jaeha-dev/inklings/internal/server/identity"
	"github.com/jaeha-dev/inklings/internal/server/metrics"
	"github.com/jaeha-dev/inklings/internal/server/oauth"
	"github.com/jaeha-dev/inklings/internal/server/oauthlinks"
	"github.com/jaeha-dev/inklings/internal/server/refreshsessions"
	"github.com/jaeha-dev/inklings/internal/server/sessions"
	"github.com/jaeha-dev/inklings/internal/server/users"
)

// --- fakes ---

type fakeUserRepo struct {
	byID   map[string]*users.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[string]*users.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, u *users.User) (*users.User, error) {
	for _, existing := range f.byID {
		if existing.Email == u.Email || existing.Username == u.Username {
			return nil, common.ErrConflict
		}
	}
	f.nextID++
	cp := *u
	cp.ID = fmt.Sprintf("u%d", f.nextID)
	f.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	delete(f.byID, id)
	return nil
}

type fakeLinkRepo struct {
	links  []*oauthlinks.Link
	nextID int
}

func (f *fakeLinkRepo) Create(ctx context.Context, l *oauthlinks.Link) (*oauthlinks.Link, error) {
	for _, existing := range f.links {
		if existing.Provider == l.Provider && existing.ProviderUserID == l.ProviderUserID {
			return nil, common.ErrConflict
		}
	}
	f.nextID++
	cp := *l
	cp.ID = fmt.Sprintf("l%d", f.nextID)
	f.links = append(f.links, &cp)
	out := cp
	return &out, nil
}

func (f *fakeLinkRepo) FindByProviderUserID(ctx context.Context, p oauthlinks.Provider, puid string) (*oauthlinks.Link, error) {
	for _, l := range f.links {
		if l.Provider == p && l.ProviderUserID == puid {
			cp := *l
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeLinkRepo) FindByUserID(ctx context.Context, userID string) ([]*oauthlinks.Link, error) {
	return nil, nil
}

type fakeSessionRepo struct {
	sessions map[string]*refreshsessions.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*refreshsessions.Session)}
}

func (f *fakeSessionRepo) Create(ctx context.Context, s *refreshsessions.Session) error {
	cp := *s
	f.sessions[s.TokenHash] = &cp
	return nil
}

func (f *fakeSessionRepo) FindByHash(ctx context.Context, hash string) (*refreshsessions.Session, error) {
	s, ok := f.sessions[hash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionRepo) DeleteByHash(ctx context.Context, hash string) error {
	delete(f.sessions, hash)
	return nil
}

func (f *fakeSessionRepo) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	var n int64
	for hash, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, hash)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessionRepo) DeleteExpired(ctx context.Context) (int64, error) { return 0, nil }

func (f *fakeSessionRepo) WithTx(tx dbx.DBTX) refreshsessions.Repository { return f }

type stubProvider struct {
	assertion   identity.Assertion
	exchangeErr error
}

func (p *stubProvider) LoginURL(state string) string {
	return "https://provider.test/authorize?state=" + state
}

func (p *stubProvider) ExchangeCode(ctx context.Context, code string) (identity.Assertion, error) {
	if p.exchangeErr != nil {
		return identity.Assertion{}, p.exchangeErr
	}
	return p.assertion, nil
}

// --- helpers ---

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type env struct {
	server *Server
	google *stubProvider
	users  *fakeUserRepo
	issuer *auth.Issuer
	mock   sqlmock.Sqlmock
	db     *sql.DB
}

func newTestEnv(t *testing.T, mutate func(cfg *config.Config)) *env {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.RateLimitRPS = 100
	cfg.RateLimitBurst = 100
	if mutate != nil {
		mutate(cfg)
	}

	userRepo := newFakeUserRepo()
	linkRepo := &fakeLinkRepo{}
	sessionRepo := newFakeSessionRepo()
	logger := testLogger()

	issuer := auth.NewIssuer([]byte("test-secret"), cfg.AccessTokenValidityDuration)
	store := refreshsessions.NewStore(sessionRepo, cfg.RefreshTokenValidityDuration)
	resolver := identity.NewResolver(userRepo, linkRepo, logger)
	svc := sessions.NewService(db, resolver, issuer, store, userRepo, logger, metrics.Noop{})

	google := &stubProvider{assertion: identity.Assertion{
		Provider:       oauthlinks.ProviderGoogle,
		ProviderUserID: "g1",
		Email:          "a@x.com",
		Username:       "alice",
	}}
	providers := map[oauthlinks.Provider]oauth.Provider{
		oauthlinks.ProviderGoogle: google,
	}

	server := NewServer(cfg, svc, issuer, providers, logger, metrics.Noop{}, nil)
	t.Cleanup(server.limiter.Stop)

	return &env{
		server: server,
		google: google,
		users:  userRepo,
		issuer: issuer,
		mock:   mock,
		db:     db,
	}
}

func (e *env) do(method, target string, body any, decorate func(r *http.Request)) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		encoded, _ := json.Marshal(body)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, target, reader)
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func loginBody() map[string]string {
	return map[string]string{
		"provider":         "google",
		"provider_user_id": "g1",
		"email":            "a@x.com",
		"username":         "alice",
	}
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) sessionResponse {
	t.Helper()
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- tests ---

func TestLoginDeliversTokensAndCookies(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(http.MethodPost, "/api/auth/login", loginBody(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSession(t, rec)
	require.NotNil(t, resp.User)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, "a@x.com", resp.User.Email)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	access := cookieByName(rec, accessTokenCookie)
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)
	assert.Equal(t, "/", access.Path)
	assert.False(t, access.Secure)
	assert.Equal(t, http.SameSiteLaxMode, access.SameSite)
	require.NotNil(t, cookieByName(rec, refreshTokenCookie))

	claims, err := e.issuer.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
}

func TestLoginCookieTransportOmitsBodyTokens(t *testing.T) {
	e := newTestEnv(t, func(cfg *config.Config) { cfg.TokenTransport = config.TransportCookie })

	rec := e.do(http.MethodPost, "/api/auth/login", loginBody(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSession(t, rec)
	assert.Empty(t, resp.AccessToken)
	assert.Empty(t, resp.RefreshToken)
	assert.NotNil(t, cookieByName(rec, accessTokenCookie))
}

func TestLoginBearerTransportSetsNoCookies(t *testing.T) {
	e := newTestEnv(t, func(cfg *config.Config) { cfg.TokenTransport = config.TransportBearer })

	rec := e.do(http.MethodPost, "/api/auth/login", loginBody(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSession(t, rec)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLoginProductionCookieAttributes(t *testing.T) {
	e := newTestEnv(t, func(cfg *config.Config) { cfg.Env = "production" })

	rec := e.do(http.MethodPost, "/api/auth/login", loginBody(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	access := cookieByName(rec, accessTokenCookie)
	require.NotNil(t, access)
	assert.True(t, access.Secure)
	assert.Equal(t, http.SameSiteNoneMode, access.SameSite)
}

func TestLoginRejectsUnknownProvider(t *testing.T) {
	e := newTestEnv(t, nil)

	body := loginBody()
	body["provider"] = "github"
	rec := e.do(http.MethodPost, "/api/auth/login", body, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginRejectsMissingFields(t *testing.T) {
	e := newTestEnv(t, nil)

	body := loginBody()
	body["email"] = ""
	rec := e.do(http.MethodPost, "/api/auth/login", body, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshRotatesViaCookie(t *testing.T) {
	e := newTestEnv(t, nil)

	login := e.do(http.MethodPost, "/api/auth/login", loginBody(), nil)
	require.Equal(t, http.StatusOK, login.Code)
	oldRefresh := decodeSession(t, login).RefreshToken

	e.mock.ExpectBegin()
	e.mock.ExpectCommit()

	rec := e.do(http.MethodPost, "/api/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: oldRefresh})
	})

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSession(t, rec)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotEqual(t, oldRefresh, resp.RefreshToken)
	require.NoError(t, e.mock.ExpectationsWereMet())

	// The redeemed secret is gone; replaying it is rejected.
	replay := e.do(http.MethodPost, "/api/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: oldRefresh})
	})
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
}

func TestRefreshAcceptsBodyToken(t *testing.T) {
	e := newTestEnv(t, func(cfg *config.Config) { cfg.TokenTransport = config.TransportBearer })

	login := e.do(http.MethodPost, "/api/auth/login", loginBody(), nil)
	require.Equal(t, http.StatusOK, login.Code)
	refresh := decodeSession(t, login).RefreshToken

	e.mock.ExpectBegin()
	e.mock.ExpectCommit()

	rec := e.do(http.MethodPost, "/api/auth/refresh", map[string]string{"refresh_token": refresh}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeSession(t, rec).AccessToken)
}

func TestRefreshWithoutTokenIsUnauthorized(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(http.MethodPost, "/api/auth/refresh", nil, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshUnknownTokenClearsCookies(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(http.MethodPost, "/api/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: "nonsense"})
	})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	access := cookieByName(rec, accessTokenCookie)
	require.NotNil(t, access)
	assert.Equal(t, -1, access.MaxAge)
}

func TestLogoutIsIdempotent(t *testing.T) {
	e := newTestEnv(t, nil)

	login := e.do(http.MethodPost, "/api/auth/login", loginBody(), nil)
	refresh := decodeSession(t, login).RefreshToken

	first := e.do(http.MethodPost, "/api/auth/logout", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: refresh})
	})
	assert.Equal(t, http.StatusOK, first.Code)

	// Same secret again, and no secret at all: both still succeed.
	again := e.do(http.MethodPost, "/api/auth/logout", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: refresh})
	})
	assert.Equal(t, http.StatusOK, again.Code)

	bare := e.do(http.MethodPost, "/api/auth/logout", nil, nil)
	assert.Equal(t, http.StatusOK, bare.Code)
	access := cookieByName(bare, accessTokenCookie)
	require.NotNil(t, access)
	assert.Equal(t, -1, access.MaxAge)
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	e := newTestEnv(t, nil)

	first := decodeSession(t, e.do(http.MethodPost, "/api/auth/login", loginBody(), nil))
	second := decodeSession(t, e.do(http.MethodPost, "/api/auth/login", loginBody(), nil))

	rec := e.do(http.MethodDelete, "/api/auth/logout-all", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+second.AccessToken)
	})
	require.Equal(t, http.StatusOK, rec.Code)

	for _, refresh := range []string{first.RefreshToken, second.RefreshToken} {
		replay := e.do(http.MethodPost, "/api/auth/refresh", nil, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: refresh})
		})
		assert.Equal(t, http.StatusUnauthorized, replay.Code)
	}
}

func TestMeRequiresValidToken(t *testing.T) {
	e := newTestEnv(t, nil)

	login := decodeSession(t, e.do(http.MethodPost, "/api/auth/login", loginBody(), nil))

	// Bearer header.
	rec := e.do(http.MethodGet, "/api/auth/me", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+login.AccessToken)
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var me userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, login.User.ID, me.ID)

	// Cookie fallback.
	viaCookie := e.do(http.MethodGet, "/api/auth/me", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: login.AccessToken})
	})
	assert.Equal(t, http.StatusOK, viaCookie.Code)

	// No credentials.
	bare := e.do(http.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, bare.Code)

	// Garbage token.
	garbage := e.do(http.MethodGet, "/api/auth/me", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not-a-jwt")
	})
	assert.Equal(t, http.StatusUnauthorized, garbage.Code)
}

func TestMeRejectsExpiredToken(t *testing.T) {
	e := newTestEnv(t, nil)

	expired := auth.NewIssuer([]byte("test-secret"), -time.Minute)
	token, err := expired.Mint("u1")
	require.NoError(t, err)

	rec := e.do(http.MethodGet, "/api/auth/me", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired")
}

func TestDeleteAccountCascades(t *testing.T) {
	e := newTestEnv(t, nil)

	login := decodeSession(t, e.do(http.MethodPost, "/api/auth/login", loginBody(), nil))
	authorize := func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+login.AccessToken)
	}

	rec := e.do(http.MethodDelete, "/api/users/me", nil, authorize)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The token is still cryptographically valid but the account is gone.
	me := e.do(http.MethodGet, "/api/auth/me", nil, authorize)
	assert.Equal(t, http.StatusUnauthorized, me.Code)
}

func TestLoginURLReturnsStateAndURL(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(http.MethodGet, "/api/auth/google/login-url", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["state"])
	assert.Contains(t, resp["url"], "state="+resp["state"])

	// A caller-supplied state round-trips untouched.
	supplied := e.do(http.MethodGet, "/api/auth/google/login-url?state=abc123", nil, nil)
	require.Equal(t, http.StatusOK, supplied.Code)
	require.NoError(t, json.Unmarshal(supplied.Body.Bytes(), &resp))
	assert.Equal(t, "abc123", resp["state"])
}

func TestLoginURLUnknownProvider(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(http.MethodGet, "/api/auth/github/login-url", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Known name, but no credentials configured for it.
	unconfigured := e.do(http.MethodGet, "/api/auth/kakao/login-url", nil, nil)
	assert.Equal(t, http.StatusNotFound, unconfigured.Code)
}

func TestCallbackLogsIn(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(http.MethodGet, "/api/auth/google/callback?code=good&state=abc", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSession(t, rec)
	require.NotNil(t, resp.User)
	assert.Equal(t, "a@x.com", resp.User.Email)
	assert.NotNil(t, cookieByName(rec, accessTokenCookie))
}

func TestCallbackMissingCode(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(http.MethodGet, "/api/auth/google/callback", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackExchangeFailure(t *testing.T) {
	e := newTestEnv(t, nil)
	e.google.exchangeErr = errors.New("provider said no")

	rec := e.do(http.MethodGet, "/api/auth/google/callback?code=bad", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimitKicksIn(t *testing.T) {
	e := newTestEnv(t, func(cfg *config.Config) {
		cfg.RateLimitRPS = 1
		cfg.RateLimitBurst = 2
	})

	var last int
	for i := 0; i < 3; i++ {
		rec := e.do(http.MethodPost, "/api/auth/logout", nil, nil)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
