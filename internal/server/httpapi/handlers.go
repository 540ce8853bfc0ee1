package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jaeha-dev/inklings/internal/common"
	"github.com/jaeha-dev/inklings/internal/server/config"
	"github.com/jaeha-dev/inklings/internal/server/identity"
	"github.com/jaeha-dev/inklings/internal/server/oauth"
	"github.com/jaeha-dev/inklings/internal/server/oauthlinks"
	"github.com/jaeha-dev/inklings/internal/server/users"
)

// userResponse is the public shape of a user.
type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newUserResponse(u *users.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// sessionResponse is the login/refresh response body. Token fields are
// omitted when tokens travel in cookies only.
type sessionResponse struct {
	User         *userResponse `json:"user,omitempty"`
	AccessToken  string        `json:"access_token,omitempty"`
	RefreshToken string        `json:"refresh_token,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError translates taxonomy sentinels into HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
	case errors.Is(err, common.ErrRefreshTokenExpired):
		writeError(w, http.StatusUnauthorized, "refresh token expired")
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrConflict):
		writeError(w, http.StatusConflict, "conflict")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// deliverTokens writes tokens according to the configured transport:
// cookies, response body, or both.
func (s *Server) deliverTokens(w http.ResponseWriter, resp *sessionResponse, accessToken, refreshToken string) {
	if s.cfg.TokenTransport != config.TransportBearer {
		s.setTokenCookies(w, accessToken, refreshToken)
	}
	if s.cfg.TokenTransport != config.TransportCookie {
		resp.AccessToken = accessToken
		resp.RefreshToken = refreshToken
	}
}

type loginRequest struct {
	Provider       string `json:"provider"`
	ProviderUserID string `json:"provider_user_id"`
	Email          string `json:"email"`
	Username       string `json:"username"`
}

// handleLogin accepts a provider-verified identity assertion directly. It
// backs first-party clients that run the OAuth dance themselves; browser
// clients use the callback route instead.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	provider, err := oauthlinks.ParseProvider(req.Provider)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if req.ProviderUserID == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "provider_user_id and email are required")
		return
	}

	s.completeLogin(w, r, identity.Assertion{
		Provider:       provider,
		ProviderUserID: req.ProviderUserID,
		Email:          req.Email,
		Username:       req.Username,
	})
}

// completeLogin is shared by the direct login and OAuth callback routes.
func (s *Server) completeLogin(w http.ResponseWriter, r *http.Request, assertion identity.Assertion) {
	result, err := s.sessions.Login(r.Context(), assertion)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	user := newUserResponse(result.User)
	resp := sessionResponse{User: &user}
	s.deliverTokens(w, &resp, result.AccessToken, result.RefreshToken)
	writeJSON(w, http.StatusOK, resp)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refreshTokenFromRequest reads the refresh secret from the cookie first,
// then from the request body.
func refreshTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		return req.RefreshToken
	}
	return ""
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	rawRefresh := refreshTokenFromRequest(r)
	if rawRefresh == "" {
		writeError(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	pair, err := s.sessions.Refresh(r.Context(), rawRefresh)
	if err != nil {
		s.clearTokenCookies(w)
		writeServiceError(w, err)
		return
	}

	resp := sessionResponse{}
	s.deliverTokens(w, &resp, pair.AccessToken, pair.RefreshToken)
	writeJSON(w, http.StatusOK, resp)
}

// handleLogout revokes the presented refresh session and clears cookies.
// An absent or already-revoked secret still yields success, so a client can
// always reach a logged-out state.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if rawRefresh := refreshTokenFromRequest(r); rawRefresh != "" {
		if err := s.sessions.Logout(r.Context(), rawRefresh); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	s.clearTokenCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := s.sessions.LogoutAll(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}

	s.clearTokenCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out everywhere"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	user, err := s.sessions.CurrentUser(r.Context(), userID)
	if err != nil {
		// The subject came from a valid token; a missing row means the
		// account is gone, not that the request was malformed.
		if errors.Is(err, common.ErrorNotFound) {
			writeError(w, http.StatusUnauthorized, "account no longer exists")
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := s.sessions.DeleteAccount(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}

	s.clearTokenCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleLoginURL returns the provider's authorization URL together with the
// anti-forgery state embedded in it. Clients must verify the state round-trips
// through the callback.
func (s *Server) handleLoginURL(w http.ResponseWriter, r *http.Request) {
	provider, ok := s.providerFromURL(w, r)
	if !ok {
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" {
		var err error
		state, err = common.MakeRandHexString(16)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"url":   provider.LoginURL(state),
		"state": state,
	})
}

// handleCallback finishes the authorization-code flow: the code is exchanged
// with the provider and the resulting assertion logged in.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	provider, ok := s.providerFromURL(w, r)
	if !ok {
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	assertion, err := provider.ExchangeCode(r.Context(), code)
	if err != nil {
		s.logger.Warn(r.Context(), "code exchange failed",
			"provider", chi.URLParam(r, "provider"), "error", err.Error())
		writeError(w, http.StatusUnauthorized, "code exchange failed")
		return
	}

	s.completeLogin(w, r, assertion)
}

func (s *Server) providerFromURL(w http.ResponseWriter, r *http.Request) (oauth.Provider, bool) {
	name, err := oauthlinks.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}

	provider, ok := s.providers[name]
	if !ok {
		writeError(w, http.StatusNotFound, "provider not configured")
		return nil, false
	}
	return provider, true
}
