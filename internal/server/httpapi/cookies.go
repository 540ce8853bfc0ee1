package httpapi

import (
	"net/http"
	"time"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// cookieSettings derives the attribute set from the environment: production
// runs cross-site behind HTTPS (Secure + SameSite=None), development stays
// on Lax so plain-HTTP testing works.
func (s *Server) cookieSettings() (secure bool, sameSite http.SameSite) {
	if s.cfg.IsProduction() {
		return true, http.SameSiteNoneMode
	}
	return false, http.SameSiteLaxMode
}

func (s *Server) buildTokenCookie(name, value string, maxAge time.Duration) *http.Cookie {
	secure, sameSite := s.cookieSettings()
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	}
}

// setTokenCookies delivers a token pair as HTTP-only cookies.
func (s *Server) setTokenCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, s.buildTokenCookie(accessTokenCookie, accessToken, s.cfg.AccessTokenValidityDuration))
	http.SetCookie(w, s.buildTokenCookie(refreshTokenCookie, refreshToken, s.cfg.RefreshTokenValidityDuration))
}

// clearTokenCookies expires both token cookies on the client.
func (s *Server) clearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		cookie := s.buildTokenCookie(name, "", 0)
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}
