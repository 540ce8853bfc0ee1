package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jaeha-dev/inklings/internal/common"
	"github.com/jaeha-dev/inklings/internal/server/metrics"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

// UserIDFromContext returns the authenticated user id set by Authenticator.
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", common.ErrorUnauthorized
	}
	return userID, nil
}

// extractAccessToken pulls the access token from the Authorization header,
// falling back to the access_token cookie. Clients may use either transport
// regardless of how tokens were delivered.
func extractAccessToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, found := strings.CutPrefix(header, "Bearer "); found {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// Authenticator guards routes that require a valid access token. On success
// the token subject is placed into the request context.
func (s *Server) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractAccessToken(r)
		if token == "" {
			s.recorder.RecordVerification(metrics.ResultInvalid)
			writeError(w, http.StatusUnauthorized, "missing access token")
			return
		}

		claims, err := s.issuer.Verify(token)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				s.recorder.RecordVerification(metrics.ResultExpired)
				writeError(w, http.StatusUnauthorized, "access token expired")
				return
			}
			s.recorder.RecordVerification(metrics.ResultInvalid)
			writeError(w, http.StatusUnauthorized, "invalid access token")
			return
		}

		s.recorder.RecordVerification(metrics.ResultOK)
		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs one line per request with method, path, status and
// elapsed time.
func (s *Server) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info(r.Context(), "request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}
