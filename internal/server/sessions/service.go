// Package sessions contains the session-lifecycle business logic: logging
// in through an OAuth assertion, rotating token pairs, and logging out one
// or all devices.
package sessions

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jaeha-dev/inklings/internal/common"
	"github.com/jaeha-dev/inklings/internal/dbx"
	"github.com/jaeha-dev/inklings/internal/logging"
	"github.com/jaeha-dev/inklings/internal/server/auth"
	"github.com/jaeha-dev/inklings/internal/server/identity"
	"github.com/jaeha-dev/inklings/internal/server/metrics"
	"github.com/jaeha-dev/inklings/internal/server/refreshsessions"
	"github.com/jaeha-dev/inklings/internal/server/users"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	User         *users.User
	AccessToken  string
	RefreshToken string
}

// Service orchestrates login, refresh, and logout flows by composing the
// identity resolver, the token issuer, and the refresh session store.
type Service struct {
	db       *sql.DB
	resolver *identity.Resolver
	issuer   *auth.Issuer
	store    *refreshsessions.Store
	users    users.Repository
	logger   logging.Logger
	recorder metrics.AuthRecorder
}

func NewService(
	db *sql.DB,
	resolver *identity.Resolver,
	issuer *auth.Issuer,
	store *refreshsessions.Store,
	userRepo users.Repository,
	logger logging.Logger,
	recorder metrics.AuthRecorder,
) *Service {
	return &Service{
		db:       db,
		resolver: resolver,
		issuer:   issuer,
		store:    store,
		users:    userRepo,
		logger:   logger,
		recorder: recorder,
	}
}

// Login resolves the assertion to a user and hands out a fresh token pair.
func (s *Service) Login(ctx context.Context, a identity.Assertion) (*LoginResult, error) {
	user, err := s.resolver.Resolve(ctx, a)
	if err != nil {
		return nil, s.mapError(ctx, "resolving identity", err)
	}

	accessToken, err := s.issuer.Mint(user.ID)
	if err != nil {
		return nil, s.mapError(ctx, "minting access token", err)
	}

	refreshToken, err := s.store.Issue(ctx, user.ID)
	if err != nil {
		return nil, s.mapError(ctx, "issuing refresh session", err)
	}

	s.recorder.RecordLogin(string(a.Provider))

	return &LoginResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh redeems a raw refresh secret and rotates it: a new access token
// is minted, a new refresh session issued, and the redeemed one revoked.
// Issue and revoke run inside one transaction, so a crash cannot leave the
// used secret alive alongside its replacement. A concurrent refresh of the
// same secret loses at redeem and reports the secret as unknown, which is
// the intended reuse detection.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (*TokenPair, error) {
	userID, err := s.store.Redeem(ctx, rawRefresh)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			s.recorder.RecordRefresh(metrics.ResultInvalid)
		case errors.Is(err, common.ErrRefreshTokenExpired):
			s.recorder.RecordRefresh(metrics.ResultExpired)
		}
		return nil, s.mapError(ctx, "redeeming refresh token", err)
	}

	accessToken, err := s.issuer.Mint(userID)
	if err != nil {
		return nil, s.mapError(ctx, "minting access token", err)
	}

	var newRefresh string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		txStore := s.store.WithTx(tx)

		var issueErr error
		newRefresh, issueErr = txStore.Issue(ctx, userID)
		if issueErr != nil {
			return issueErr
		}
		return txStore.Revoke(ctx, rawRefresh)
	})
	if err != nil {
		return nil, s.mapError(ctx, "rotating refresh session", err)
	}

	s.recorder.RecordRefresh(metrics.ResultOK)

	return &TokenPair{AccessToken: accessToken, RefreshToken: newRefresh}, nil
}

// Logout revokes a single refresh session. Revoking an unknown or already
// revoked secret succeeds: logout is idempotent by design.
func (s *Service) Logout(ctx context.Context, rawRefresh string) error {
	if err := s.store.Revoke(ctx, rawRefresh); err != nil {
		return s.mapError(ctx, "revoking refresh session", err)
	}
	return nil
}

// LogoutAll revokes every refresh session owned by userID. Caller
// authentication is enforced upstream by the auth gate.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	n, err := s.store.RevokeAll(ctx, userID)
	if err != nil {
		return s.mapError(ctx, "revoking all refresh sessions", err)
	}

	s.logger.Info(ctx, "logged out all devices", "user_id", userID, "sessions", n)
	return nil
}

// CurrentUser loads the user behind an authenticated subject id.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*users.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, s.mapError(ctx, "loading current user", err)
	}
	return user, nil
}

// DeleteAccount removes the user row; OAuth links and refresh sessions are
// cascade-deleted with it.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return s.mapError(ctx, "deleting account", err)
	}

	s.logger.Info(ctx, "account deleted", "user_id", userID)
	return nil
}

// mapError folds storage faults into the opaque internal error while letting
// taxonomy sentinels pass through untouched. Callers never see SQL detail.
func (s *Service) mapError(ctx context.Context, op string, err error) error {
	for _, sentinel := range []error{
		common.ErrorNotFound,
		common.ErrRefreshTokenExpired,
		common.ErrConflict,
		common.ErrorValidation,
		common.ErrNoSecretKey,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}

	s.logger.Error(ctx, "persistence failure", "op", op, "error", err.Error())
	return common.ErrorInternal
}
