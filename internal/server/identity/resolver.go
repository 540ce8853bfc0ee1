// Package identity maps OAuth provider assertions to canonical users,
// creating or linking accounts as needed.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jaeha-dev/inklings/internal/common"
	"github.com/jaeha-dev/inklings/internal/logging"
	"github.com/jaeha-dev/inklings/internal/server/oauthlinks"
	"github.com/jaeha-dev/inklings/internal/server/users"
)

// Assertion is a verified statement from an OAuth provider about who the
// caller is. How it was obtained (code exchange, id-token validation) is the
// transport layer's business.
type Assertion struct {
	Provider       oauthlinks.Provider
	ProviderUserID string
	Email          string
	Username       string
}

// Resolver resolves assertions to users. Resolution is evaluated in strict
// order, first match wins:
//
//  1. an existing link for (provider, provider_user_id) returns its owner
//     unchanged; the incoming email/username are not re-synced;
//  2. an existing user under the asserted email gets a new link attached
//     (cross-provider linking under a shared email);
//  3. otherwise a new user plus link are created.
//
// The steps are not one serializable transaction; two first-logins racing on
// a fresh email are arbitrated by the unique constraints, and the loser
// surfaces common.ErrConflict. Retrying re-runs resolution and finds the
// winner's row.
type Resolver struct {
	users  users.Repository
	links  oauthlinks.Repository
	logger logging.Logger
}

func NewResolver(userRepo users.Repository, linkRepo oauthlinks.Repository, logger logging.Logger) *Resolver {
	return &Resolver{users: userRepo, links: linkRepo, logger: logger}
}

// Resolve returns the canonical user for the assertion.
func (r *Resolver) Resolve(ctx context.Context, a Assertion) (*users.User, error) {

	if _, err := oauthlinks.ParseProvider(string(a.Provider)); err != nil {
		return nil, err
	}

	link, err := r.links.FindByProviderUserID(ctx, a.Provider, a.ProviderUserID)
	if err == nil {
		user, err := r.users.GetByID(ctx, link.UserID)
		if err != nil {
			// Cascade delete makes orphan links impossible; anything here
			// is a storage fault.
			return nil, fmt.Errorf("loading link owner: %w", err)
		}

		r.logger.Info(ctx, "existing user logged in",
			"user_id", user.ID, "provider", string(a.Provider))
		return user, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("finding oauth link: %w", err)
	}

	user, err := r.users.GetByEmail(ctx, a.Email)
	switch {
	case err == nil:
		// Same email, different provider: attach a link to the existing
		// account instead of creating a duplicate.
		if _, err := r.attachLink(ctx, user.ID, a); err != nil {
			return nil, err
		}

		r.logger.Info(ctx, "linked provider to existing user",
			"user_id", user.ID, "provider", string(a.Provider))
		return user, nil

	case errors.Is(err, common.ErrorNotFound):
		return r.createUser(ctx, a)

	default:
		return nil, fmt.Errorf("finding user by email: %w", err)
	}
}

func (r *Resolver) attachLink(ctx context.Context, userID string, a Assertion) (*oauthlinks.Link, error) {
	link, err := r.links.Create(ctx, &oauthlinks.Link{
		UserID:         userID,
		Provider:       a.Provider,
		ProviderUserID: a.ProviderUserID,
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("creating oauth link: %w", err)
	}
	return link, nil
}

func (r *Resolver) createUser(ctx context.Context, a Assertion) (*users.User, error) {
	user, err := r.users.Create(ctx, &users.User{
		Username: a.Username,
		Email:    a.Email,
		// No password: the account exists only through its OAuth links.
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			// Lost the race against a concurrent first login.
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	if _, err := r.attachLink(ctx, user.ID, a); err != nil {
		return nil, err
	}

	r.logger.Info(ctx, "new user created",
		"user_id", user.ID, "email", a.Email, "provider", string(a.Provider))
	return user, nil
}
