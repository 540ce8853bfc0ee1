package oauthlinks

import "context"

// Repository defines storage operations over OAuth links. Implementations
// must return common.ErrorNotFound for absent rows and common.ErrConflict
// when the (provider, provider_user_id) unique constraint rejects an insert.
type Repository interface {
	Create(ctx context.Context, link *Link) (*Link, error)
	FindByProviderUserID(ctx context.Context, provider Provider, providerUserID string) (*Link, error)
	FindByUserID(ctx context.Context, userID string) ([]*Link, error)
}
