package oauthlinks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jaeha-dev/inklings/internal/common"
	"github.com/jaeha-dev/inklings/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, link *Link) (*Link, error) {

	if link.ID == "" {
		link.ID = uuid.New().String()
	}

	query :=
		`INSERT INTO oauth_links (id, user_id, provider, provider_user_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		link.ID, link.UserID, string(link.Provider), link.ProviderUserID).
		Scan(&link.CreatedAt, &link.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return link, nil
}

func (r *PostgresRepository) FindByProviderUserID(ctx context.Context, provider Provider, providerUserID string) (*Link, error) {
	query :=
		`SELECT id, user_id, provider, provider_user_id, created_at, updated_at FROM oauth_links
		 WHERE provider = $1 AND provider_user_id = $2
		 `

	link := &Link{}
	err := r.db.QueryRowContext(ctx, query, string(provider), providerUserID).
		Scan(&link.ID, &link.UserID, &link.Provider, &link.ProviderUserID,
			&link.CreatedAt, &link.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return link, nil
}

func (r *PostgresRepository) FindByUserID(ctx context.Context, userID string) ([]*Link, error) {
	query :=
		`SELECT id, user_id, provider, provider_user_id, created_at, updated_at FROM oauth_links
		 WHERE user_id = $1
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var links []*Link
	for rows.Next() {
		link := &Link{}
		if err := rows.Scan(&link.ID, &link.UserID, &link.Provider, &link.ProviderUserID,
			&link.CreatedAt, &link.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return links, nil
}
