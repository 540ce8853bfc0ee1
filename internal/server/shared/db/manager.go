// Package db wires repository implementations to a database connection and
// owns schema migrations.
package db

import (
	"context"
	"database/sql"

	"github.com/jaeha-dev/inklings/internal/server/oauthlinks"
	"github.com/jaeha-dev/inklings/internal/server/refreshsessions"
	"github.com/jaeha-dev/inklings/internal/server/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Close() error
	Users() users.Repository
	OAuthLinks() oauthlinks.Repository
	RefreshSessions() refreshsessions.Repository
}
