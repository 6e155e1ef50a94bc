package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nfrund/chatline/internal/config"
	"github.com/surrealdb/surrealdb.go"
)

// NewDB opens a SurrealDB connection, signs in as the configured root user
// and selects the namespace and database.
func NewDB(ctx context.Context, cfg config.Provider) (*surrealdb.DB, error) {
	db, err := surrealdb.FromEndpointURLString(ctx, cfg.GetDBURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to surrealdb at %s: %w", redactDBURL(cfg.GetDBURL()), err)
	}

	authData := &surrealdb.Auth{
		Username: cfg.GetDBUser(),
		Password: cfg.GetDBPass(),
	}
	if _, err = db.SignIn(ctx, authData); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}

	if err = db.Use(ctx, cfg.GetDBNs(), cfg.GetDBDb()); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/db: %w", err)
	}

	slog.DebugContext(ctx, "Signed in to SurrealDB", "event", "db_signin", "namespace", cfg.GetDBNs(), "database", cfg.GetDBDb())
	return db, nil
}
