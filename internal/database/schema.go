package database

import (
	"context"
	"log/slog"

	"github.com/surrealdb/surrealdb.go"
)

// Schema defines the tables the stores rely on. Every statement is
// idempotent so it can be applied on each deploy.
const Schema = `
DEFINE TABLE IF NOT EXISTS user SCHEMAFULL;
DEFINE FIELD IF NOT EXISTS full_name ON user TYPE string;
DEFINE FIELD IF NOT EXISTS email ON user TYPE string;
DEFINE FIELD IF NOT EXISTS password ON user TYPE string;
DEFINE FIELD IF NOT EXISTS profile_pic ON user TYPE string DEFAULT '';
DEFINE FIELD IF NOT EXISTS created_at ON user TYPE datetime DEFAULT time::now();
DEFINE FIELD IF NOT EXISTS updated_at ON user TYPE datetime DEFAULT time::now();
DEFINE INDEX IF NOT EXISTS user_email ON user FIELDS email UNIQUE;

DEFINE TABLE IF NOT EXISTS message SCHEMAFULL;
DEFINE FIELD IF NOT EXISTS sender_id ON message TYPE record<user>;
DEFINE FIELD IF NOT EXISTS receiver_id ON message TYPE record<user>;
DEFINE FIELD IF NOT EXISTS text ON message TYPE option<string>;
DEFINE FIELD IF NOT EXISTS image_url ON message TYPE option<string>;
DEFINE FIELD IF NOT EXISTS created_at ON message TYPE datetime DEFAULT time::now();
DEFINE INDEX IF NOT EXISTS message_pair ON message FIELDS sender_id, receiver_id;
`

// ApplySchema runs Schema against the connected database.
func ApplySchema(ctx context.Context, conn *Connection) error {
	err := conn.Write(ctx, func(ctx context.Context, db *surrealdb.DB) error {
		return Execute(ctx, db, Schema, nil)
	})
	if err != nil {
		return WrapError(err, "apply schema")
	}
	slog.InfoContext(ctx, "Database schema applied", "event", "db_schema_applied")
	return nil
}
