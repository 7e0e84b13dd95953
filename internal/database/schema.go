package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// schemaStatements are applied in order; every statement is idempotent.
var schemaStatements = []struct {
	name  string
	query string
}{
	{"images", `
	CREATE TABLE IF NOT EXISTS images (
		id UUID PRIMARY KEY,
		content_type VARCHAR(100) NOT NULL,
		object_key VARCHAR(500) NOT NULL UNIQUE,
		size_bytes BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`},
	{"users", `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(255) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		password_hashed VARCHAR(255) NOT NULL,
		image_id UUID REFERENCES images(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`},
	{"listings", `
	CREATE TABLE IF NOT EXISTS listings (
		id BIGSERIAL PRIMARY KEY,
		owner_id BIGINT NOT NULL REFERENCES users(id),
		title VARCHAR(255) NOT NULL,
		content TEXT NOT NULL,
		phone VARCHAR(20) NOT NULL,
		site VARCHAR(500) NOT NULL,
		open_time VARCHAR(20),
		close_time VARCHAR(20),
		delivery VARCHAR(3) NOT NULL DEFAULT 'Não' CHECK (delivery IN ('Sim', 'Não')),
		latitude VARCHAR(32) NOT NULL CHECK (latitude LIKE '-%'),
		longitude VARCHAR(32) NOT NULL CHECK (longitude LIKE '-%'),
		keywords TEXT,
		image_id UUID REFERENCES images(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`},
	{"listings_owner_idx", `
	CREATE INDEX IF NOT EXISTS listings_owner_updated_idx ON listings (owner_id, updated_at DESC)`},
}

// EnsureSchema creates the tables the service needs if they do not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB, log *zap.Logger) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt.query); err != nil {
			return fmt.Errorf("create %s: %w", stmt.name, err)
		}
		log.Debug("schema statement applied", zap.String("name", stmt.name))
	}
	log.Info("database schema ready")
	return nil
}
