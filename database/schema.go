package database

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tree_nodes (
		id UUID PRIMARY KEY,
		tree_type TEXT NOT NULL,
		name TEXT NOT NULL,
		sort_index INTEGER NOT NULL DEFAULT 0,
		is_parent BOOLEAN NOT NULL DEFAULT FALSE,
		parent_id UUID REFERENCES tree_nodes (id) ON DELETE CASCADE,
		css TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS tree_nodes_type_parent_idx ON tree_nodes (tree_type, parent_id)`,
	`CREATE INDEX IF NOT EXISTS tree_nodes_name_idx ON tree_nodes (name)`,
	`CREATE TABLE IF NOT EXISTS roles (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		valid BOOLEAN NOT NULL DEFAULT TRUE,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS groups (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		valid BOOLEAN NOT NULL DEFAULT TRUE,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		login_name TEXT NOT NULL UNIQUE,
		user_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		valid BOOLEAN NOT NULL DEFAULT TRUE,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		role_id UUID NOT NULL REFERENCES roles (id) ON DELETE CASCADE,
		PRIMARY KEY (user_id, role_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_groups (
		user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		group_id UUID NOT NULL REFERENCES groups (id) ON DELETE CASCADE,
		PRIMARY KEY (user_id, group_id)
	)`,
}

// Migrate creates the tables when they do not exist yet.
func (r *Runner) Migrate(ctx context.Context) error {
	return r.InTx(ctx, func(tx *Runner) error {
		for i, stmt := range schema {
			if _, err := tx.Update(ctx, stmt); err != nil {
				return fmt.Errorf("schema statement %d: %w", i, err)
			}
		}
		return nil
	})
}
