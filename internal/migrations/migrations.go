package migrations

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Run creates the schema used by the SQLite catalog backend.
func Run(ctx context.Context, db *sqlx.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS medicines (
            id TEXT PRIMARY KEY,
            position INTEGER NOT NULL,
            name TEXT NOT NULL,
            category TEXT NOT NULL,
            price REAL NOT NULL,
            stock INTEGER NOT NULL CHECK (stock >= 0),
            image TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_medicines_position ON medicines(position);`,
		`CREATE TABLE IF NOT EXISTS catalog_state (
            id INTEGER PRIMARY KEY CHECK (id = 1),
            saved_at INTEGER NOT NULL
        );`,
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
