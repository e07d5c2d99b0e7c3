package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"meddispense/m/domain"
)

// SQLGateway stores one row per medicine. The position column keeps catalog order,
// and the single catalog_state row records that a save has happened.
type SQLGateway struct {
	db *sqlx.DB
}

// NewSQLGateway expects the schema from migrations.Run to be in place.
func NewSQLGateway(db *sqlx.DB) *SQLGateway {
	return &SQLGateway{db: db}
}

type medicineRow struct {
	domain.Medicine
	Position int `db:"position"`
}

func (g *SQLGateway) Load(ctx context.Context) ([]domain.Medicine, error) {
	var saves int
	if err := g.db.GetContext(ctx, &saves, `SELECT COUNT(*) FROM catalog_state`); err != nil {
		return nil, fmt.Errorf("load catalog state: %w", err)
	}
	if saves == 0 {
		return nil, ErrNotExist
	}

	catalog := []domain.Medicine{}
	if err := g.db.SelectContext(ctx, &catalog, `SELECT id, name, category, price, stock, image FROM medicines ORDER BY position ASC`); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return catalog, nil
}

// Save replaces every row inside one transaction.
func (g *SQLGateway) Save(ctx context.Context, catalog []domain.Medicine) error {
	tx, err := g.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM medicines`); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO medicines (id, position, name, category, price, stock, image)
                VALUES (:id, :position, :name, :category, :price, :stock, :image)`)
	if err != nil {
		return fmt.Errorf("prepare catalog insert: %w", err)
	}
	defer stmt.Close()

	for i, med := range catalog {
		if _, err := stmt.ExecContext(ctx, medicineRow{Medicine: med, Position: i}); err != nil {
			return fmt.Errorf("insert medicine %s: %w", med.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO catalog_state (id, saved_at) VALUES (1, ?)
                ON CONFLICT(id) DO UPDATE SET saved_at = excluded.saved_at`, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("mark catalog saved: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog save: %w", err)
	}
	return nil
}
