package address

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ecollect/pkg/platform/sentinel"
)

// PostgresDirectory reads the postal code directory from PostgreSQL.
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) FindByPostalCode(ctx context.Context, postalCode string) (*Place, error) {
	query := `
		SELECT town, canton, bfs_number
		FROM plz_directory
		WHERE postal_code = $1
	`
	var place Place
	err := d.db.QueryRowContext(ctx, query, postalCode).Scan(&place.Town, &place.Canton, &place.BFS)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find place by postal code: %w", err)
	}
	return &place, nil
}
