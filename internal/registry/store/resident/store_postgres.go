package resident

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ecollect/internal/registry/models"
	"ecollect/pkg/platform/sentinel"
)

// PostgresStore persists residents in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed resident store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, r *models.Resident) error {
	query := `
		INSERT INTO residents (id, municipality_id, given_name, family_name, birth_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query, r.ID, r.MunicipalityID, r.GivenName, r.FamilyName, r.BirthDate, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("create resident: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Resident, error) {
	query := `
		SELECT id, municipality_id, given_name, family_name, birth_date, created_at
		FROM residents
		WHERE id = $1
	`
	return scanResident(s.db.QueryRowContext(ctx, query, id))
}

// Match looks for a resident of the municipality with case-insensitive name
// equality and an exact birth date. Returns nil without error on no match;
// absence is an ordinary outcome during eligibility checks, not a fault.
func (s *PostgresStore) Match(ctx context.Context, municipalityID uuid.UUID, givenName, familyName, birthDate string) (*models.Resident, error) {
	query := `
		SELECT id, municipality_id, given_name, family_name, birth_date, created_at
		FROM residents
		WHERE municipality_id = $1
		  AND LOWER(given_name) = LOWER($2)
		  AND LOWER(family_name) = LOWER($3)
		  AND birth_date = $4
	`
	resident, err := scanResident(s.db.QueryRowContext(ctx, query, municipalityID, givenName, familyName, birthDate))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	return resident, err
}

func (s *PostgresStore) ListByMunicipality(ctx context.Context, municipalityID uuid.UUID) ([]*models.Resident, error) {
	query := `
		SELECT id, municipality_id, given_name, family_name, birth_date, created_at
		FROM residents
		WHERE municipality_id = $1
		ORDER BY family_name, given_name
	`
	rows, err := s.db.QueryContext(ctx, query, municipalityID)
	if err != nil {
		return nil, fmt.Errorf("list residents: %w", err)
	}
	defer rows.Close()

	var out []*models.Resident
	for rows.Next() {
		resident, err := scanResidentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, resident)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM residents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete resident: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete resident rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanResident(row *sql.Row) (*models.Resident, error) {
	var r models.Resident
	var birthDate time.Time
	err := row.Scan(&r.ID, &r.MunicipalityID, &r.GivenName, &r.FamilyName, &birthDate, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan resident: %w", err)
	}
	r.BirthDate = birthDate.Format("2006-01-02")
	return &r, nil
}

func scanResidentRows(rows *sql.Rows) (*models.Resident, error) {
	var r models.Resident
	var birthDate time.Time
	if err := rows.Scan(&r.ID, &r.MunicipalityID, &r.GivenName, &r.FamilyName, &birthDate, &r.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan resident: %w", err)
	}
	r.BirthDate = birthDate.Format("2006-01-02")
	return &r, nil
}
