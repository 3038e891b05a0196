package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ecollect/internal/credential/models"
	"ecollect/pkg/platform/sentinel"
)

// PostgresStore persists credential records in PostgreSQL.
// A partial unique index on (resident_id, ballot_item_id) WHERE status='issued'
// backs the application-level duplicate check (see schema.sql).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed credential record store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, record *models.Record) error {
	query := `
		INSERT INTO credential_records (
			id, resident_id, ballot_item_id, status, nullifier, issuer_did,
			issued_date, valid_from, valid_until, remote_credential_id,
			management_id, offer_deeplink, last_error, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.ResidentID,
		record.BallotItemID,
		string(record.Status),
		record.Nullifier,
		record.IssuerDID,
		nullString(record.IssuedDate),
		nullTime(record.ValidFrom),
		nullTime(record.ValidUntil),
		nullString(record.RemoteCredentialID),
		nullString(record.ManagementID),
		nullString(record.OfferDeeplink),
		nullString(record.LastError),
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create credential record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Record, error) {
	query := selectRecord + ` WHERE id = $1`
	return scanRecord(s.db.QueryRowContext(ctx, query, id))
}

// FindActive returns the issued record for the pair, or nil when none exists.
func (s *PostgresStore) FindActive(ctx context.Context, residentID, ballotItemID uuid.UUID) (*models.Record, error) {
	query := selectRecord + `
		WHERE resident_id = $1 AND ballot_item_id = $2 AND status = $3
	`
	record, err := scanRecord(s.db.QueryRowContext(ctx, query, residentID, ballotItemID, string(models.StatusIssued)))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	return record, err
}

// PurgeNonIssued deletes every record for the pair whose status is not
// issued, so stale pending or error rows never block a fresh attempt.
func (s *PostgresStore) PurgeNonIssued(ctx context.Context, residentID, ballotItemID uuid.UUID) error {
	query := `
		DELETE FROM credential_records
		WHERE resident_id = $1 AND ballot_item_id = $2 AND status <> $3
	`
	_, err := s.db.ExecContext(ctx, query, residentID, ballotItemID, string(models.StatusIssued))
	if err != nil {
		return fmt.Errorf("purge non-issued credential records: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, patch models.Patch) (*models.Record, error) {
	query := `
		UPDATE credential_records SET
			status = COALESCE($2, status),
			issued_date = COALESCE($3, issued_date),
			remote_credential_id = COALESCE($4, remote_credential_id),
			management_id = COALESCE($5, management_id),
			offer_deeplink = COALESCE($6, offer_deeplink),
			last_error = COALESCE($7, last_error),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + recordColumns
	row := s.db.QueryRowContext(ctx, query,
		id,
		patchStatus(patch.Status),
		patch.IssuedDate,
		patch.RemoteCredentialID,
		patch.ManagementID,
		patch.OfferDeeplink,
		patch.LastError,
	)
	return scanRecord(row)
}

func (s *PostgresStore) ListByResident(ctx context.Context, residentID uuid.UUID) ([]*models.Record, error) {
	query := selectRecord + ` WHERE resident_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, residentID)
	if err != nil {
		return nil, fmt.Errorf("list credential records: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		record, err := scanRecordRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

const recordColumns = `id, resident_id, ballot_item_id, status, nullifier, issuer_did,
			issued_date, valid_from, valid_until, remote_credential_id,
			management_id, offer_deeplink, last_error, created_at, updated_at`

const selectRecord = `SELECT ` + recordColumns + ` FROM credential_records`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInto(scanner rowScanner) (*models.Record, error) {
	var r models.Record
	var status string
	var issuedDate sql.NullTime
	var validFrom, validUntil sql.NullTime
	var remoteID, managementID, deeplink, lastError sql.NullString
	err := scanner.Scan(
		&r.ID, &r.ResidentID, &r.BallotItemID, &status, &r.Nullifier, &r.IssuerDID,
		&issuedDate, &validFrom, &validUntil, &remoteID,
		&managementID, &deeplink, &lastError, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Status = models.Status(status)
	if issuedDate.Valid {
		r.IssuedDate = issuedDate.Time.Format("2006-01-02")
	}
	if validFrom.Valid {
		r.ValidFrom = validFrom.Time
	}
	if validUntil.Valid {
		r.ValidUntil = validUntil.Time
	}
	r.RemoteCredentialID = remoteID.String
	r.ManagementID = managementID.String
	r.OfferDeeplink = deeplink.String
	r.LastError = lastError.String
	return &r, nil
}

func scanRecord(row *sql.Row) (*models.Record, error) {
	record, err := scanInto(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan credential record: %w", err)
	}
	return record, nil
}

func scanRecordRows(rows *sql.Rows) (*models.Record, error) {
	record, err := scanInto(rows)
	if err != nil {
		return nil, fmt.Errorf("scan credential record: %w", err)
	}
	return record, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func patchStatus(status *models.Status) *string {
	if status == nil {
		return nil
	}
	s := string(*status)
	return &s
}
