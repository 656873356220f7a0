package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"custodian/internal/resource/models"
	"custodian/pkg/domain"
	"custodian/pkg/platform/sentinel"
	"custodian/pkg/platform/tx"
)

// Postgres persists resource records in PostgreSQL. Fields are stored as
// JSONB so every kind shares one table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the context transaction when one is present, so callers can group
// metadata writes with their own bookkeeping atomically.
func (s *Postgres) q(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

// Schema creates the resources table. Applied at startup; safe to re-run.
const Schema = `
CREATE TABLE IF NOT EXISTS resources (
	tenant_id  TEXT        NOT NULL,
	id         UUID        NOT NULL,
	kind       TEXT        NOT NULL,
	fields     JSONB       NOT NULL DEFAULT '{}',
	blob_ref   TEXT,
	version    BIGINT      NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (tenant_id, id)
);
CREATE INDEX IF NOT EXISTS resources_blob_ref_idx ON resources (blob_ref) WHERE blob_ref IS NOT NULL;
`

// EnsureSchema applies the schema.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.q(ctx).ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure resources schema: %w", err)
	}
	return nil
}

func (s *Postgres) Put(ctx context.Context, record *models.Resource) error {
	fields, err := json.Marshal(record.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	_, err = s.q(ctx).ExecContext(ctx, `
		INSERT INTO resources (tenant_id, id, kind, fields, blob_ref, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
		ON CONFLICT (tenant_id, id) DO UPDATE SET
			kind       = EXCLUDED.kind,
			fields     = EXCLUDED.fields,
			blob_ref   = EXCLUDED.blob_ref,
			version    = resources.version + 1,
			updated_at = EXCLUDED.updated_at`,
		record.TenantID.String(), record.ID.String(), record.Kind.String(),
		fields, record.BlobRef, record.Version, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put resource: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, tenant domain.TenantID, id domain.ResourceID) (*models.Resource, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT tenant_id, id, kind, fields, blob_ref, version, created_at, updated_at
		FROM resources WHERE tenant_id = $1 AND id = $2`,
		tenant.String(), id.String())
	record, err := scanResource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get resource: %w", err)
	}
	return record, nil
}

func (s *Postgres) Delete(ctx context.Context, tenant domain.TenantID, id domain.ResourceID) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM resources WHERE tenant_id = $1 AND id = $2`,
		tenant.String(), id.String())
	if err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListByTenant(ctx context.Context, tenant domain.TenantID) ([]*models.Resource, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT tenant_id, id, kind, fields, blob_ref, version, created_at, updated_at
		FROM resources WHERE tenant_id = $1 ORDER BY created_at`,
		tenant.String())
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()
	return collectResources(rows)
}

func (s *Postgres) ListWithBlobRefs(ctx context.Context) ([]*models.Resource, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT tenant_id, id, kind, fields, blob_ref, version, created_at, updated_at
		FROM resources WHERE blob_ref IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("list resources with blob refs: %w", err)
	}
	defer rows.Close()
	return collectResources(rows)
}

func (s *Postgres) ClearBlobRef(ctx context.Context, tenant domain.TenantID, id domain.ResourceID, version int64) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE resources SET blob_ref = NULL, version = version + 1, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND version = $3`,
		tenant.String(), id.String(), version)
	if err != nil {
		return fmt.Errorf("clear blob ref: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("clear blob ref: %w", err)
	}
	if affected == 0 {
		// Distinguish a missing row from a version mismatch so the scanner
		// can report accurately.
		var exists bool
		checkErr := s.q(ctx).QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM resources WHERE tenant_id = $1 AND id = $2)`,
			tenant.String(), id.String()).Scan(&exists)
		if checkErr != nil {
			return fmt.Errorf("clear blob ref: %w", checkErr)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (*models.Resource, error) {
	var (
		tenantRaw   string
		idRaw       string
		kindRaw     string
		fieldsRaw   []byte
		blobRef     sql.NullString
		record      models.Resource
	)
	err := row.Scan(&tenantRaw, &idRaw, &kindRaw, &fieldsRaw, &blobRef,
		&record.Version, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}
	tenant, err := domain.ParseTenantID(tenantRaw)
	if err != nil {
		return nil, err
	}
	id, err := domain.ParseResourceID(idRaw)
	if err != nil {
		return nil, err
	}
	record.TenantID = tenant
	record.ID = id
	record.Kind = models.Kind(kindRaw)
	record.BlobRef = blobRef.String
	if err := json.Unmarshal(fieldsRaw, &record.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return &record, nil
}

func collectResources(rows *sql.Rows) ([]*models.Resource, error) {
	var out []*models.Resource
	for rows.Next() {
		record, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
