package db

import (
	"golang.org/x/xerrors"
)

// Table creation is idempotent; the store owns uniqueness enforcement and
// indexing, the pipeline only relies on the constraints declared here.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vendors (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		name VARCHAR(256) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		name VARCHAR(256) NOT NULL,
		vendor_id UUID NOT NULL REFERENCES vendors(id) ON DELETE CASCADE,
		UNIQUE (vendor_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS cwes (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		cwe_id VARCHAR(16) NOT NULL UNIQUE,
		name VARCHAR(256) NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS cves (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		cve_id VARCHAR(20) NOT NULL UNIQUE,
		json JSONB NOT NULL,
		vendors JSONB NOT NULL,
		cwes JSONB NOT NULL,
		summary TEXT NOT NULL,
		cvss2 DOUBLE PRECISION,
		cvss3 DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS ix_cves_vendors ON cves USING GIN (vendors)`,
	`CREATE INDEX IF NOT EXISTS ix_cves_cwes ON cves USING GIN (cwes)`,
	`CREATE INDEX IF NOT EXISTS ix_cves_updated_at ON cves (updated_at)`,
	`CREATE TABLE IF NOT EXISTS changes (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		json JSONB NOT NULL,
		cve_id UUID NOT NULL REFERENCES cves(id) ON DELETE CASCADE,
		task_id UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		type VARCHAR(16) NOT NULL,
		details JSONB NOT NULL,
		is_reviewed BOOLEAN NOT NULL DEFAULT FALSE,
		cve_id UUID NOT NULL REFERENCES cves(id) ON DELETE CASCADE,
		change_id UUID NOT NULL REFERENCES changes(id) ON DELETE CASCADE
	)`,
}

func (s *Store) migrate() error {
	for _, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return xerrors.Errorf("migration error (%v): %w", err, ErrPersistence)
		}
	}
	return nil
}
