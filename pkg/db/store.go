package db

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/samber/lo"
	"golang.org/x/xerrors"

	"github.com/vulncatalog/vulncatalog/pkg/taxonomy"
	"github.com/vulncatalog/vulncatalog/pkg/types"
)

// insertChunkSize keeps multi-row inserts under the driver's parameter
// limit even for the widest table.
const insertChunkSize = 1000

// Store is the Postgres implementation of Operation.
type Store struct {
	db *sqlx.DB
}

// NewStore connects to Postgres and ensures the schema exists.
func NewStore(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, xerrors.Errorf("failed to connect to database (%v): %w", err, ErrPersistence)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InsertTask(ctx context.Context, task types.Task) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO tasks (id, created_at, updated_at) VALUES (:id, :created_at, :updated_at)`, task)
	if err != nil {
		return xerrors.Errorf("task insert error (%v): %w", err, ErrPersistence)
	}
	return nil
}

// Vendor and product inserts are idempotent by unique key so a retried unit
// does not duplicate rows already persisted by an earlier run.
func (s *Store) BulkInsertVendors(ctx context.Context, vendors []types.Vendor) error {
	return bulkInsert(ctx, s.db, "vendors", vendors,
		`INSERT INTO vendors (id, created_at, updated_at, name)
		 VALUES (:id, :created_at, :updated_at, :name)
		 ON CONFLICT (name) DO NOTHING`)
}

func (s *Store) BulkInsertProducts(ctx context.Context, products []types.Product) error {
	return bulkInsert(ctx, s.db, "products", products,
		`INSERT INTO products (id, created_at, updated_at, name, vendor_id)
		 VALUES (:id, :created_at, :updated_at, :name, :vendor_id)
		 ON CONFLICT (vendor_id, name) DO NOTHING`)
}

func (s *Store) BulkInsertCves(ctx context.Context, cves []types.Cve) error {
	return bulkInsert(ctx, s.db, "cves", cves,
		`INSERT INTO cves (id, created_at, updated_at, cve_id, json, vendors, cwes, summary, cvss2, cvss3)
		 VALUES (:id, :created_at, :updated_at, :cve_id, :json, :vendors, :cwes, :summary, :cvss2, :cvss3)`)
}

func (s *Store) BulkInsertChanges(ctx context.Context, changes []types.Change) error {
	return bulkInsert(ctx, s.db, "changes", changes,
		`INSERT INTO changes (id, created_at, updated_at, json, cve_id, task_id)
		 VALUES (:id, :created_at, :updated_at, :json, :cve_id, :task_id)`)
}

func (s *Store) BulkInsertEvents(ctx context.Context, events []types.Event) error {
	return bulkInsert(ctx, s.db, "events", events,
		`INSERT INTO events (id, created_at, updated_at, type, details, is_reviewed, cve_id, change_id)
		 VALUES (:id, :created_at, :updated_at, :type, :details, :is_reviewed, :cve_id, :change_id)`)
}

func (s *Store) BulkInsertCwes(ctx context.Context, cwes []types.Cwe) error {
	return bulkInsert(ctx, s.db, "cwes", cwes,
		`INSERT INTO cwes (id, created_at, updated_at, cwe_id, name, description)
		 VALUES (:id, :created_at, :updated_at, :cwe_id, :name, :description)`)
}

func (s *Store) VendorNames(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		ID   string `db:"id"`
		Name string `db:"name"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, name FROM vendors`); err != nil {
		return nil, xerrors.Errorf("vendors select error (%v): %w", err, ErrPersistence)
	}

	names := make(map[string]string, len(rows))
	for _, row := range rows {
		names[row.Name] = row.ID
	}
	return names, nil
}

func (s *Store) ProductSlugs(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		ID      string `db:"id"`
		Vendor  string `db:"vendor"`
		Product string `db:"product"`
	}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT p.id AS id, v.name AS vendor, p.name AS product
		 FROM products p JOIN vendors v ON v.id = p.vendor_id`)
	if err != nil {
		return nil, xerrors.Errorf("products select error (%v): %w", err, ErrPersistence)
	}

	slugs := make(map[string]string, len(rows))
	for _, row := range rows {
		slugs[taxonomy.Slug(row.Vendor, row.Product)] = row.ID
	}
	return slugs, nil
}

func bulkInsert[T any](ctx context.Context, db *sqlx.DB, table string, rows []T, query string) error {
	if len(rows) == 0 {
		return nil
	}
	for _, chunk := range lo.Chunk(rows, insertChunkSize) {
		if _, err := db.NamedExecContext(ctx, query, chunk); err != nil {
			return xerrors.Errorf("%s insert error (%v): %w", table, err, ErrPersistence)
		}
	}
	return nil
}
