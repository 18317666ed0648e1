package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"golang.org/x/xerrors"

	"github.com/vulncatalog/vulncatalog/pkg/types"
)

// Filter narrows a CVE listing the way the presentation layer does:
// keyword search, weakness containment, vendor/product path containment and
// severity bucket over the CVSSv3 score.
type Filter struct {
	Search  string
	Cwe     string
	Bucket  types.SeverityBucket
	Vendor  string
	Product string
	Limit   int
	Offset  int
}

const defaultPageSize = 20

// ErrNotFound is returned by the by-name lookups.
var ErrNotFound = xerrors.New("not found")

// ListCves returns vulnerability records matching the filter, most recently
// modified first.
func (s *Store) ListCves(ctx context.Context, filter Filter) ([]types.Cve, error) {
	query := `SELECT * FROM cves`
	var clauses []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		pattern := arg("%" + filter.Search + "%")
		clauses = append(clauses,
			fmt.Sprintf("(cve_id ILIKE %s OR summary ILIKE %s OR vendors::text ILIKE %s)", pattern, pattern, pattern))
	}
	if filter.Cwe != "" {
		clauses = append(clauses, fmt.Sprintf("cwes @> %s::jsonb", arg(mustJSON([]string{filter.Cwe}))))
	}
	if filter.Bucket != "" {
		if filter.Bucket == types.BucketEmpty {
			clauses = append(clauses, "cvss3 IS NULL")
		} else if min, max, ok := filter.Bucket.Range(); ok {
			clauses = append(clauses, fmt.Sprintf("cvss3 >= %s AND cvss3 <= %s", arg(min), arg(max)))
		}
	}
	if filter.Vendor != "" {
		path := types.NormalizeVendorName(filter.Vendor)
		if filter.Product != "" {
			path += types.ProductSeparator + types.NormalizeProductName(filter.Product)
		}
		clauses = append(clauses, fmt.Sprintf("vendors @> %s::jsonb", arg(mustJSON([]string{path}))))
	}

	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	query += fmt.Sprintf(" ORDER BY updated_at DESC LIMIT %s OFFSET %s", arg(limit), arg(filter.Offset))

	var cves []types.Cve
	if err := s.db.SelectContext(ctx, &cves, query, args...); err != nil {
		return nil, xerrors.Errorf("cves select error (%v): %w", err, ErrPersistence)
	}
	return cves, nil
}

// GetCve looks a record up by its external identifier.
func (s *Store) GetCve(ctx context.Context, cveID string) (*types.Cve, error) {
	var cve types.Cve
	err := s.db.GetContext(ctx, &cve, `SELECT * FROM cves WHERE cve_id = $1`, cveID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, xerrors.Errorf("cve select error (%v): %w", err, ErrPersistence)
	}
	return &cve, nil
}

// GetVendorByName resolves a case/spacing-normalized vendor lookup.
func (s *Store) GetVendorByName(ctx context.Context, name string) (*types.Vendor, error) {
	var vendor types.Vendor
	err := s.db.GetContext(ctx, &vendor,
		`SELECT * FROM vendors WHERE name = $1`, types.NormalizeVendorName(name))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, xerrors.Errorf("vendor select error (%v): %w", err, ErrPersistence)
	}
	return &vendor, nil
}

// GetProductByName resolves a product lookup scoped to a vendor.
func (s *Store) GetProductByName(ctx context.Context, vendorID, name string) (*types.Product, error) {
	var product types.Product
	err := s.db.GetContext(ctx, &product,
		`SELECT * FROM products WHERE vendor_id = $1 AND name = $2`,
		vendorID, types.NormalizeProductName(name))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, xerrors.Errorf("product select error (%v): %w", err, ErrPersistence)
	}
	return &product, nil
}

// ListCwes returns weaknesses ordered by name.
func (s *Store) ListCwes(ctx context.Context, limit, offset int) ([]types.Cwe, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	var cwes []types.Cwe
	err := s.db.SelectContext(ctx, &cwes,
		`SELECT * FROM cwes ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, xerrors.Errorf("cwes select error (%v): %w", err, ErrPersistence)
	}
	return cwes, nil
}

func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
