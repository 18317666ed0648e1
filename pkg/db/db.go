// Package db is the bulk persistence gateway of the catalog. The pipeline
// talks to the Operation interface only; the Postgres implementation lives
// alongside it.
package db

import (
	"context"
	"errors"

	"github.com/vulncatalog/vulncatalog/pkg/types"
)

// ErrPersistence wraps every store rejection (constraint violation or
// connection failure). It is fatal to the unit being imported; prior
// successfully-inserted sub-batches of the same unit are not rolled back
// here, each bulk call is atomic on its own.
var ErrPersistence = errors.New("persistence error")

// Operation is the contract the pipeline consumes. Calls happen once per
// entity type per unit of work, in dependency order: vendors, products,
// cves, changes, events.
type Operation interface {
	InsertTask(ctx context.Context, task types.Task) error
	BulkInsertVendors(ctx context.Context, vendors []types.Vendor) error
	BulkInsertProducts(ctx context.Context, products []types.Product) error
	BulkInsertCves(ctx context.Context, cves []types.Cve) error
	BulkInsertChanges(ctx context.Context, changes []types.Change) error
	BulkInsertEvents(ctx context.Context, events []types.Event) error
	BulkInsertCwes(ctx context.Context, cwes []types.Cwe) error

	// VendorNames and ProductSlugs expose the already persisted taxonomy
	// so a run can warm its deduplicator instead of re-minting
	// identifiers for known names.
	VendorNames(ctx context.Context) (map[string]string, error)
	ProductSlugs(ctx context.Context) (map[string]string, error)
}
