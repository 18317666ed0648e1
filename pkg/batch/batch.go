// Package batch accumulates the rows produced by one unit of work so they
// can be bulk-inserted with all foreign keys known up front.
package batch

import (
	"time"

	"github.com/google/uuid"

	"github.com/vulncatalog/vulncatalog/pkg/feed/nvd"
	"github.com/vulncatalog/vulncatalog/pkg/taxonomy"
	"github.com/vulncatalog/vulncatalog/pkg/types"
)

// Batch holds the new records of one unit. Identifiers are generated
// client-side, so every Change already references its Cve and every Event
// its Change before anything is persisted.
type Batch struct {
	taskID string
	now    time.Time

	cves     []types.Cve
	changes  []types.Change
	events   []types.Event
	vendors  []types.Vendor
	products []types.Product

	seen map[string]struct{}
}

// New returns an empty batch for one unit of work. now stamps the taxonomy
// rows discovered while assembling.
func New(taskID string, now time.Time) *Batch {
	return &Batch{
		taskID: taskID,
		now:    now,
		seen:   map[string]struct{}{},
	}
}

// Add assembles one normalized entry into the batch: the Cve row, its
// first-import Change and reviewed new_cve Event, and any vendor or product
// rows the registry has not seen yet. Entries whose external identifier is
// already in the batch are skipped.
func (b *Batch) Add(entry *nvd.Entry, registry *taxonomy.Registry) bool {
	if _, ok := b.seen[entry.CveID]; ok {
		return false
	}
	b.seen[entry.CveID] = struct{}{}

	cveDBID := uuid.New().String()
	changeDBID := uuid.New().String()

	b.cves = append(b.cves, types.Cve{
		Model: types.Model{
			ID:        cveDBID,
			CreatedAt: entry.PublishedAt,
			UpdatedAt: entry.ModifiedAt,
		},
		CveID:   entry.CveID,
		Summary: entry.Summary,
		Raw:     types.JSONObject(entry.Raw),
		Vendors: types.JSONStrings(entry.VendorProducts.Flatten()),
		Cwes:    types.JSONStrings(entry.Cwes),
		Cvss2:   entry.Cvss2,
		Cvss3:   entry.Cvss3,
	})

	b.changes = append(b.changes, types.Change{
		Model: types.Model{
			ID:        changeDBID,
			CreatedAt: entry.PublishedAt,
			UpdatedAt: entry.ModifiedAt,
		},
		Raw:    types.JSONObject(entry.Raw),
		CveID:  cveDBID,
		TaskID: b.taskID,
	})

	// First-import events are reviewed automatically.
	b.events = append(b.events, types.Event{
		Model: types.Model{
			ID:        uuid.New().String(),
			CreatedAt: entry.PublishedAt,
			UpdatedAt: entry.ModifiedAt,
		},
		Type:       types.EventNewCve,
		Details:    types.JSONObject("{}"),
		IsReviewed: true,
		CveID:      cveDBID,
		ChangeID:   changeDBID,
	})

	for _, vendor := range entry.VendorProducts.Vendors() {
		vendorID, created := registry.EnsureVendor(vendor)
		if created {
			b.vendors = append(b.vendors, types.Vendor{
				Model: types.Model{ID: vendorID, CreatedAt: b.now, UpdatedAt: b.now},
				Name:  vendor,
			})
		}
		for _, product := range entry.VendorProducts.Products(vendor) {
			productID, created := registry.EnsureProduct(vendor, product)
			if created {
				b.products = append(b.products, types.Product{
					Model:    types.Model{ID: productID, CreatedAt: b.now, UpdatedAt: b.now},
					Name:     product,
					VendorID: vendorID,
				})
			}
		}
	}

	return true
}

func (b *Batch) Cves() []types.Cve         { return b.cves }
func (b *Batch) Changes() []types.Change   { return b.changes }
func (b *Batch) Events() []types.Event     { return b.events }
func (b *Batch) Vendors() []types.Vendor   { return b.vendors }
func (b *Batch) Products() []types.Product { return b.products }

// Len reports how many vulnerability records the batch holds.
func (b *Batch) Len() int {
	return len(b.cves)
}
