// Package taxonomy deduplicates the vendors and products discovered during
// an ingestion run, so each distinct name is assigned exactly one identifier.
package taxonomy

import (
	"github.com/google/uuid"

	"github.com/vulncatalog/vulncatalog/pkg/types"
)

// Registry maps vendor names and (vendor, product) slugs to their
// identifiers. It is run-scoped and accessed by a single goroutine;
// identifiers are immutable once allocated.
type Registry struct {
	vendors  map[string]string
	products map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		vendors:  map[string]string{},
		products: map[string]string{},
	}
}

// Warm pre-loads the registry with rows already persisted by earlier runs,
// so re-runs reuse stored identifiers instead of minting fresh ones.
func (r *Registry) Warm(vendors, products map[string]string) {
	for name, id := range vendors {
		r.vendors[name] = id
	}
	for slug, id := range products {
		r.products[slug] = id
	}
}

// Slug builds the in-run dedup key of a (vendor, product) pair. It is not
// persisted; the foreign key is.
func Slug(vendor, product string) string {
	return vendor + types.ProductSeparator + product
}

// EnsureVendor returns the identifier of a vendor, allocating one the first
// time the name is seen. created reports whether a new row must be inserted.
func (r *Registry) EnsureVendor(name string) (id string, created bool) {
	if id, ok := r.vendors[name]; ok {
		return id, false
	}
	id = uuid.New().String()
	r.vendors[name] = id
	return id, true
}

// EnsureProduct returns the identifier of a product under a vendor,
// allocating one the first time the pair is seen. The vendor is registered
// first if needed, so a product can never exist under an unknown vendor.
func (r *Registry) EnsureProduct(vendor, product string) (id string, created bool) {
	r.EnsureVendor(vendor)

	slug := Slug(vendor, product)
	if id, ok := r.products[slug]; ok {
		return id, false
	}
	id = uuid.New().String()
	r.products[slug] = id
	return id, true
}

// VendorID looks up an already registered vendor.
func (r *Registry) VendorID(name string) (string, bool) {
	id, ok := r.vendors[name]
	return id, ok
}
