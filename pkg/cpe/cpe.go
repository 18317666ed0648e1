// Package cpe flattens an NVD applicable-configuration tree into the
// vendor/product taxonomy referenced by a record.
package cpe

import (
	"strings"

	"github.com/vulncatalog/vulncatalog/pkg/types"
)

// cpe:2.3:part:vendor:product:version:update:edition:language:sw_edition:target_sw:target_hw:other
const (
	vendorField   = 3
	productField  = 4
	minLeafFields = 6
)

// Node is one boolean combination node of a configuration tree. AND and OR
// operators are treated identically here: the taxonomy answers "can this
// record involve this vendor/product", not exact applicability.
type Node struct {
	Operator string     `json:"operator,omitempty"`
	Children []Node     `json:"children,omitempty"`
	CpeMatch []CpeMatch `json:"cpe_match,omitempty"`
}

type CpeMatch struct {
	Vulnerable bool   `json:"vulnerable"`
	Cpe23URI   string `json:"cpe23Uri"`
}

// VendorProducts holds the vendors and products discovered in a tree, in
// first-seen order so repeated runs on identical input flatten identically.
type VendorProducts struct {
	vendors  []string
	products map[string][]string
	seen     map[string]map[string]struct{}
}

func NewVendorProducts() *VendorProducts {
	return &VendorProducts{
		products: map[string][]string{},
		seen:     map[string]map[string]struct{}{},
	}
}

// Add records a vendor, and optionally one of its products. Names containing
// the product separator are rejected because they would corrupt substring
// matching over flattened paths.
func (vp *VendorProducts) Add(vendor, product string) {
	if vendor == "" || strings.Contains(vendor, types.ProductSeparator) ||
		strings.Contains(product, types.ProductSeparator) {
		return
	}
	if _, ok := vp.seen[vendor]; !ok {
		vp.vendors = append(vp.vendors, vendor)
		vp.seen[vendor] = map[string]struct{}{}
	}
	if product == "" {
		return
	}
	if _, ok := vp.seen[vendor][product]; !ok {
		vp.seen[vendor][product] = struct{}{}
		vp.products[vendor] = append(vp.products[vendor], product)
	}
}

// Vendors returns the vendor names in first-seen order.
func (vp *VendorProducts) Vendors() []string {
	return vp.vendors
}

// Products returns the products of a vendor in first-seen order.
func (vp *VendorProducts) Products(vendor string) []string {
	return vp.products[vendor]
}

// Flatten produces the vendor path strings stored on a record: the vendor
// name alone, then vendor + separator + product for each known product.
func (vp *VendorProducts) Flatten() []string {
	var paths []string
	for _, vendor := range vp.vendors {
		paths = append(paths, vendor)
		for _, product := range vp.products[vendor] {
			paths = append(paths, vendor+types.ProductSeparator+product)
		}
	}
	return paths
}

// Convert walks every node of a configuration tree and merges the
// vendor/product pairs of all leaves.
func Convert(nodes []Node) *VendorProducts {
	vp := NewVendorProducts()
	for _, node := range nodes {
		walk(node, vp)
	}
	return vp
}

func walk(node Node, vp *VendorProducts) {
	for _, match := range node.CpeMatch {
		vendor, product, ok := parseURI(match.Cpe23URI)
		if !ok {
			continue
		}
		vp.Add(vendor, product)
	}
	for _, child := range node.Children {
		walk(child, vp)
	}
}

// parseURI extracts the lowercased vendor and product from a CPE 2.3 URI.
// Malformed URIs with too few fields are skipped, not fatal. A wildcard
// product ("*" or "-") yields the vendor alone.
func parseURI(uri string) (vendor, product string, ok bool) {
	fields := strings.Split(uri, ":")
	if len(fields) < minLeafFields {
		return "", "", false
	}
	vendor = strings.ToLower(fields[vendorField])
	product = strings.ToLower(fields[productField])
	if product == "*" || product == "-" {
		product = ""
	}
	return vendor, product, true
}
