package types

import (
	"time"
)

// ProductSeparator joins a vendor and a product inside a flattened vendor
// path string (e.g. "acme$PRODUCT$widget"). The query layer matches vendor
// paths with substring containment, so the separator must never appear
// inside a vendor or product name.
const ProductSeparator = "$PRODUCT$"

// Model carries the columns shared by every table. Identifiers are
// generated client-side, and timestamps are set explicitly at construction.
type Model struct {
	ID        string    `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Cve is one vulnerability record. Vendors, Cwes and the CVSS scores are a
// queryable cache derived from Raw, not a second source of truth.
type Cve struct {
	Model
	CveID   string      `db:"cve_id" json:"cve_id"`
	Summary string      `db:"summary" json:"summary"`
	Raw     JSONObject  `db:"json" json:"json"`
	Vendors JSONStrings `db:"vendors" json:"vendors"`
	Cwes    JSONStrings `db:"cwes" json:"cwes"`
	Cvss2   *float64    `db:"cvss2" json:"cvss2"`
	Cvss3   *float64    `db:"cvss3" json:"cvss3"`
}

type Vendor struct {
	Model
	Name string `db:"name" json:"name"`
}

type Product struct {
	Model
	Name     string `db:"name" json:"name"`
	VendorID string `db:"vendor_id" json:"vendor_id"`
}

type Cwe struct {
	Model
	CweID       string `db:"cwe_id" json:"cwe_id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
}

// Task groups the changes produced by one ingestion run.
type Task struct {
	Model
}

// Change is an append-only snapshot of a Cve's raw payload.
type Change struct {
	Model
	Raw    JSONObject `db:"json" json:"json"`
	CveID  string     `db:"cve_id" json:"cve_id"`
	TaskID string     `db:"task_id" json:"task_id"`
}

// EventType classifies what a change did to a record.
type EventType string

const (
	EventNewCve     EventType = "new_cve"
	EventFirstTime  EventType = "first_time"
	EventReferences EventType = "references"
	EventCpes       EventType = "cpes"
	EventCvss       EventType = "cvss"
	EventSummary    EventType = "summary"
	EventCwes       EventType = "cwes"
)

type Event struct {
	Model
	Type       EventType  `db:"type" json:"type"`
	Details    JSONObject `db:"details" json:"details"`
	IsReviewed bool       `db:"is_reviewed" json:"is_reviewed"`
	CveID      string     `db:"cve_id" json:"cve_id"`
	ChangeID   string     `db:"change_id" json:"change_id"`
}
