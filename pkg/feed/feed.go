// Package feed holds the error taxonomy shared by the feed parsers. Every
// failure below is fatal to the unit of work being imported: a partially
// ingested unit would leave the catalog silently incomplete.
package feed

import "errors"

var (
	// ErrParse means the archive content does not match the expected
	// container or encoding.
	ErrParse = errors.New("feed parse error")

	// ErrRecord means a single record is missing a field the schema
	// guarantees. The whole unit is aborted rather than inserting
	// partial data.
	ErrRecord = errors.New("malformed feed record")
)
