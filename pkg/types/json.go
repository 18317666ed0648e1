package types

import (
	"database/sql/driver"
	"encoding/json"

	"golang.org/x/xerrors"
)

// JSONStrings is a string slice stored in a jsonb column.
type JSONStrings []string

// Value returns the JSON encoding as a string so that lib/pq binds it as
// text rather than bytea.
func (s JSONStrings) Value() (driver.Value, error) {
	if s == nil {
		s = JSONStrings{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal string list: %w", err)
	}
	return string(b), nil
}

func (s *JSONStrings) Scan(src interface{}) error {
	return scanJSON(src, s)
}

// JSONObject is an opaque JSON document stored verbatim in a jsonb column.
// The upstream record shape varies by year and schema version, so it is kept
// schema-agnostic.
type JSONObject json.RawMessage

func (o JSONObject) Value() (driver.Value, error) {
	if len(o) == 0 {
		return "{}", nil
	}
	return string(o), nil
}

func (o *JSONObject) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		*o = JSONObject(append([]byte(nil), v...))
	case string:
		*o = JSONObject(v)
	case nil:
		*o = nil
	default:
		return xerrors.Errorf("unsupported type %T for JSON object", src)
	}
	return nil
}

func (o JSONObject) MarshalJSON() ([]byte, error) {
	if len(o) == 0 {
		return []byte("null"), nil
	}
	return o, nil
}

func (o *JSONObject) UnmarshalJSON(data []byte) error {
	*o = JSONObject(append([]byte(nil), data...))
	return nil
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	case nil:
		return nil
	default:
		return xerrors.Errorf("unsupported type %T for JSON column", src)
	}
}
