// Package nvd parses the yearly NVD 1.1 CVE archives and normalizes their
// records into the catalog's intermediate representation.
package nvd

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/xerrors"

	"github.com/vulncatalog/vulncatalog/pkg/cpe"
	"github.com/vulncatalog/vulncatalog/pkg/feed"
)

// FeedURL is the templated URL of one yearly archive.
const FeedURL = "https://nvd.nist.gov/feeds/json/cve/1.1/nvdcve-1.1-%d.json.gz"

// timeLayout is the NVD 1.1 timestamp format, e.g. "2023-11-07T03:16Z".
const timeLayout = "2006-01-02T15:04Z"

// ParseFeed decodes one yearly archive container.
func ParseFeed(raw []byte) (*Feed, error) {
	var f Feed
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, xerrors.Errorf("failed to decode NVD feed (%v): %w", err, feed.ErrParse)
	}
	return &f, nil
}

// Entry is one normalized CVE record. Everything here is re-derivable from
// Raw; the derived fields exist for querying.
type Entry struct {
	CveID          string
	Summary        string
	Cvss2          *float64
	Cvss3          *float64
	Cwes           []string
	VendorProducts *cpe.VendorProducts
	Raw            json.RawMessage
	PublishedAt    time.Time
	ModifiedAt     time.Time
}

// Normalize extracts the canonical fields of one raw feed record. A missing
// required field fails the record with feed.ErrRecord; optional fields
// normalize to nil scores or empty sequences instead.
func Normalize(raw json.RawMessage) (*Entry, error) {
	var item Item
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, xerrors.Errorf("failed to decode NVD item (%v): %w", err, feed.ErrRecord)
	}

	cveID := item.Cve.Meta.ID
	if cveID == "" {
		return nil, xerrors.Errorf("missing CVE identifier: %w", feed.ErrRecord)
	}
	if len(item.Cve.Description.Data) == 0 {
		return nil, xerrors.Errorf("%s has no description: %w", cveID, feed.ErrRecord)
	}

	publishedAt, err := parseTime(item.PublishedDate)
	if err != nil {
		return nil, xerrors.Errorf("%s has a bad published date (%v): %w", cveID, err, feed.ErrRecord)
	}
	modifiedAt, err := parseTime(item.LastModifiedDate)
	if err != nil {
		return nil, xerrors.Errorf("%s has a bad modified date (%v): %w", cveID, err, feed.ErrRecord)
	}

	return &Entry{
		CveID:          cveID,
		Summary:        item.Cve.Description.Data[0].Value,
		Cvss2:          baseScoreV2(item.Impact),
		Cvss3:          baseScoreV3(item.Impact),
		Cwes:           weaknessIDs(item.Cve.ProblemType),
		VendorProducts: cpe.Convert(item.Configurations.Nodes),
		Raw:            raw,
		PublishedAt:    publishedAt,
		ModifiedAt:     modifiedAt,
	}, nil
}

func baseScoreV2(impact Impact) *float64 {
	if impact.BaseMetricV2 == nil {
		return nil
	}
	score := impact.BaseMetricV2.CvssV2.BaseScore
	return &score
}

func baseScoreV3(impact Impact) *float64 {
	if impact.BaseMetricV3 == nil {
		return nil
	}
	score := impact.BaseMetricV3.CvssV3.BaseScore
	return &score
}

// weaknessIDs takes the first problem-type description list present and
// keeps every entry that looks like a CWE identifier. Records without
// weaknesses yield an empty sequence, never an error.
func weaknessIDs(pt ProblemType) []string {
	for _, data := range pt.Data {
		if len(data.Description) == 0 {
			continue
		}
		ids := lo.FilterMap(data.Description, func(d LangString, _ int) (string, bool) {
			return d.Value, strings.HasPrefix(d.Value, "CWE-")
		})
		return lo.Uniq(ids)
	}
	return nil
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, xerrors.New("empty timestamp")
	}
	t, err := time.Parse(timeLayout, value)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
