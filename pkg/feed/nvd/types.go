package nvd

import (
	"encoding/json"

	"github.com/vulncatalog/vulncatalog/pkg/cpe"
)

// Feed is the top-level container of one yearly NVD 1.1 archive. Items are
// kept raw so each record's verbatim payload can be stored alongside its
// decoded form.
type Feed struct {
	CVEDataType         string            `json:"CVE_data_type"`
	CVEDataFormat       string            `json:"CVE_data_format"`
	CVEDataVersion      string            `json:"CVE_data_version"`
	CVEDataNumberOfCVEs string            `json:"CVE_data_numberOfCVEs"`
	Items               []json.RawMessage `json:"CVE_Items"`
}

// Item is based on https://csrc.nist.gov/schema/nvd/feed/1.1/nvd_cve_feed_json_1.1.schema
type Item struct {
	Cve              Cve            `json:"cve"`
	Configurations   Configurations `json:"configurations"`
	Impact           Impact         `json:"impact"`
	PublishedDate    string         `json:"publishedDate"`
	LastModifiedDate string         `json:"lastModifiedDate"`
}

type Cve struct {
	Meta        Meta        `json:"CVE_data_meta"`
	ProblemType ProblemType `json:"problemtype"`
	References  References  `json:"references"`
	Description Description `json:"description"`
}

type Meta struct {
	ID       string `json:"ID"`
	Assigner string `json:"ASSIGNER,omitempty"`
}

type ProblemType struct {
	Data []ProblemTypeData `json:"problemtype_data"`
}

type ProblemTypeData struct {
	Description []LangString `json:"description"`
}

type References struct {
	Data []Reference `json:"reference_data"`
}

type Reference struct {
	URL    string   `json:"url"`
	Name   string   `json:"name,omitempty"`
	Source string   `json:"refsource,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

type Description struct {
	Data []LangString `json:"description_data"`
}

type LangString struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type Configurations struct {
	CVEDataVersion string     `json:"CVE_data_version,omitempty"`
	Nodes          []cpe.Node `json:"nodes"`
}

// Impact carries up to two independent severity reports. Either may be
// absent; an absent report means "no score", never zero.
type Impact struct {
	BaseMetricV2 *BaseMetricV2 `json:"baseMetricV2,omitempty"`
	BaseMetricV3 *BaseMetricV3 `json:"baseMetricV3,omitempty"`
}

type BaseMetricV2 struct {
	CvssV2   CvssData `json:"cvssV2"`
	Severity string   `json:"severity,omitempty"`
}

type BaseMetricV3 struct {
	CvssV3 CvssData `json:"cvssV3"`
}

type CvssData struct {
	Version      string  `json:"version,omitempty"`
	VectorString string  `json:"vectorString,omitempty"`
	BaseScore    float64 `json:"baseScore"`
	BaseSeverity string  `json:"baseSeverity,omitempty"`
}
