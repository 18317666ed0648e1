// Package cwe parses the MITRE common-weakness catalog published as a
// zip-compressed XML document.
package cwe

import (
	"encoding/xml"
	"fmt"

	"golang.org/x/xerrors"

	"github.com/vulncatalog/vulncatalog/pkg/feed"
)

// FeedURL is the fixed URL of the latest weakness catalog archive.
const FeedURL = "https://cwe.mitre.org/data/xml/cwec_latest.xml.zip"

type catalog struct {
	XMLName    xml.Name `xml:"Weakness_Catalog"`
	Weaknesses []item   `xml:"Weaknesses>Weakness"`
	Categories []item   `xml:"Categories>Category"`
}

type item struct {
	ID          string `xml:"ID,attr"`
	Name        string `xml:"Name,attr"`
	Description string `xml:"Description"`
	Summary     string `xml:"Summary"`
}

// Entry is one weakness or category, treated uniformly.
type Entry struct {
	CweID       string
	Name        string
	Description string
}

// Parse decodes the catalog document and flattens weaknesses and categories
// into entries. The description falls back to the summary when the catalog
// provides no Description element.
func Parse(raw []byte) ([]Entry, error) {
	var c catalog
	if err := xml.Unmarshal(raw, &c); err != nil {
		return nil, xerrors.Errorf("failed to decode CWE catalog (%v): %w", err, feed.ErrParse)
	}

	var entries []Entry
	for _, it := range append(c.Weaknesses, c.Categories...) {
		description := it.Description
		if description == "" {
			description = it.Summary
		}
		entries = append(entries, Entry{
			CweID:       fmt.Sprintf("CWE-%s", it.ID),
			Name:        it.Name,
			Description: description,
		})
	}
	return entries, nil
}
