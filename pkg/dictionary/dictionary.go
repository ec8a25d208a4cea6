// Package dictionary maps the master table's uncontrolled header set onto
// the portal's fixed field keys, using the maintainer-owned dictionary sheet.
package dictionary

import (
	"fmt"
	"strings"

	"github.com/espaidedades/ingest/pkg/slug"
	"github.com/espaidedades/ingest/pkg/tabular"
)

// Canonical portal field keys, as produced by NormalizeKey over the
// dictionary's "Default name in Portal JS" column.
const (
	KeyTitle        = "title"
	KeyDescription  = "description"
	KeyOrganization = "organization"
	KeyAuthor       = "author"
	KeyCoverage     = "coverage"
	KeySourceURL    = "sourcesurl"
	KeyTags         = "tags"
	KeyGroup        = "group"

	// KeyCollectives is the portal key of the predefined multi-select
	// column holding collective labels.
	KeyCollectives = "newfieldlikegroupmultipleselectionpredefinedlist"
)

// Dictionary sheet columns. The sheet has been exported with slightly
// different header spellings over time, so a couple of variants are checked.
var sourceHeaderColumns = []string{
	"Name in GSheets (MASTER sheet)",
	"Name in GSheets",
}

const portalNameColumn = "Default name in Portal JS"

// FieldMapping relates one master-table header to one portal field.
type FieldMapping struct {
	SourceHeader string // header exactly as it appears in the master table
	PortalName   string
	PortalKey    string
}

// Dictionary is the resolved set of field mappings for one run.
type Dictionary struct {
	mappings []FieldMapping
	byHeader map[string]int
}

// NormalizeKey folds a header or portal name into a comparison key that is
// insensitive to case, diacritics, and punctuation.
func NormalizeKey(value string) string {
	return strings.ReplaceAll(slug.Make(value), "-", "")
}

// HeaderLookup resolves normalized keys back to master-table headers.
type HeaderLookup map[string]string

// NewHeaderLookup builds a lookup from the master table's header sequence.
// When two headers normalize identically the first one wins.
func NewHeaderLookup(headers []string) HeaderLookup {
	lookup := make(HeaderLookup, len(headers))
	for _, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			continue
		}
		normalized := NormalizeKey(header)
		if _, ok := lookup[normalized]; !ok {
			lookup[normalized] = header
		}
	}
	return lookup
}

// Build resolves the dictionary sheet against the master table's headers.
// Declared source headers are matched by normalized key, retrying with the
// singular form (trailing "s" stripped) to recover singular/plural drift.
// Rows that still do not match are dropped and reported as warnings.
func Build(rows []tabular.Row, lookup HeaderLookup) (*Dictionary, []string) {
	dict := &Dictionary{byHeader: make(map[string]int)}
	var warnings []string

	for _, row := range rows {
		sourceName := ""
		for _, column := range sourceHeaderColumns {
			if v := row.Get(column); v != "" {
				sourceName = v
				break
			}
		}
		portalName := row.Get(portalNameColumn)
		if sourceName == "" || portalName == "" {
			continue
		}

		normalized := NormalizeKey(sourceName)
		masterHeader, ok := lookup[normalized]
		if !ok && strings.HasSuffix(normalized, "s") {
			masterHeader, ok = lookup[normalized[:len(normalized)-1]]
		}
		if !ok {
			warnings = append(warnings, fmt.Sprintf(
				"dictionary reference %q was not found in the master table headers", sourceName))
			continue
		}

		if _, dup := dict.byHeader[masterHeader]; dup {
			continue // first declaration wins
		}
		dict.byHeader[masterHeader] = len(dict.mappings)
		dict.mappings = append(dict.mappings, FieldMapping{
			SourceHeader: masterHeader,
			PortalName:   portalName,
			PortalKey:    NormalizeKey(portalName),
		})
	}

	return dict, warnings
}

// Mappings returns the resolved mappings in declaration order.
func (d *Dictionary) Mappings() []FieldMapping {
	return d.mappings
}

// HeaderForKey returns the master-table header whose mapping resolves to the
// given portal key, or "" when no mapping declares it.
func (d *Dictionary) HeaderForKey(portalKey string) string {
	for _, m := range d.mappings {
		if m.PortalKey == portalKey {
			return m.SourceHeader
		}
	}
	return ""
}
