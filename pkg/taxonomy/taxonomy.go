// Package taxonomy builds the portal's two controlled vocabularies — ambits
// (thematic areas) and collectives (affiliated-group categories) — into
// catalog group definitions. Both share the catalog's group namespace, so
// collective names carry a reserved prefix to keep them apart from ambits.
package taxonomy

import (
	"github.com/espaidedades/ingest/pkg/slug"
	"github.com/espaidedades/ingest/pkg/tabular"
)

// MaxGroupNameLength is the catalog's hard cap on group names. Collective
// names spend part of this budget on their prefix.
const MaxGroupNameLength = 45

// CollectivePrefix namespaces collective groups away from ambit groups.
const CollectivePrefix = "col--"

// Entry is one catalog group definition. Slug is unique within its
// vocabulary; CatalogName is the length-capped (and, for collectives,
// prefixed) name sent to the catalog.
type Entry struct {
	Title       string
	Slug        string
	CatalogName string
}

// Index resolves ambit slugs to their entries.
type Index map[string]Entry

// NameMap resolves collective slugs to their catalog names.
type NameMap map[string]string

// BuildAmbits folds the predefined ambit labels into group entries, keyed by
// slug. The first occurrence of a slug wins; labels that normalize to an
// empty slug are dropped. Catalog names are claimed through a NameRegistry
// so that slugs differing only beyond the truncation point still get
// distinct names.
func BuildAmbits(labels []string) []Entry {
	seen := make(map[string]struct{})
	registry := slug.NewNameRegistry()
	var entries []Entry

	for _, label := range labels {
		s := slug.Make(label)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		entries = append(entries, Entry{
			Title:       label,
			Slug:        s,
			CatalogName: registry.Claim(s, MaxGroupNameLength),
		})
	}

	return entries
}

// BuildCollectives folds the predefined collective labels plus the values
// discovered in the master table (predefined first) into group entries and
// the slug-to-name map used during row transformation.
func BuildCollectives(predefined, discovered []string) ([]Entry, NameMap) {
	seen := make(map[string]struct{})
	registry := slug.NewNameRegistry()
	var entries []Entry
	names := make(NameMap)

	add := func(label string) {
		s := slug.Make(label)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		name := CollectivePrefix + registry.Claim(s, MaxGroupNameLength-len(CollectivePrefix))
		entries = append(entries, Entry{
			Title:       label,
			Slug:        s,
			CatalogName: name,
		})
		names[s] = name
	}

	for _, label := range predefined {
		add(label)
	}
	for _, label := range discovered {
		add(label)
	}

	return entries, names
}

// NewIndex builds an ambit lookup keyed by slug.
func NewIndex(entries []Entry) Index {
	index := make(Index, len(entries))
	for _, entry := range entries {
		index[entry.Slug] = entry
	}
	return index
}

// CollectValues gathers the unique multi-values of one master-table column,
// in first-occurrence order, de-duplicated by slug. An empty header yields
// no values, which is how a master table without the column degrades.
func CollectValues(rows []tabular.Row, header string) []string {
	if header == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var values []string
	for _, row := range rows {
		for _, value := range tabular.SplitMulti(row.Get(header)) {
			s := slug.Make(value)
			if s == "" {
				continue
			}
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			values = append(values, value)
		}
	}

	return values
}
