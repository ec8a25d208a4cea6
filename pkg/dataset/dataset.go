// Package dataset turns one master-table row into a catalog-ready dataset
// draft: field mapping, multi-value splitting, run-unique naming, taxonomy
// resolution, and resource synthesis.
package dataset

import (
	"fmt"

	"github.com/espaidedades/ingest/pkg/dictionary"
	"github.com/espaidedades/ingest/pkg/slug"
	"github.com/espaidedades/ingest/pkg/tabular"
	"github.com/espaidedades/ingest/pkg/taxonomy"
)

// MaxNameLength is the catalog's cap on dataset names.
const MaxNameLength = 50

// titleFallbackHeaders are probed raw when no dictionary mapping supplied a
// title, before the row is declared empty.
var titleFallbackHeaders = []string{"Nom", "Title"}

// Tag is a CKAN tag reference.
type Tag struct {
	Name string `json:"name"`
}

// GroupRef is a CKAN group assignment.
type GroupRef struct {
	Name string `json:"name"`
}

// Resource is a CKAN resource descriptor.
type Resource struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Payload is the dataset record sent to the catalog's package endpoints.
type Payload struct {
	Name      string     `json:"name"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes"`
	Author    string     `json:"author,omitempty"`
	Coverage  string     `json:"coverage,omitempty"`
	Source    string     `json:"source,omitempty"`
	OwnerOrg  string     `json:"owner_org,omitempty"`
	State     string     `json:"state"`
	Private   bool       `json:"private"`
	Type      string     `json:"type"`
	Tags      []Tag      `json:"tags"`
	Groups    []GroupRef `json:"groups"`
	Resources []Resource `json:"resources"`
}

// Draft is a catalog-ready dataset plus everything the reconciler needs to
// place it: the owning organization's display title and the row's
// non-fatal warnings.
type Draft struct {
	Title         string
	OwnerOrgTitle string
	Payload       *Payload
	Warnings      []string
}

// Context carries the run-scoped shared state a row transformation needs.
// The registries are shared across rows; everything else is immutable after
// index build.
type Context struct {
	Dictionary  *dictionary.Dictionary
	Slugs       *slug.Allocator
	Names       *slug.NameRegistry
	Ambits      taxonomy.Index
	Collectives taxonomy.NameMap
}

// BaseSlug derives the pre-allocation slug for a row, falling back to a
// positional name when the title headers are empty. index is zero-based.
func BaseSlug(row tabular.Row, index int) string {
	title := row.Get("Nom")
	if title == "" {
		title = row.Get("Title")
	}
	if title == "" {
		title = fmt.Sprintf("dataset-%d", index+1)
	}
	return slug.Make(title)
}

// BuildDraft converts one row into a Draft. rowNumber is 1-indexed against
// the original file with the header line counted, so data starts at row 2.
// A nil Draft means the row has no title and must be skipped; every other
// defect degrades to a warning on the Draft.
func (c *Context) BuildDraft(row tabular.Row, rowNumber int, baseSlug string) *Draft {
	var (
		title         string
		description   string
		coverage      string
		ownerOrgTitle string
		author        string
		sourceURL     string
		tags          []string
		groupSlugs    []string
		collectives   []string
		warnings      []string
	)

	for _, mapping := range c.Dictionary.Mappings() {
		rawValue := row.Get(mapping.SourceHeader)
		if rawValue == "" {
			continue
		}

		switch mapping.PortalKey {
		case dictionary.KeyTitle:
			title = rawValue
		case dictionary.KeyDescription:
			description = rawValue
		case dictionary.KeyOrganization:
			ownerOrgTitle = rawValue
		case dictionary.KeyAuthor:
			author = rawValue
		case dictionary.KeyCoverage:
			coverage = rawValue
		case dictionary.KeySourceURL:
			sourceURL = rawValue
		case dictionary.KeyTags:
			tags = tabular.SplitMulti(rawValue)
		case dictionary.KeyGroup:
			groupSlugs = valuesToSlugs(rawValue)
		case dictionary.KeyCollectives:
			collectives = valuesToSlugs(rawValue)
		}
	}

	if title == "" {
		for _, header := range titleFallbackHeaders {
			if v := row.Get(header); v != "" {
				title = v
				break
			}
		}
	}
	if title == "" {
		return nil
	}

	if baseSlug == "" {
		baseSlug = slug.Make(title)
	}
	allocated := c.Slugs.Next(baseSlug)
	datasetName := c.Names.Claim(allocated, MaxNameLength)

	groups, groupWarnings := c.resolveAmbits(groupSlugs, rowNumber)
	warnings = append(warnings, groupWarnings...)

	collectiveGroups, collectiveWarnings := c.resolveCollectives(collectives, rowNumber)
	warnings = append(warnings, collectiveWarnings...)

	payload := &Payload{
		Name:      datasetName,
		Title:     title,
		Notes:     description,
		Author:    author,
		Coverage:  coverage,
		Source:    sourceURL,
		State:     "active",
		Private:   false,
		Type:      "dataset",
		Tags:      buildTags(tags),
		Groups:    mergeGroups(groups, collectiveGroups),
		Resources: buildResources(title, sourceURL, author),
	}

	return &Draft{
		Title:         title,
		OwnerOrgTitle: ownerOrgTitle,
		Payload:       payload,
		Warnings:      warnings,
	}
}

// resolveAmbits maps ambit slugs to group assignments. Unknown labels are
// dropped with a warning naming the row.
func (c *Context) resolveAmbits(slugs []string, rowNumber int) ([]GroupRef, []string) {
	var groups []GroupRef
	var warnings []string

	for _, s := range slugs {
		entry, ok := c.Ambits[s]
		if !ok {
			warnings = append(warnings, fmt.Sprintf(
				"Row %d: Àmbit %q does not match any predefined group", rowNumber, s))
			continue
		}
		groups = append(groups, GroupRef{Name: entry.CatalogName})
	}

	return groups, warnings
}

// resolveCollectives maps collective slugs to group assignments.
func (c *Context) resolveCollectives(slugs []string, rowNumber int) ([]GroupRef, []string) {
	var groups []GroupRef
	var warnings []string

	for _, s := range slugs {
		if s == "" {
			continue
		}
		name, ok := c.Collectives[s]
		if !ok {
			warnings = append(warnings, fmt.Sprintf(
				"Row %d: Col·lectiu %q does not match any known collective", rowNumber, s))
			continue
		}
		groups = append(groups, GroupRef{Name: name})
	}

	return groups, warnings
}

// buildResources emits exactly one resource when a source URL is present.
func buildResources(title, sourceURL, author string) []Resource {
	if sourceURL == "" {
		return nil
	}

	resource := Resource{Name: title, URL: sourceURL}
	if author != "" {
		resource.Description = "Font: " + author
	}
	return []Resource{resource}
}

func buildTags(labels []string) []Tag {
	tags := make([]Tag, 0, len(labels))
	for _, label := range labels {
		tags = append(tags, Tag{Name: label})
	}
	return tags
}

// mergeGroups concatenates assignment lists, de-duplicating by name while
// preserving first-occurrence order.
func mergeGroups(lists ...[]GroupRef) []GroupRef {
	merged := []GroupRef{}
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, group := range list {
			if group.Name == "" {
				continue
			}
			if _, dup := seen[group.Name]; dup {
				continue
			}
			seen[group.Name] = struct{}{}
			merged = append(merged, group)
		}
	}
	return merged
}

func valuesToSlugs(value string) []string {
	parts := tabular.SplitMulti(value)
	slugs := make([]string, 0, len(parts))
	for _, part := range parts {
		slugs = append(slugs, slug.Make(part))
	}
	return slugs
}
