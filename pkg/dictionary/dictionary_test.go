package dictionary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espaidedades/ingest/pkg/tabular"
)

func dictRow(source, portal string) tabular.Row {
	return tabular.Row{
		"Name in GSheets (MASTER sheet)": source,
		"Default name in Portal JS":      portal,
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Sources URL", "sourcesurl"},
		{"Descripció", "descripcio"},
		{"Tags", "tags"},
		{"New field like group (multiple selection, predefined list)", KeyCollectives},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeKey(tt.input))
		})
	}
}

func TestBuildExactMatch(t *testing.T) {
	lookup := NewHeaderLookup([]string{"Nom", "Organization", "Tags"})
	dict, warnings := Build([]tabular.Row{
		dictRow("Nom", "Title"),
		dictRow("Organization", "Organization"),
		dictRow("Tags", "Tags"),
	}, lookup)

	assert.Empty(t, warnings)
	require.Len(t, dict.Mappings(), 3)
	assert.Equal(t, FieldMapping{SourceHeader: "Nom", PortalName: "Title", PortalKey: KeyTitle}, dict.Mappings()[0])
}

func TestBuildSingularFallback(t *testing.T) {
	// The dictionary declares "Tags" but the master table header is "Tag".
	lookup := NewHeaderLookup([]string{"Nom", "Tag"})
	dict, warnings := Build([]tabular.Row{dictRow("Tags", "Tags")}, lookup)

	assert.Empty(t, warnings)
	require.Len(t, dict.Mappings(), 1)
	assert.Equal(t, "Tag", dict.Mappings()[0].SourceHeader)
	assert.Equal(t, KeyTags, dict.Mappings()[0].PortalKey)
}

func TestBuildUnresolvableRowWarns(t *testing.T) {
	lookup := NewHeaderLookup([]string{"Nom"})
	dict, warnings := Build([]tabular.Row{
		dictRow("Nom", "Title"),
		dictRow("Cobertura", "Coverage"),
	}, lookup)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Cobertura")
	assert.Len(t, dict.Mappings(), 1)
}

func TestBuildSkipsIncompleteRows(t *testing.T) {
	lookup := NewHeaderLookup([]string{"Nom"})
	dict, warnings := Build([]tabular.Row{
		dictRow("", "Title"),
		dictRow("Nom", ""),
	}, lookup)

	assert.Empty(t, warnings)
	assert.Empty(t, dict.Mappings())
}

func TestBuildAlternateSourceColumn(t *testing.T) {
	lookup := NewHeaderLookup([]string{"Nom"})
	dict, warnings := Build([]tabular.Row{{
		"Name in GSheets":           "Nom",
		"Default name in Portal JS": "Title",
	}}, lookup)

	assert.Empty(t, warnings)
	require.Len(t, dict.Mappings(), 1)
	assert.Equal(t, KeyTitle, dict.Mappings()[0].PortalKey)
}

func TestHeaderForKey(t *testing.T) {
	lookup := NewHeaderLookup([]string{"Nom", "Col·lectius"})
	dict, _ := Build([]tabular.Row{
		dictRow("Nom", "Title"),
		dictRow("Col·lectius", "New field like group (multiple selection, predefined list)"),
	}, lookup)

	assert.Equal(t, "Col·lectius", dict.HeaderForKey(KeyCollectives))
	assert.Equal(t, "", dict.HeaderForKey("missing"))
}

func TestNewHeaderLookupFirstWins(t *testing.T) {
	lookup := NewHeaderLookup([]string{"Tags", "TAGS", ""})
	assert.Equal(t, "Tags", lookup["tags"])
	assert.Len(t, lookup, 1)
}
