package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espaidedades/ingest/pkg/dataset"
	"github.com/espaidedades/ingest/pkg/errors"
	"github.com/espaidedades/ingest/pkg/logging"
)

const testMaster = `Nom,Organization,Tags,Àmbits,Col·lectius,Sources URL,Author
Renda,Taula,"social, renda",Salut,Gent gran,https://example.org/renda.csv,Idescat
Salut mental,,salut,Salut,,,
,,orfe,,,,
Renda,Taula,,Desconegut,,,
`

const testDictionary = `Name in GSheets (MASTER sheet),Default name in Portal JS
Nom,Title
Organization,Organization
Tags,Tags
Àmbits,Group
Col·lectius,"New field like group (multiple selection, predefined list)"
Sources URL,Sources URL
Author,Author
`

func writeInputs(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	return Options{
		MasterPath:      write("master.csv", testMaster),
		DictionaryPath:  write("dictionary.csv", testDictionary),
		AmbitsPath:      write("ambits.csv", "Salut\nEducació\n"),
		CollectivesPath: write("collectives.csv", "Gent gran\nDones\n"),
		APIURL:          "https://catalog.example.org",
		APIKey:          "test-key",
		Apply:           true,
	}
}

func newTestRunner(t *testing.T, opts Options, catalog Catalog) *Runner {
	t.Helper()
	runner, err := NewRunner(opts, WithCatalog(catalog), WithLogger(&logging.Nop))
	require.NoError(t, err)
	return runner
}

func TestRunEndToEnd(t *testing.T) {
	opts := writeInputs(t)
	catalog := newFakeCatalog()

	summary, err := newTestRunner(t, opts, catalog).Run(context.Background())
	require.NoError(t, err)

	// Row 3 has no title; the other three are processed.
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 3, summary.Created)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 1, summary.Skipped)

	// Groups: two ambits, two predefined collectives. The master table
	// discovers no new collective.
	assert.Len(t, catalog.groups, 4)
	assert.Contains(t, catalog.groups, "salut")
	assert.Contains(t, catalog.groups, "col--gent-gran")

	// Dataset identities: duplicate titles get run-unique slugs.
	require.Contains(t, catalog.packages, "renda")
	require.Contains(t, catalog.packages, "renda-1")
	require.Contains(t, catalog.packages, "salut-mental")

	renda := catalog.packages["renda"]
	assert.Equal(t, "taula", renda.OwnerOrg)
	assert.Equal(t, []string{"social", "renda"}, tagNames(renda.Tags))
	require.Len(t, renda.Resources, 1)
	assert.Equal(t, "Font: Idescat", renda.Resources[0].Description)

	// Row 2 names no organization, so the fallback owns it.
	assert.Equal(t, DefaultOrganization, catalog.packages["salut-mental"].OwnerOrg)

	// Row 5 references an ambit outside the vocabulary.
	found := false
	for _, warning := range summary.Warnings {
		if strings.Contains(warning, "Row 5") && strings.Contains(warning, "desconegut") {
			found = true
			break
		}
	}
	assert.True(t, found, "expected a warning for the unknown ambit, got %v", summary.Warnings)
}

func TestRunIdempotence(t *testing.T) {
	opts := writeInputs(t)
	catalog := newFakeCatalog()

	first, err := newTestRunner(t, opts, catalog).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, first.Created)

	second, err := newTestRunner(t, opts, catalog).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, second.Created)
	assert.Equal(t, first.Processed, second.Updated)
	assert.Len(t, catalog.packages, 3, "re-running must not mint new identities")
}

func TestRunDatasetFilter(t *testing.T) {
	opts := writeInputs(t)
	opts.DatasetSlug = "salut-mental"
	catalog := newFakeCatalog()

	summary, err := newTestRunner(t, opts, catalog).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Contains(t, catalog.packages, "salut-mental")
	assert.NotContains(t, catalog.packages, "renda")
}

func TestRunFilterMatchesNothing(t *testing.T) {
	opts := writeInputs(t)
	opts.DatasetSlug = "no-such-dataset"
	catalog := newFakeCatalog()

	summary, err := newTestRunner(t, opts, catalog).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Processed)
	assert.Empty(t, catalog.packages)
}

func TestRunGroupsOnly(t *testing.T) {
	opts := writeInputs(t)
	opts.GroupsOnly = true
	catalog := newFakeCatalog()

	summary, err := newTestRunner(t, opts, catalog).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Processed)
	assert.NotEmpty(t, catalog.groups)
	assert.Empty(t, catalog.packages)
}

func TestRunSkipGroups(t *testing.T) {
	opts := writeInputs(t)
	opts.SkipGroups = true
	catalog := newFakeCatalog()

	_, err := newTestRunner(t, opts, catalog).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, catalog.groups)
	assert.NotEmpty(t, catalog.packages)
}

func TestRunPreviewWithoutKeyAssumesNew(t *testing.T) {
	opts := writeInputs(t)
	opts.Apply = false
	opts.APIKey = ""

	runner, err := NewRunner(opts, WithLogger(&logging.Nop))
	require.NoError(t, err)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Created)
	assert.Equal(t, 0, summary.Updated)
}

func TestRunMissingInputIsFatal(t *testing.T) {
	opts := writeInputs(t)
	opts.MasterPath = filepath.Join(t.TempDir(), "missing.csv")
	catalog := newFakeCatalog()

	_, err := newTestRunner(t, opts, catalog).Run(context.Background())
	require.Error(t, err)

	var ioErr *errors.IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestNewRunnerRequiresKeyForApply(t *testing.T) {
	opts := writeInputs(t)
	opts.APIKey = ""

	_, err := NewRunner(opts)
	require.Error(t, err)
	assert.True(t, errors.IsAPIKeyError(err))
}

func TestRunCanceledContext(t *testing.T) {
	opts := writeInputs(t)
	catalog := newFakeCatalog()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRunner(t, opts, catalog).Run(ctx)
	require.Error(t, err)
}

func tagNames(tags []dataset.Tag) []string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return names
}
