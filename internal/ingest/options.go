// Package ingest reconciles the master spreadsheet export against the
// remote catalog. It owns the run orchestration: input loading, index
// building, taxonomy sync, row processing, and the create-vs-update
// decisions against the catalog.
package ingest

import (
	"github.com/espaidedades/ingest/pkg/errors"
)

// Defaults for the portal this tool feeds.
const (
	// DefaultOrganization owns datasets whose rows name no organization.
	DefaultOrganization = "taula-dentitats-del-tercer-sector-de-catalunya"

	// DefaultAPIURL is the portal's catalog endpoint.
	DefaultAPIURL = "https://api.cloud.portaljs.com/@taula-dentitats-del-tercer-sector-de-catalunya"
)

// Options configures one ingestion run.
type Options struct {
	// Input files.
	MasterPath      string
	DictionaryPath  string
	AmbitsPath      string
	CollectivesPath string

	// Remote catalog access. An empty APIKey disables remote lookups:
	// every record is assumed new, which is only allowed in preview mode.
	APIURL string
	APIKey string

	// Apply performs writes; the default is preview-only.
	Apply bool

	// SkipGroups bypasses taxonomy sync; GroupsOnly syncs taxonomy and
	// stops before dataset processing.
	SkipGroups bool
	GroupsOnly bool

	// DatasetSlug, when set, restricts the run to the row whose generated
	// base slug matches.
	DatasetSlug string

	// DefaultOrg overrides the fallback organization.
	DefaultOrg string
}

// Validate checks the option set before a run starts.
func (o *Options) Validate() error {
	if o.APIURL == "" {
		return errors.NewConfigError("api", "catalog URL is required", nil)
	}
	if o.Apply && o.APIKey == "" {
		return errors.NewConfigError("api", "an API key is required when running with --apply", errors.ErrAPIKeyRequired)
	}
	if o.MasterPath == "" || o.DictionaryPath == "" || o.AmbitsPath == "" || o.CollectivesPath == "" {
		return errors.NewConfigError("inputs", "all four input files are required", nil)
	}
	return nil
}

// defaultOrg returns the configured fallback organization name.
func (o *Options) defaultOrg() string {
	if o.DefaultOrg != "" {
		return o.DefaultOrg
	}
	return DefaultOrganization
}
