package ingest

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/espaidedades/ingest/internal/ckan"
	"github.com/espaidedades/ingest/pkg/dataset"
	"github.com/espaidedades/ingest/pkg/dictionary"
	"github.com/espaidedades/ingest/pkg/logging"
	"github.com/espaidedades/ingest/pkg/slug"
	"github.com/espaidedades/ingest/pkg/tabular"
	"github.com/espaidedades/ingest/pkg/taxonomy"
)

// Runner orchestrates one ingestion run: load inputs, build indexes, sync
// taxonomy, then process rows sequentially.
type Runner struct {
	opts    Options
	logger  *zerolog.Logger
	catalog Catalog
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the run logger.
func WithLogger(logger *zerolog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithCatalog injects a remote catalog. Used by tests; the default is a
// ckan.Client when an API key is configured, nil otherwise.
func WithCatalog(catalog Catalog) RunnerOption {
	return func(r *Runner) { r.catalog = catalog }
}

// NewRunner validates options and prepares a run.
func NewRunner(opts Options, runnerOpts ...RunnerOption) (*Runner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{opts: opts, logger: logging.Default()}
	for _, opt := range runnerOpts {
		opt(r)
	}

	if r.catalog == nil && opts.APIKey != "" {
		r.catalog = ckan.New(opts.APIURL, opts.APIKey)
	}

	return r, nil
}

// inputs holds the four loaded input files.
type inputs struct {
	master      *tabular.Table
	dict        *tabular.Table
	ambits      []string
	collectives []string
}

// rowMeta pairs a master row with its file position and pre-allocation slug.
// Row numbers are 1-indexed with the header line counted, so data starts at
// row 2.
type rowMeta struct {
	row       tabular.Row
	rowNumber int
	baseSlug  string
}

// Run performs the ingestion and returns the aggregated summary. A non-nil
// error is fatal; the summary still reflects the progress made before it.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	if !r.opts.Apply {
		r.logger.Info().Msg("Running in preview mode. Pass --apply to push changes to the catalog.")
	}
	if r.catalog == nil {
		r.logger.Warn().Msg("API key is not set. Remote lookups are disabled; assuming that all datasets and groups are new.")
	}

	in, err := r.load(ctx)
	if err != nil {
		return summary, err
	}

	lookup := dictionary.NewHeaderLookup(in.master.Headers)
	dict, dictWarnings := dictionary.Build(in.dict.Rows, lookup)
	for _, warning := range dictWarnings {
		r.logger.Warn().Msg(warning)
	}
	summary.Warn(dictWarnings...)

	collectivesHeader := dict.HeaderForKey(dictionary.KeyCollectives)
	discovered := taxonomy.CollectValues(in.master.Rows, collectivesHeader)

	ambitEntries := taxonomy.BuildAmbits(in.ambits)
	collectiveEntries, collectiveNames := taxonomy.BuildCollectives(in.collectives, discovered)
	allGroups := append(append([]taxonomy.Entry{}, ambitEntries...), collectiveEntries...)

	var writer CatalogWriter
	if r.opts.Apply {
		writer = &applyWriter{catalog: r.catalog, logger: r.logger}
	} else {
		writer = &previewWriter{logger: r.logger}
	}
	reconciler := NewReconciler(r.catalog, writer, r.opts.defaultOrg(), r.logger)

	if !r.opts.SkipGroups {
		if err := reconciler.SyncGroups(ctx, allGroups); err != nil {
			return summary, err
		}
	}
	if r.opts.GroupsOnly {
		r.logger.Info().Msg("Finished syncing groups only.")
		return summary, nil
	}

	rows := make([]rowMeta, 0, len(in.master.Rows))
	for i, row := range in.master.Rows {
		rows = append(rows, rowMeta{
			row:       row,
			rowNumber: i + 2,
			baseSlug:  dataset.BaseSlug(row, i),
		})
	}

	if filter := slug.Make(r.opts.DatasetSlug); filter != "" {
		filtered := rows[:0]
		for _, entry := range rows {
			if entry.baseSlug == filter {
				filtered = append(filtered, entry)
			}
		}
		rows = filtered
	}

	if len(rows) == 0 {
		r.logger.Info().Msg("Nothing to ingest with the current filters.")
		return summary, nil
	}

	r.logger.Info().
		Int("rows", len(rows)).
		Int("first_row", rows[0].rowNumber).
		Int("last_row", rows[len(rows)-1].rowNumber).
		Msg("Processing dataset rows")

	rowCtx := &dataset.Context{
		Dictionary:  dict,
		Slugs:       slug.NewAllocator(),
		Names:       slug.NewNameRegistry(),
		Ambits:      taxonomy.NewIndex(ambitEntries),
		Collectives: collectiveNames,
	}

	for _, entry := range rows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := r.processRow(ctx, entry, rowCtx, reconciler, summary); err != nil {
			return summary, err
		}
	}

	r.logger.Info().
		Int("created", summary.Created).
		Int("updated", summary.Updated).
		Int("skipped", summary.Skipped).
		Msg("Import complete")

	return summary, nil
}

// processRow transforms one row and reconciles it against the catalog.
// Returned errors are fatal to the run; per-row defects become warnings.
func (r *Runner) processRow(ctx context.Context, entry rowMeta, rowCtx *dataset.Context, reconciler *Reconciler, summary *Summary) error {
	draft := rowCtx.BuildDraft(entry.row, entry.rowNumber, entry.baseSlug)
	if draft == nil {
		summary.Skipped++
		summary.Warnf("Row %d: missing title. Skipping row.", entry.rowNumber)
		r.logger.Warn().Int("row", entry.rowNumber).Msg("Missing title. Skipping row.")
		return nil
	}

	for _, warning := range draft.Warnings {
		r.logger.Warn().Msg(warning)
	}
	summary.Warn(draft.Warnings...)

	ownerOrg, err := reconciler.ResolveOrganization(ctx, draft.OwnerOrgTitle, entry.rowNumber)
	if err != nil {
		return err
	}
	if ownerOrg == "" {
		summary.Skipped++
		summary.Warnf("Row %d: unable to resolve organization for dataset %q. Skipping.", entry.rowNumber, draft.Title)
		r.logger.Warn().Int("row", entry.rowNumber).Str("dataset", draft.Title).Msg("Unable to resolve organization. Skipping row.")
		return nil
	}
	draft.Payload.OwnerOrg = ownerOrg

	action, err := reconciler.UpsertDataset(ctx, draft.Payload)
	if err != nil {
		return err
	}

	summary.Processed++
	switch action {
	case ActionCreated:
		summary.Created++
	case ActionUpdated:
		summary.Updated++
	}
	return nil
}

// load reads the four input files in parallel; they are independent.
func (r *Runner) load(ctx context.Context) (*inputs, error) {
	in := &inputs{}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.master, err = tabular.ParseFile(r.opts.MasterPath)
		return err
	})
	g.Go(func() error {
		var err error
		in.dict, err = tabular.ParseFile(r.opts.DictionaryPath)
		return err
	})
	g.Go(func() error {
		var err error
		in.ambits, err = tabular.ReadList(r.opts.AmbitsPath)
		return err
	})
	g.Go(func() error {
		var err error
		in.collectives, err = tabular.ReadList(r.opts.CollectivesPath)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}
