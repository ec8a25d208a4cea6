package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/espaidedades/ingest/internal/ingest"
)

// runFlags collects the ingestion-specific command flags.
type runFlags struct {
	apply      bool
	dryRun     bool
	skipGroups bool
	groupsOnly bool
	dataset    string
}

// Execute runs the ingest CLI application with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command.
func (a *App) createRootCommand() *cobra.Command {
	var flags runFlags

	rootCmd := &cobra.Command{
		Use:     "ingest [apiKey] [apiUrl] [dataset]",
		Short:   "Reconcile the master spreadsheet against the data catalog",
		Version: a.version,
		Long: `Ingest reads the master spreadsheet export (master table, field
dictionary, and the Àmbits and Col·lectius label lists) and reconciles it
against the remote catalog, creating or updating datasets, groups, and
organizations so the spreadsheet is the source of truth.

By default the run is a preview: every intended write is computed and
logged, but nothing is sent to the catalog. Pass --apply to push changes.`,
		Example: `  ingest                                   # Preview the full import
  ingest --apply                           # Push changes to the catalog
  ingest --groups-only                     # Only sync taxonomy groups
  ingest --dataset renda                   # Process a single row by slug
  ingest $CKAN_API_KEY --apply             # Credential as positional argument`,
		Args:              cobra.MaximumNArgs(3),
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.applyPositionalArgs(args, &flags)
			return a.run(cmd.Context(), &flags)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&a.config.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().BoolVar(&a.config.NoColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&a.config.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.Flags().BoolVar(&flags.apply, "apply", false, "persist changes to the catalog")
	rootCmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "preview the import without writing (default)")
	rootCmd.Flags().BoolVar(&flags.skipGroups, "skip-groups", false, "do not create/update groups before ingesting datasets")
	rootCmd.Flags().BoolVar(&flags.groupsOnly, "groups-only", false, "only create/update groups, skip datasets")
	rootCmd.Flags().StringVar(&flags.dataset, "dataset", "", "only process the dataset whose slug matches the value")

	rootCmd.Flags().StringVar(&a.config.APIKey, "api-key", a.config.APIKey, "catalog API key (CKAN_API_KEY)")
	rootCmd.Flags().StringVar(&a.config.APIURL, "api-url", a.config.APIURL, "catalog base URL (CKAN_URL)")
	rootCmd.Flags().StringVar(&a.config.MasterPath, "master", a.config.MasterPath, "master table CSV")
	rootCmd.Flags().StringVar(&a.config.DictionaryPath, "dictionary", a.config.DictionaryPath, "field dictionary CSV")
	rootCmd.Flags().StringVar(&a.config.AmbitsPath, "ambits", a.config.AmbitsPath, "ambit label list")
	rootCmd.Flags().StringVar(&a.config.CollectivesPath, "collectives", a.config.CollectivesPath, "collective label list")

	rootCmd.SetVersionTemplate("ingest {{.Version}}\n")

	return rootCmd
}

// applyPositionalArgs maps loose positional arguments onto the credential,
// URL, and dataset filter, in that order, when the flags left them empty.
func (a *App) applyPositionalArgs(args []string, flags *runFlags) {
	for _, arg := range args {
		switch {
		case a.config.APIKey == "":
			a.config.APIKey = arg
		case a.config.APIURL == "" || a.config.APIURL == ingest.DefaultAPIURL:
			a.config.APIURL = arg
		case flags.dataset == "":
			flags.dataset = arg
		}
	}
}

// setupCommand is called before the command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	verbose := mustGetBool(cmd, "verbose")
	quiet := mustGetBool(cmd, "quiet")
	noColor := mustGetBool(cmd, "no-color")
	logLevel := mustGetString(cmd, "log-level")

	a.config.UpdateFromFlags(verbose, quiet, noColor, logLevel)

	// Reinitialize logger with updated config
	logger := NewLogger(a.config)
	a.logger = &logger

	return nil
}

// run performs the ingestion and prints the summary.
func (a *App) run(ctx context.Context, flags *runFlags) error {
	// --dry-run forces preview even when --apply is also given.
	apply := flags.apply && !flags.dryRun

	opts := ingest.Options{
		MasterPath:      a.config.MasterPath,
		DictionaryPath:  a.config.DictionaryPath,
		AmbitsPath:      a.config.AmbitsPath,
		CollectivesPath: a.config.CollectivesPath,
		APIURL:          a.config.APIURL,
		APIKey:          a.config.APIKey,
		Apply:           apply,
		SkipGroups:      flags.skipGroups,
		GroupsOnly:      flags.groupsOnly,
		DatasetSlug:     flags.dataset,
	}

	runner, err := ingest.NewRunner(opts, ingest.WithLogger(a.logger))
	if err != nil {
		return err
	}

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	printSummary(summary, flags.groupsOnly)
	return nil
}

// printSummary writes the human-readable run summary to stdout, with all
// collected warnings grouped under a single heading.
func printSummary(summary *ingest.Summary, groupsOnly bool) {
	if groupsOnly {
		fmt.Println("Finished syncing groups only.")
		return
	}

	fmt.Printf("Import complete. Created: %d, Updated: %d, Skipped: %d.\n",
		summary.Created, summary.Updated, summary.Skipped)

	if len(summary.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, warning := range summary.Warnings {
			fmt.Printf(" - %s\n", warning)
		}
	}
}

// ExitOnError prints an error and exits with status 1. Meant for top-level
// error handling in main.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't
// exist. Only for flags defined in this package.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't
// exist. Only for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
