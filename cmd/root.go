package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"photoutils/internal/batch"
	"photoutils/internal/config"
	"photoutils/internal/logger"
	"photoutils/internal/storage"
)

// Version is set at build time with -ldflags "-X photoutils/cmd.Version=..."
var Version = "dev"

// Config is loaded before any init so subcommands can use it for flag defaults.
var cfg, configErr = loadConfig()

var (
	journalPath string
	noJournal   bool
	dryRun      bool
	verbose     bool
	timezone    string

	log = logger.New(os.Stdout, os.Stderr, false)
)

var rootCmd = &cobra.Command{
	Use:   "photoutils",
	Short: "Batch tools for photo files",
	Long: `photoutils resizes, crops and renames photos and edits their EXIF capture time.

Every command accepts files and directories. A directory stands for the
*.jpg and *.jpeg files directly inside it. Files are processed in order;
a file that fails is reported and the rest are still processed.

Example usage:
  photoutils resize --max 1600 ./photos     # Long side to 1600 px
  photoutils square ./photos                # Crop to 1:1
  photoutils rename -c 3 ./photos           # 20151029_110857_000.jpg
  photoutils modexif -H -9 ./photos         # Shift capture time by -9 hours
  photoutils history                        # Show what was done`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configErr != nil {
			return fmt.Errorf("failed to load configuration: %w", configErr)
		}
		log.SetVerbose(verbose)
		if cfg.EnvFile != "" {
			log.Info("loaded %s", cfg.EnvFile)
		}
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error("%v", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig falls back to built-in defaults when the configuration is
// invalid; the error is reported once a command runs.
func loadConfig() (*config.Config, error) {
	c, err := config.Load()
	if err != nil {
		homeDir, _ := os.UserHomeDir()
		return &config.Config{
			JournalPath:    filepath.Join(homeDir, ".photoutils", "journal.db"),
			JournalEnabled: true,
			Timezone:       "Local",
			CounterWidth:   2,
			CounterLimit:   batch.DefaultCounterLimit,
		}, err
	}
	return c, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&journalPath, "journal", cfg.JournalPath, "Path to the SQLite operation journal")
	rootCmd.PersistentFlags().BoolVar(&noJournal, "no-journal", !cfg.JournalEnabled, "Do not record operations")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Show what would change without writing files")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&timezone, "tz", cfg.Timezone, "Time zone of EXIF timestamps (IANA name or Local)")
}

// newProcessor builds a batch processor from the global flags. The returned
// cleanup closes the journal.
func newProcessor() (*batch.Processor, func(), error) {
	loc, err := config.Location(timezone)
	if err != nil {
		return nil, nil, err
	}

	opts := []batch.Option{
		batch.WithDryRun(dryRun),
		batch.WithLogger(log),
		batch.WithLocation(loc),
	}
	if verbose {
		opts = append(opts, batch.WithProgress(func(done, total int, current string) {
			log.Info("%d/%d %s", done+1, total, shortenPath(current, 50))
		}))
	}
	cleanup := func() {}

	if !noJournal {
		store, err := storage.NewStorage(journalPath)
		if err != nil {
			// Run without a journal.
			log.Warning("journal unavailable: %v", err)
		} else {
			log.Info("journal: %s", store.Path())
			opts = append(opts, batch.WithJournal(store))
			cleanup = func() { store.Close() }
		}
	}

	if dryRun {
		fmt.Println("Dry run: no files will be changed")
	}

	return batch.NewProcessor(opts...), cleanup, nil
}

// report prints the summary line of a batch and turns failures into an error
func report(summary *batch.Summary) error {
	if verbose || summary.Failed > 0 {
		fmt.Printf("\nProcessed: %d  Changed: %d  Unchanged: %d  Failed: %d\n",
			summary.Processed, summary.Changed, summary.Skipped, summary.Failed)
	}
	if summary.RunID != "" {
		log.Info("run %s", summary.RunID)
	}
	return summary.Err()
}
