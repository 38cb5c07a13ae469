package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"photoutils/internal/batch"
	"photoutils/internal/naming"
)

var (
	renameMillis   bool
	counterLength  int
	renameModel    bool
	renamePrefix   string
	renameSuffix   string
	lowerExtension bool
	upperExtension bool
)

var renameCmd = &cobra.Command{
	Use:   "rename [flags] <file|folder>...",
	Short: "Rename photos after their capture time",
	Long: `Rename photos to yyyyMMdd_HHmmss names taken from the EXIF capture time.
Files without a capture time use their modification time.

Names are built from prefix, timestamp, model, counter and suffix joined by
underscores. The counter starts at 0 and counts up until the name is free.
With --counter-length 0 the first name has no counter.

Example:
  photoutils rename ./photos                 # 20151029_110857_00.jpg
  photoutils rename --ms -c 0 ./photos       # 20151029_110857789.jpg
  photoutils rename -m -p trip -E ./photos   # trip_20151029_110857_iPhone_6_00.JPG`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRename,
}

func init() {
	renameCmd.Flags().BoolVar(&renameMillis, "ms", false, "Include milliseconds in the timestamp")
	renameCmd.Flags().IntVarP(&counterLength, "counter-length", "c", cfg.CounterWidth, "Digits of the counter (0 = no counter unless needed)")
	renameCmd.Flags().BoolVarP(&renameModel, "model", "m", false, "Insert the camera model")
	renameCmd.Flags().StringVarP(&renamePrefix, "prefix", "p", "", "Text before the timestamp")
	renameCmd.Flags().StringVarP(&renameSuffix, "suffix", "s", "", "Text after the counter")
	renameCmd.Flags().BoolVarP(&lowerExtension, "lowercase-extension", "e", false, "Lower-case the extension")
	renameCmd.Flags().BoolVarP(&upperExtension, "uppercase-extension", "E", false, "Upper-case the extension (wins over -e)")
	rootCmd.AddCommand(renameCmd)
}

func runRename(cmd *cobra.Command, args []string) error {
	if counterLength < 0 {
		return fmt.Errorf("counter length must not be negative: %d", counterLength)
	}

	extCase := naming.ExtensionUnchanged
	switch {
	case upperExtension:
		extCase = naming.ExtensionUpper
	case lowerExtension:
		extCase = naming.ExtensionLower
	}

	p, cleanup, err := newProcessor()
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := p.Rename(cmd.Context(), args, batch.RenameOptions{
		Milliseconds:  renameMillis,
		CounterWidth:  counterLength,
		CounterLimit:  cfg.CounterLimit,
		Model:         renameModel,
		Prefix:        renamePrefix,
		Suffix:        renameSuffix,
		ExtensionCase: extCase,
	})
	if err != nil {
		return err
	}
	return report(summary)
}
