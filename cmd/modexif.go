package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"photoutils/internal/batch"
	"photoutils/internal/exifmeta"
)

var (
	setDateTime  string
	clearCapture bool
	addDays      int
	addHours     int
	addMinutes   int
	addSeconds   int
)

var modexifCmd = &cobra.Command{
	Use:   "modexif [flags] <file|folder>...",
	Short: "Set, clear or shift the EXIF capture time",
	Long: `Change DateTimeOriginal and SubSecTimeOriginal of JPEG files.

--datetime sets the capture time (yyyyMMddHHmmss, optionally followed by
three digits of milliseconds). --clear removes it. The --add-* flags shift
the capture time; when combined with --datetime the shift is applied to the
new value. Files without a capture time are not shifted.

Example:
  photoutils modexif -t 20151029110857 IMG_0001.JPG
  photoutils modexif -t 20151029110857789 IMG_0001.JPG
  photoutils modexif -H -9 -M 30 ./photos
  photoutils modexif --clear ./photos`,
	Args: cobra.MinimumNArgs(1),
	RunE: runModexif,
}

func init() {
	modexifCmd.Flags().StringVarP(&setDateTime, "datetime", "t", "", "Capture time as yyyyMMddHHmmss[SSS]")
	modexifCmd.Flags().BoolVar(&clearCapture, "clear", false, "Remove the capture time")
	modexifCmd.Flags().IntVarP(&addDays, "add-days", "d", 0, "Days to add (negative to subtract)")
	modexifCmd.Flags().IntVarP(&addHours, "add-hours", "H", 0, "Hours to add")
	modexifCmd.Flags().IntVarP(&addMinutes, "add-minutes", "M", 0, "Minutes to add")
	modexifCmd.Flags().IntVarP(&addSeconds, "add-seconds", "S", 0, "Seconds to add")
	modexifCmd.MarkFlagsMutuallyExclusive("datetime", "clear")
	rootCmd.AddCommand(modexifCmd)
}

func runModexif(cmd *cobra.Command, args []string) error {
	opts := batch.ExifOptions{
		Clear: clearCapture,
		Delta: exifmeta.OffsetSeconds(addDays, addHours, addMinutes, addSeconds),
	}
	if setDateTime != "" {
		t, ms, err := exifmeta.ParseTimestampArg(setDateTime)
		if err != nil {
			return err
		}
		opts.Set = &t
		opts.SubSecond = ms
	}
	if opts.Set == nil && !opts.Clear && opts.Delta == 0 {
		return fmt.Errorf("nothing to change: use --datetime, --clear or one of the --add-* flags")
	}

	p, cleanup, err := newProcessor()
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := p.ModifyExif(cmd.Context(), args, opts)
	if err != nil {
		return err
	}
	return report(summary)
}
