package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"photoutils/internal/batch"
	"photoutils/internal/config"
	"photoutils/internal/exifmeta"
	"photoutils/internal/format"
)

var infoCmd = &cobra.Command{
	Use:   "info <file|folder>...",
	Short: "Show format, size and capture metadata",
	Long: `Show what photoutils reads from each file: format, dimensions, size,
perceptual fingerprint, camera and capture time. With -v every EXIF tag is
listed.

Example:
  photoutils info IMG_0001.JPG
  photoutils info -v ./photos`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	loc, err := config.Location(timezone)
	if err != nil {
		return err
	}
	p := batch.NewProcessor(batch.WithLogger(log), batch.WithLocation(loc))

	failed := 0
	for i, target := range batch.ExpandTargets(args) {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		if target.Err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "[ERROR] %s : %v\n", target.Path, target.Err)
			failed++
			continue
		}
		fi, err := p.Inspect(target.Path)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "[ERROR] %s : %v\n", filepath.Base(target.Path), err)
			failed++
			continue
		}
		if i > 0 {
			fmt.Println()
		}
		printInfo(fi)
	}

	if failed > 0 {
		return fmt.Errorf("%d file(s) could not be read", failed)
	}
	return nil
}

func printInfo(fi *batch.FileInfo) {
	fmt.Println(fi.Path)
	if fi.Format != format.Unknown {
		fmt.Printf("  Format:      %s (%s)\n", fi.Format.Name(), fi.Format.ContentType())
	} else {
		fmt.Printf("  Format:      %s (not supported)\n", fi.Codec)
	}
	fmt.Printf("  Dimensions:  %s\n", fi.Dimensions)
	fmt.Printf("  Size:        %s\n", humanize.Bytes(uint64(fi.Size)))
	if fi.Format != format.Unknown {
		fmt.Printf("  Fingerprint: %016x\n", fi.Fingerprint)
	}

	m := fi.Metadata
	fmt.Printf("  Make:        %s\n", optional(m.Make))
	fmt.Printf("  Model:       %s\n", optional(m.Model))
	fmt.Printf("  Captured:    %s\n", formatOptional(m.CaptureTime))
	if m.SubSecond != nil {
		fmt.Printf("  Sub-second:  %d\n", *m.SubSecond)
	}
	fmt.Printf("  Modified:    %s (%s)\n", m.FileModified.Format("2006-01-02 15:04:05"), humanize.Time(m.FileModified))

	if verbose && len(fi.Tags) > 0 {
		fmt.Println("  EXIF:")
		for _, f := range fi.Tags {
			fmt.Printf("    %-28s %s\n", f.Name, f.Value)
		}
	}
}

func optional(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(exifmeta.DateLayout)
}
