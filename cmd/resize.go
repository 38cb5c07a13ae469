package cmd

import (
	"github.com/spf13/cobra"

	"photoutils/internal/batch"
)

var (
	resizeMax    int
	resizeWidth  int
	resizeHeight int
)

var resizeCmd = &cobra.Command{
	Use:   "resize [flags] <file|folder>...",
	Short: "Resize images in place",
	Long: `Resize images and overwrite them with the result.

Give either the length of the long side (--max), or a width and/or height.
A width or height of 0 is computed from the aspect ratio. JPEG files keep
their EXIF metadata.

Example:
  photoutils resize --max 1600 ./photos
  photoutils resize -w 800 IMG_0001.JPG
  photoutils resize -w 640 -H 480 --dry-run ./photos`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResize,
}

func init() {
	resizeCmd.Flags().IntVarP(&resizeMax, "max", "m", 0, "Length of the long side (px)")
	resizeCmd.Flags().IntVarP(&resizeWidth, "width", "w", 0, "Width after resizing (px, 0 = keep ratio)")
	resizeCmd.Flags().IntVarP(&resizeHeight, "height", "H", 0, "Height after resizing (px, 0 = keep ratio)")
	rootCmd.AddCommand(resizeCmd)
}

func runResize(cmd *cobra.Command, args []string) error {
	p, cleanup, err := newProcessor()
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := p.Resize(cmd.Context(), args, batch.ResizeOptions{
		LongSide: resizeMax,
		Width:    resizeWidth,
		Height:   resizeHeight,
	})
	if err != nil {
		return err
	}
	return report(summary)
}
