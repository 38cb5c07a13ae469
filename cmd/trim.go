package cmd

import (
	"github.com/spf13/cobra"

	"photoutils/internal/geometry"
)

var aspectRatio string

var trimCmd = &cobra.Command{
	Use:   "trim [flags] <file|folder>...",
	Short: "Crop images to an aspect ratio",
	Long: `Crop the largest centered region with the given aspect ratio
(width / height) and overwrite the image with it. Images that already have
the ratio are left untouched.

The ratio is a decimal (1.33) or a W:H pair (4:3).

Example:
  photoutils trim -r 4:3 ./photos
  photoutils trim -r 1.78 IMG_0001.JPG`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTrim,
}

var squareCmd = &cobra.Command{
	Use:   "square <file|folder>...",
	Short: "Crop images to a centered square",
	Long: `Crop images to the largest centered square. Same as trim -r 1.

Example:
  photoutils square ./photos`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSquare,
}

func init() {
	trimCmd.Flags().StringVarP(&aspectRatio, "aspect-ratio", "r", "", "Aspect ratio as width/height, e.g. 1.33 or 4:3")
	trimCmd.MarkFlagRequired("aspect-ratio")
	rootCmd.AddCommand(trimCmd)
	rootCmd.AddCommand(squareCmd)
}

func runTrim(cmd *cobra.Command, args []string) error {
	ratio, err := geometry.ParseAspectRatio(aspectRatio)
	if err != nil {
		return err
	}

	p, cleanup, err := newProcessor()
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := p.Trim(cmd.Context(), args, ratio)
	if err != nil {
		return err
	}
	return report(summary)
}

func runSquare(cmd *cobra.Command, args []string) error {
	p, cleanup, err := newProcessor()
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := p.Square(cmd.Context(), args)
	if err != nil {
		return err
	}
	return report(summary)
}
