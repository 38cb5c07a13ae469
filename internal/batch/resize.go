package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"photoutils/internal/fileutil"
	"photoutils/internal/imaging"
	"photoutils/internal/models"
)

// ResizeOptions selects the target size. LongSide wins when Width and Height
// are both zero; otherwise Width/Height are used with 0 meaning "keep ratio".
type ResizeOptions struct {
	LongSide int
	Width    int
	Height   int
}

func (o ResizeOptions) validate() error {
	if o.LongSide < 0 || o.Width < 0 || o.Height < 0 {
		return fmt.Errorf("sizes must not be negative")
	}
	if o.LongSide == 0 && o.Width == 0 && o.Height == 0 {
		return fmt.Errorf("no target size given")
	}
	return nil
}

// Resize scales every target image and replaces the file in place
func (p *Processor) Resize(ctx context.Context, args []string, opts ResizeOptions) (*Summary, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return p.run(ctx, "resize", args, models.ActionResize, func(ctx context.Context, path string) (*models.Operation, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}

		var res *imaging.Result
		if opts.Width > 0 || opts.Height > 0 {
			res, err = imaging.ResizeTo(data, opts.Width, opts.Height)
		} else {
			res, err = imaging.ResizeLongSide(data, opts.LongSide)
		}
		if err != nil {
			return nil, err
		}

		fmt.Fprintf(p.out, "[RESIZE] %s : %s => %s\n", filepath.Base(path), res.Before, res.After)
		return p.commitImage(path, models.ActionResize, res)
	})
}

// Trim crops every target image to the largest centered region with the
// given width/height ratio
func (p *Processor) Trim(ctx context.Context, args []string, ratio float64) (*Summary, error) {
	if ratio <= 0 {
		return nil, fmt.Errorf("aspect ratio must be positive: %v", ratio)
	}
	return p.crop(ctx, "trim", args, func(data []byte) (*imaging.Result, error) {
		return imaging.Crop(data, ratio)
	})
}

// Square crops every target image to its largest centered square
func (p *Processor) Square(ctx context.Context, args []string) (*Summary, error) {
	return p.crop(ctx, "square", args, imaging.Square)
}

func (p *Processor) crop(ctx context.Context, command string, args []string, cut func([]byte) (*imaging.Result, error)) (*Summary, error) {
	return p.run(ctx, command, args, models.ActionTrim, func(ctx context.Context, path string) (*models.Operation, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}

		res, err := cut(data)
		if err != nil {
			return nil, err
		}

		fmt.Fprintf(p.out, "[TRIM] %s : %s => %s\n", filepath.Base(path), res.Before, res.After)
		return p.commitImage(path, models.ActionTrim, res)
	})
}

func (p *Processor) commitImage(path string, action models.Action, res *imaging.Result) (*models.Operation, error) {
	op := &models.Operation{
		Path:       path,
		Action:     action,
		Before:     res.Before.String(),
		After:      res.After.String(),
		SourceHash: fmt.Sprintf("%016x", res.SourceHash),
		ResultHash: fmt.Sprintf("%016x", res.ResultHash),
	}
	if res.Crop != nil {
		op.After = res.Crop.String()
	}

	p.log.Info("%s: perceptual distance %d", filepath.Base(path), imaging.HammingDistance(res.SourceHash, res.ResultHash))

	if res.Unchanged {
		op.Status = models.StatusSkipped
		return op, nil
	}

	op.Status = p.doneStatus()
	if p.dryRun {
		return op, nil
	}
	if err := fileutil.WriteFileAtomic(path, res.Data); err != nil {
		return nil, err
	}
	return op, nil
}
