package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"photoutils/internal/exifcodec"
	"photoutils/internal/exifmeta"
	"photoutils/internal/fileutil"
	"photoutils/internal/models"
)

const undefined = "Undefined"

// ExifOptions describes a capture time change. Set and Clear are exclusive;
// a non-zero Delta shifts the (possibly just set) capture time.
type ExifOptions struct {
	Set       *time.Time
	SubSecond *int // written with Set; nil removes the tag
	Clear     bool
	Delta     int64 // seconds
}

func (o ExifOptions) validate() error {
	if o.Set != nil && o.Clear {
		return fmt.Errorf("cannot set and clear the capture time at once")
	}
	if o.Set == nil && !o.Clear && o.Delta == 0 {
		return fmt.Errorf("nothing to change")
	}
	return nil
}

// ModifyExif sets, clears and/or shifts the capture time of every target.
// Setting happens before shifting when both are requested.
func (p *Processor) ModifyExif(ctx context.Context, args []string, opts ExifOptions) (*Summary, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	action := models.ActionAdjust
	switch {
	case opts.Clear:
		action = models.ActionClear
	case opts.Set != nil:
		action = models.ActionSet
	}

	return p.run(ctx, "modexif", args, action, func(ctx context.Context, path string) (*models.Operation, error) {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat file: %w", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		meta, err := p.decodeMetadata(data, info)
		if err != nil {
			return nil, err
		}

		name := filepath.Base(path)
		before := describeCapture(meta.CaptureTime, meta.SubSecond)
		var edits []exifmeta.Edit

		// Capture time as it stands after each step.
		capture, subSecond := meta.CaptureTime, meta.SubSecond

		if opts.Set != nil || opts.Clear {
			fmt.Fprintf(p.out, "[SET] %s : %s => %s\n", name, before, describeCapture(opts.Set, opts.SubSecond))
			upd := exifmeta.BuildUpdate(*meta, opts.Set, opts.SubSecond)
			edits = append(edits, upd.Edits...)

			capture, subSecond = opts.Set, opts.SubSecond
			if opts.Set == nil {
				subSecond = nil
			}
		}

		if opts.Delta != 0 {
			current := exifmeta.CaptureMetadata{CaptureTime: capture, SubSecond: subSecond}
			upd, adjusted, ok := exifmeta.AdjustUpdate(current, opts.Delta)
			if ok {
				fmt.Fprintf(p.out, "[ADJUST] %s : %s => %s\n", name,
					capture.Format(exifmeta.DateLayout), adjusted.Format(exifmeta.DateLayout))
				edits = append(edits, upd.Edits...)
				capture = &adjusted
			} else {
				p.log.Info("%s: no capture time to adjust", name)
			}
		}

		op := &models.Operation{
			Path:   path,
			Action: action,
			Before: before,
			After:  describeCapture(capture, subSecond),
		}

		out, changed, err := exifcodec.Rewrite(data, mergeEdits(edits))
		if err != nil {
			return nil, err
		}
		if !changed {
			op.Status = models.StatusSkipped
			return op, nil
		}

		op.Status = p.doneStatus()
		if p.dryRun {
			return op, nil
		}
		if err := fileutil.WriteFileAtomic(path, out); err != nil {
			return nil, err
		}
		return op, nil
	})
}

// mergeEdits keeps only the last edit of each tag, in first-seen order.
func mergeEdits(edits []exifmeta.Edit) []exifmeta.Edit {
	index := make(map[exifmeta.Tag]int, len(edits))
	var merged []exifmeta.Edit
	for _, e := range edits {
		if i, ok := index[e.Tag]; ok {
			merged[i] = e
			continue
		}
		index[e.Tag] = len(merged)
		merged = append(merged, e)
	}
	return merged
}

func describeCapture(t *time.Time, subSecond *int) string {
	if t == nil {
		return undefined
	}
	s := t.Format(exifmeta.DateLayout)
	if subSecond != nil {
		s += fmt.Sprintf(" (%d)", *subSecond)
	}
	return s
}
