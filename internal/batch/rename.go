package batch

import (
	"context"
	"fmt"
	"path/filepath"

	"photoutils/internal/fileutil"
	"photoutils/internal/models"
	"photoutils/internal/naming"
)

// DefaultCounterLimit is the highest counter tried when RenameOptions leaves
// CounterLimit at zero.
const DefaultCounterLimit = 9999

// RenameOptions controls the generated names
type RenameOptions struct {
	Milliseconds  bool
	CounterWidth  int
	CounterLimit  int  // highest counter tried before the file fails
	Model         bool // insert the camera model
	Prefix        string
	Suffix        string
	ExtensionCase naming.ExtensionCase
}

// Rename gives every target a name derived from its capture time (or file
// modification time when the capture time is unknown)
func (p *Processor) Rename(ctx context.Context, args []string, opts RenameOptions) (*Summary, error) {
	if opts.CounterWidth < 0 {
		return nil, fmt.Errorf("counter length must not be negative: %d", opts.CounterWidth)
	}
	if opts.CounterLimit < 0 {
		return nil, fmt.Errorf("counter limit must not be negative: %d", opts.CounterLimit)
	}
	limit := opts.CounterLimit
	if limit == 0 {
		limit = DefaultCounterLimit
	}

	// Names freed or claimed earlier in this batch. Needed for dry runs,
	// where the file system does not reflect earlier renames.
	claimed := make(map[string]bool)
	exists := func(path string) bool {
		if taken, ok := claimed[path]; ok {
			return taken
		}
		return fileutil.Exists(path)
	}

	return p.run(ctx, "rename", args, models.ActionRename, func(ctx context.Context, path string) (*models.Operation, error) {
		meta, err := p.LoadMetadata(path)
		if err != nil {
			return nil, err
		}

		_, ext := naming.SplitExt(path)
		req := naming.Request{
			Time:          meta.EffectiveTime(),
			Milliseconds:  opts.Milliseconds,
			Prefix:        opts.Prefix,
			Suffix:        opts.Suffix,
			Extension:     ext,
			ExtensionCase: opts.ExtensionCase,
			CounterWidth:  opts.CounterWidth,
		}
		if opts.Model {
			req.Model = meta.ModelTag()
		}

		dir := filepath.Dir(path)
		oldName := filepath.Base(path)
		newName, err := naming.NextAvailableLimit(req, func(name string) bool {
			// The file's own name is free: it is about to be vacated.
			if name == oldName {
				return false
			}
			return exists(filepath.Join(dir, name))
		}, limit)
		if err != nil {
			return nil, err
		}
		newPath := filepath.Join(dir, newName)

		op := &models.Operation{
			Path:    path,
			NewPath: newPath,
			Action:  models.ActionRename,
			Before:  oldName,
			After:   newName,
		}
		if newName == oldName {
			op.Status = models.StatusSkipped
			return op, nil
		}

		fmt.Fprintf(p.out, "[RENAME] %s => %s\n", oldName, newName)
		op.Status = p.doneStatus()
		if !p.dryRun {
			if err := fileutil.Move(path, newPath); err != nil {
				return nil, fmt.Errorf("failed to rename: %w", err)
			}
		}
		claimed[path] = false
		claimed[newPath] = true
		return op, nil
	})
}
