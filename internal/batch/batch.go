// Package batch applies photo operations to lists of files and directories.
//
// Files are processed one after another in argument order; directories
// expand to the JPEG files they directly contain. A failing file is reported
// and the batch moves on to the next one.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"photoutils/internal/format"
	"photoutils/internal/logger"
	"photoutils/internal/models"
)

// ErrPartialFailure is returned when at least one file of a batch failed.
var ErrPartialFailure = errors.New("some files could not be processed")

// Journal records runs and their file operations.
type Journal interface {
	StartRun(command, args string, dryRun bool) (*models.Run, error)
	FinishRun(run *models.Run) error
	RecordOperation(op *models.Operation) error
}

// Processor runs batch operations
type Processor struct {
	journal    Journal
	dryRun     bool
	out        io.Writer
	errOut     io.Writer
	log        *logger.Logger
	loc        *time.Location
	progressFn func(done, total int, current string)
}

// Option configures a Processor
type Option func(*Processor)

// WithJournal records every run in j
func WithJournal(j Journal) Option {
	return func(p *Processor) {
		p.journal = j
	}
}

// WithDryRun reports planned changes without writing any file
func WithDryRun(dryRun bool) Option {
	return func(p *Processor) {
		p.dryRun = dryRun
	}
}

// WithOutput sets where result lines and per-file errors are printed
func WithOutput(out, errOut io.Writer) Option {
	return func(p *Processor) {
		if out != nil {
			p.out = out
		}
		if errOut != nil {
			p.errOut = errOut
		}
	}
}

// WithLogger sets the diagnostic logger
func WithLogger(l *logger.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

// WithLocation sets the zone EXIF timestamps are interpreted in
func WithLocation(loc *time.Location) Option {
	return func(p *Processor) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithProgress sets a callback invoked before each file
func WithProgress(fn func(done, total int, current string)) Option {
	return func(p *Processor) {
		p.progressFn = fn
	}
}

// NewProcessor creates a new Processor
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		out:    os.Stdout,
		errOut: os.Stderr,
		log:    logger.Discard(),
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Summary counts the outcome of a batch
type Summary struct {
	RunID     string
	Processed int
	Changed   int
	Skipped   int
	Failed    int
}

// Err returns ErrPartialFailure when any file failed
func (s *Summary) Err() error {
	if s.Failed > 0 {
		return fmt.Errorf("%w: %d of %d failed", ErrPartialFailure, s.Failed, s.Processed)
	}
	return nil
}

// Target is one file to process, or the error that prevented finding it
type Target struct {
	Path string
	Err  error
}

// ExpandTargets resolves command-line arguments into files. Directories are
// replaced by their *.jpg and *.jpeg entries (case-insensitive, sorted,
// not recursive). Missing paths come back with an error so the caller can
// report them in order.
func ExpandTargets(args []string) []Target {
	var targets []Target
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			targets = append(targets, Target{Path: arg, Err: fmt.Errorf("file not found: %w", err)})
			continue
		}
		if !info.IsDir() {
			targets = append(targets, Target{Path: absPath(arg)})
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			targets = append(targets, Target{Path: arg, Err: fmt.Errorf("failed to read directory: %w", err)})
			continue
		}
		var names []string
		for _, e := range entries {
			if e.Type().IsRegular() && format.IsJPEGPath(e.Name()) {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			targets = append(targets, Target{Path: absPath(filepath.Join(arg, name))})
		}
	}
	return targets
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// fileAction processes one file. It returns the journal record of what it
// did; a nil record with a nil error means the file was left alone.
type fileAction func(ctx context.Context, path string) (*models.Operation, error)

func (p *Processor) run(ctx context.Context, command string, args []string, action models.Action, fn fileAction) (*Summary, error) {
	targets := ExpandTargets(args)
	summary := &Summary{}

	var run *models.Run
	if p.journal != nil {
		var err error
		run, err = p.journal.StartRun(command, strings.Join(args, " "), p.dryRun)
		if err != nil {
			p.log.Warning("journal disabled for this run: %v", err)
		} else {
			summary.RunID = run.ID
		}
	}

	for i, t := range targets {
		if err := ctx.Err(); err != nil {
			p.finish(run, summary)
			return summary, err
		}
		if p.progressFn != nil {
			p.progressFn(i, len(targets), t.Path)
		}
		summary.Processed++

		var op *models.Operation
		err := t.Err
		if err == nil {
			p.log.Info("%s %s", command, t.Path)
			op, err = fn(ctx, t.Path)
		}

		switch {
		case err != nil:
			summary.Failed++
			fmt.Fprintf(p.errOut, "[ERROR] %s : %v\n", filepath.Base(t.Path), err)
			op = &models.Operation{Path: t.Path, Action: action, Status: models.StatusFailed, Error: err.Error()}
		case op == nil:
			summary.Skipped++
			continue
		case op.Status == models.StatusSkipped:
			summary.Skipped++
		default:
			summary.Changed++
		}

		if run != nil {
			op.RunID = run.ID
			if err := p.journal.RecordOperation(op); err != nil {
				p.log.Warning("failed to journal %s: %v", t.Path, err)
			}
		}
	}

	p.finish(run, summary)
	return summary, nil
}

func (p *Processor) finish(run *models.Run, summary *Summary) {
	if run == nil {
		return
	}
	run.Processed = summary.Processed
	run.Failed = summary.Failed
	if err := p.journal.FinishRun(run); err != nil {
		p.log.Warning("failed to finish journal run: %v", err)
	}
}

// doneStatus is the status of an operation that would change the file
func (p *Processor) doneStatus() models.Status {
	if p.dryRun {
		return models.StatusPlanned
	}
	return models.StatusDone
}
