package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"photoutils/internal/imaging"
	"photoutils/internal/models"
	"photoutils/internal/storage"
)

var (
	historyJSON  bool
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded runs and their operations",
	Long: `Display the operation journal.

Without arguments the most recent runs are listed. Given a run ID (or a
unique prefix of one), every file operation of that run is shown with its
before and after state.

Example:
  photoutils history              # Last 10 runs
  photoutils history -n 0         # All runs
  photoutils history 3f2a         # Operations of run 3f2a...
  photoutils history --json 3f2a  # Same, as JSON`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output in JSON format")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Limit number of runs to display (0 = all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := storage.NewStorage(journalPath)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer store.Close()

	if len(args) == 1 {
		return showRun(store, args[0])
	}

	runs, err := store.ListRuns(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if historyJSON {
		return writeJSON(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Printf("%-8s  %-8s  %-14s  %9s  %6s  %s\n", "Run", "Command", "Started", "Processed", "Failed", "Arguments")
	fmt.Println(strings.Repeat("-", 78))
	for _, run := range runs {
		command := run.Command
		if run.DryRun {
			command += "*"
		}
		fmt.Printf("%-8s  %-8s  %-14s  %9d  %6d  %s\n",
			run.ID[:8], command, humanize.Time(run.StartedAt), run.Processed, run.Failed, shortenText(run.Args, 30))
	}
	fmt.Println()
	fmt.Println("* dry run")
	fmt.Println("Run 'photoutils history <run>' to see the operations of a run")
	return nil
}

func showRun(store *storage.Storage, id string) error {
	run, err := store.GetRun(id)
	if err != nil {
		return err
	}
	ops, err := store.ListOperations(run.ID)
	if err != nil {
		return fmt.Errorf("failed to list operations: %w", err)
	}

	if historyJSON {
		return writeJSON(struct {
			*models.Run
			Operations []*models.Operation `json:"operations"`
		}{run, ops})
	}

	fmt.Printf("Run %s\n", run.ID)
	fmt.Printf("  Command:  %s %s\n", run.Command, run.Args)
	fmt.Printf("  Started:  %s (%s)\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(run.StartedAt))
	if !run.FinishedAt.IsZero() {
		fmt.Printf("  Took:     %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	} else {
		fmt.Println("  Took:     (unfinished)")
	}
	if run.DryRun {
		fmt.Println("  Dry run:  yes")
	}
	fmt.Printf("  Files:    %d processed, %d failed\n", run.Processed, run.Failed)
	fmt.Println()

	if len(ops) == 0 {
		fmt.Println("No operations recorded.")
		return nil
	}

	for _, op := range ops {
		name := shortenPath(op.Path, 40)
		switch op.Status {
		case models.StatusFailed:
			fmt.Printf("  ✗ %-7s %-40s  %s\n", op.Action, name, op.Error)
		default:
			marker := "✓"
			if op.Status != models.StatusDone {
				marker = "-"
			}
			fmt.Printf("  %s %-7s %-40s  %s => %s%s\n", marker, op.Action, name, op.Before, op.After, hashDistance(op))
		}
	}
	return nil
}

// hashDistance describes how far the perceptual hash moved, for operations
// that recorded both hashes.
func hashDistance(op *models.Operation) string {
	if op.SourceHash == "" || op.ResultHash == "" {
		return ""
	}
	src, err := strconv.ParseUint(op.SourceHash, 16, 64)
	if err != nil {
		return ""
	}
	dst, err := strconv.ParseUint(op.ResultHash, 16, 64)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("  (distance %d)", imaging.HammingDistance(src, dst))
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortenText(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func shortenPath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}

	dir, file := filepath.Split(path)
	if len(file) >= maxLen-3 {
		return "..." + file[len(file)-(maxLen-3):]
	}

	remaining := maxLen - len(file) - 4 // 4 for ".../"
	if remaining > 0 && len(dir) > remaining {
		dir = dir[len(dir)-remaining:]
	}
	return "..." + dir + file
}
