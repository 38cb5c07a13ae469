package models

import "time"

// Status is the outcome of one file operation
type Status string

const (
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped" // nothing to change
	StatusPlanned Status = "planned" // dry run
	StatusFailed  Status = "failed"
)

// Action names the kind of change applied to a file
type Action string

const (
	ActionResize Action = "resize"
	ActionTrim   Action = "trim"
	ActionRename Action = "rename"
	ActionSet    Action = "set"
	ActionClear  Action = "clear"
	ActionAdjust Action = "adjust"
)

// Run is one invocation of a batch command
type Run struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	Args       string    `json:"args"`
	DryRun     bool      `json:"dry_run"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Processed  int       `json:"processed"`
	Failed     int       `json:"failed"`
}

// Operation is the journal record of one file within a run
type Operation struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	Path       string    `json:"path"`
	NewPath    string    `json:"new_path,omitempty"` // set for renames
	Action     Action    `json:"action"`
	Before     string    `json:"before"` // e.g. "1920x1080" or a timestamp
	After      string    `json:"after"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	SourceHash string    `json:"source_hash,omitempty"` // perceptual hash, hex
	ResultHash string    `json:"result_hash,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
