package entities

import (
	"errors"
	"time"
)

// Outcome is the result of a single run.
// Stage is the last stage reached; Failed names the step that stopped a run
// that did not complete.
type Outcome struct {
	RunID  string
	Status Status
	Stage  Stage
	Failed Step
	Detail string
	Err    error
	Intent *Intent
	NewTab bool
}

// ExitCode maps the outcome to a process exit code
func (o Outcome) ExitCode() int {
	switch o.Status {
	case StatusCompleted:
		return ExitOK
	case StatusNotFound:
		return ExitNotFound
	}
	if errors.Is(o.Err, ErrIntentParse) {
		return ExitIntentParse
	}
	return ExitRuntime
}

// Record converts the outcome to its persisted form
func (o Outcome) Record(command string, at time.Time) RunRecord {
	rec := RunRecord{
		RunID:     o.RunID,
		Command:   command,
		Status:    o.Status,
		Stage:     o.Stage,
		Failed:    o.Failed,
		Detail:    o.Detail,
		NewTab:    o.NewTab,
		Timestamp: at.UTC(),
	}
	if o.Intent != nil {
		rec.Website = o.Intent.Website
		rec.Search = o.Intent.Search
	}
	if o.Err != nil {
		rec.Error = o.Err.Error()
	}
	return rec
}

// RunRecord represents one run in the history file
type RunRecord struct {
	RunID     string    `json:"run_id"`
	Command   string    `json:"command"`
	Website   string    `json:"website,omitempty"`
	Search    string    `json:"search,omitempty"`
	Status    Status    `json:"status"`
	Stage     Stage     `json:"stage"`
	Failed    Step      `json:"failed_step,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Error     string    `json:"error,omitempty"`
	NewTab    bool      `json:"new_tab,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
