// Package models defines the data shapes exchanged with the generation backend.
package models

import (
	"encoding/json"
	"strconv"
)

// JobStatus represents the lifecycle state of a generation job.
type JobStatus string

const (
	// StatusQueued indicates the job is accepted but not yet running.
	StatusQueued JobStatus = "queued"
	// StatusRunning indicates the job is converting files.
	StatusRunning JobStatus = "running"
	// StatusCompleted indicates the job finished successfully.
	StatusCompleted JobStatus = "completed"
	// StatusFailed indicates the job finished with an error.
	StatusFailed JobStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// BadgeClass maps a status to the css class used by the job list.
func (s JobStatus) BadgeClass() string {
	switch s {
	case StatusCompleted:
		return "success"
	case StatusFailed:
		return "error"
	default:
		return "running"
	}
}

// Backup is a snapshot of the target files taken before a job overwrote them.
type Backup struct {
	Name string `json:"name"`
	TS   string `json:"ts"`
}

// Job represents one upload-to-generation execution.
type Job struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Status           JobStatus           `json:"status"`
	Created          int64               `json:"created"`
	Backups          []Backup            `json:"backups"`
	Stats            map[string]FileStat `json:"stats"`
	Log              []json.RawMessage   `json:"log"`
	Staged           bool                `json:"staged,omitempty"`
	Deployed         bool                `json:"deployed,omitempty"`
	AutoPlaceUnknown bool                `json:"auto_place_unknown,omitempty"`
}

// LatestBackup returns the most recent backup. Backups are kept in
// insertion order so the latest is always the last element.
func (j *Job) LatestBackup() (Backup, bool) {
	if len(j.Backups) == 0 {
		return Backup{}, false
	}
	return j.Backups[len(j.Backups)-1], true
}

// FileStat holds before/after line counts for one generated file.
type FileStat struct {
	Before  int `json:"before"`
	After   int `json:"after"`
	Delta   int `json:"delta"`
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// UnmarshalJSON tolerates partially populated payloads: missing, null or
// non-numeric fields decode to 0 and a missing or null delta is derived
// from after-before.
func (f *FileStat) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		*f = FileStat{}
		return nil
	}

	f.Before = toInt(raw["before"])
	f.After = toInt(raw["after"])
	f.Added = toInt(raw["added"])
	f.Removed = toInt(raw["removed"])
	if d, ok := raw["delta"]; ok && d != nil {
		f.Delta = toInt(d)
	} else {
		f.Delta = f.After - f.Before
	}
	return nil
}

func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
		if fl, err := strconv.ParseFloat(n, 64); err == nil {
			return int(fl)
		}
	case bool:
		return 0
	}
	return 0
}

// OpResult is the {ok, output, error} envelope returned by backend actions.
type OpResult struct {
	OK     bool   `json:"ok"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Message returns the human readable part of the result.
func (r OpResult) Message() string {
	if r.Error != "" {
		return r.Error
	}
	return r.Output
}

// BackendStatus is the summary returned by GET /api/status.
type BackendStatus struct {
	JobsTotal   int `json:"jobs_total"`
	JobsRunning int `json:"jobs_running"`
}
