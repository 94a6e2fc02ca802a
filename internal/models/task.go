package models

import "time"

// TaskStatus describes how a scan task ended.
type TaskStatus string

// TaskStatus constants. Every status other than TaskStatusOK yields no records.
const (
	TaskStatusOK             TaskStatus = "OK"
	TaskStatusUnauthorized   TaskStatus = "UNAUTHORIZED"
	TaskStatusPasswordNeeded TaskStatus = "PASSWORD_NEEDED"
	TaskStatusFailed         TaskStatus = "FAILED"
)

// ScanTask pairs one session with one channel.
type ScanTask struct {
	Index   int    `json:"index"` // submission order
	Session string `json:"session"`
	Channel string `json:"channel"`
	Limit   int    `json:"limit"`
}

// TaskOutcome is the diagnostic left behind by a finished task. It lets callers
// tell "no reposts" apart from "session failed" without the task ever failing
// the run.
type TaskOutcome struct {
	Task     ScanTask      `json:"task"`
	Status   TaskStatus    `json:"status"`
	Error    string        `json:"error,omitempty"`
	Scanned  int           `json:"scanned"`
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration"`
}

// Failed reports whether the task produced nothing because of an error.
func (o TaskOutcome) Failed() bool {
	return o.Status != TaskStatusOK
}
