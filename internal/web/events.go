package web

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/repost-tracer/internal/models"
)

// WebSocket event types
const (
	EventScanStart = "scan.start"
	EventScanTask  = "scan.task"
	EventScanEnd   = "scan.end"
)

// WSEvent represents a structured WebSocket message
type WSEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ScanStartPayload is the payload for EventScanStart
type ScanStartPayload struct {
	ScanID   string   `json:"scan_id"`
	Sessions []string `json:"sessions"`
	Channels []string `json:"channels"`
	Limit    int      `json:"limit"`
	Tasks    int      `json:"tasks"`
}

// ScanTaskPayload is the payload for EventScanTask
type ScanTaskPayload struct {
	ScanID  string             `json:"scan_id"`
	Done    int                `json:"done"`
	Total   int                `json:"total"`
	Outcome models.TaskOutcome `json:"outcome"`
}

// ScanEndPayload is the payload for EventScanEnd
type ScanEndPayload struct {
	ScanID         string                `json:"scan_id"`
	Records        int                   `json:"records"`
	UniqueChannels int                   `json:"unique_channels"`
	FailedTasks    int                   `json:"failed_tasks"`
	Top            []models.ChannelCount `json:"top"`
	Took           time.Duration         `json:"took"`
	Error          string                `json:"error,omitempty"`
}

// ScanStartEvent builds the message sent when a scan begins.
func ScanStartEvent(id uuid.UUID, sessions, channels []string, limit int) []byte {
	return encode(EventScanStart, ScanStartPayload{
		ScanID:   id.String(),
		Sessions: sessions,
		Channels: channels,
		Limit:    limit,
		Tasks:    len(sessions) * len(channels),
	})
}

// ScanTaskEvent builds the per-task progress message.
func ScanTaskEvent(id uuid.UUID, done, total int, outcome models.TaskOutcome) []byte {
	return encode(EventScanTask, ScanTaskPayload{
		ScanID:  id.String(),
		Done:    done,
		Total:   total,
		Outcome: outcome,
	})
}

// ScanEndEvent builds the message sent when a scan finishes or aborts.
func ScanEndEvent(id uuid.UUID, payload ScanEndPayload) []byte {
	payload.ScanID = id.String()
	return encode(EventScanEnd, payload)
}

func encode(eventType string, payload any) []byte {
	b, _ := json.Marshal(WSEvent{Type: eventType, Payload: payload})
	return b
}
