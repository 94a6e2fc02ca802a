package collector

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/repost-tracer/internal/links"
	"github.com/blockedby/repost-tracer/internal/scanner"
	"github.com/blockedby/repost-tracer/internal/telegram"
)

// message limit bounds accepted from clients
const (
	MinLimit = 10
	MaxLimit = 1000
)

// validation errors
var (
	ErrLinksRequired  = errors.New("at least one channel link is required")
	ErrInvalidLimit   = fmt.Errorf("limit must be between %d and %d", MinLimit, MaxLimit)
	ErrNoSessions     = errors.New("no session files available")
	ErrUnknownSession = errors.New("unknown session")
)

// ScanRequest represents a request to scan a set of channels
type ScanRequest struct {
	// Links - channel references, one per entry.
	// accepts t.me links, @names and bare usernames.
	Links []string `json:"links,omitempty"`

	// Text - newline separated block of references, merged with Links.
	Text string `json:"text,omitempty"`

	// Limit - messages to read per channel.
	// 0 means scanner.DefaultLimit.
	Limit int `json:"limit,omitempty"`

	// Sessions - session names to scan with.
	// empty means the first available session.
	Sessions []string `json:"sessions,omitempty"`
}

// Validate checks the request against the available sessions and turns it
// into a Request. Duplicate lines are dropped and at most maxChannels
// references are kept.
func (r *ScanRequest) Validate(available []telegram.SessionHandle, maxChannels int) (Request, error) {
	raw := r.Text
	if len(r.Links) > 0 {
		raw = strings.Join(r.Links, "\n") + "\n" + raw
	}
	channels := links.ParseList(raw, maxChannels)
	if len(channels) == 0 {
		return Request{}, ErrLinksRequired
	}

	limit := r.Limit
	if limit == 0 {
		limit = scanner.DefaultLimit
	}
	if limit < MinLimit || limit > MaxLimit {
		return Request{}, ErrInvalidLimit
	}

	if len(available) == 0 {
		return Request{}, ErrNoSessions
	}

	sessions := []telegram.SessionHandle{available[0]}
	if len(r.Sessions) > 0 {
		byName := make(map[string]telegram.SessionHandle, len(available))
		for _, h := range available {
			byName[h.Name] = h
		}

		sessions = sessions[:0]
		seen := make(map[string]bool, len(r.Sessions))
		for _, name := range r.Sessions {
			h, ok := byName[name]
			if !ok {
				return Request{}, fmt.Errorf("%w: %s", ErrUnknownSession, name)
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			sessions = append(sessions, h)
		}
	}

	return Request{
		Channels: channels,
		Sessions: sessions,
		Limit:    limit,
	}, nil
}

// ScanResponse represents response to scan request
type ScanResponse struct {
	ScanID    uuid.UUID `json:"scan_id"`
	Status    string    `json:"status"` // "running" | "completed" | "failed"
	StartedAt time.Time `json:"started_at"`
	Sessions  []string  `json:"sessions"`
	Channels  []string  `json:"channels"`
	Limit     int       `json:"limit"`
	Tasks     int       `json:"tasks"`
}
