package collector

import (
	"errors"
	"reflect"
	"testing"

	"github.com/blockedby/repost-tracer/internal/telegram"
)

var testSessions = []telegram.SessionHandle{
	{Name: "alice", Path: "sessions/alice.session"},
	{Name: "bob", Path: "sessions/bob.gsession"},
}

// test scan request validation
func TestScanRequest_Validate(t *testing.T) {
	tests := []struct {
		name         string
		req          ScanRequest
		available    []telegram.SessionHandle
		wantErr      error
		wantChannels []string
		wantSessions []string
		wantLimit    int
	}{
		{
			name:      "empty request - requires links",
			req:       ScanRequest{},
			available: testSessions,
			wantErr:   ErrLinksRequired,
		},
		{
			name:      "blank lines only",
			req:       ScanRequest{Text: "\n  \n\t\n"},
			available: testSessions,
			wantErr:   ErrLinksRequired,
		},
		{
			name:      "references without a channel name",
			req:       ScanRequest{Links: []string{"https://t.me/", "@"}},
			available: testSessions,
			wantErr:   ErrLinksRequired,
		},
		{
			name:         "text block with defaults",
			req:          ScanRequest{Text: "https://t.me/durov\n@telegram\n\nrawname\n"},
			available:    testSessions,
			wantChannels: []string{"durov", "telegram", "rawname"},
			wantSessions: []string{"alice"},
			wantLimit:    100,
		},
		{
			name:         "links and text merged, repeated lines dropped",
			req:          ScanRequest{Links: []string{"t.me/durov/123", "@news"}, Text: "@news\nt.me/durov/123\nother"},
			available:    testSessions,
			wantChannels: []string{"durov", "news", "other"},
			wantSessions: []string{"alice"},
			wantLimit:    100,
		},
		{
			name:         "explicit sessions",
			req:          ScanRequest{Links: []string{"durov"}, Sessions: []string{"bob", "alice", "bob"}, Limit: 500},
			available:    testSessions,
			wantChannels: []string{"durov"},
			wantSessions: []string{"bob", "alice"},
			wantLimit:    500,
		},
		{
			name:      "limit below range",
			req:       ScanRequest{Links: []string{"durov"}, Limit: 9},
			available: testSessions,
			wantErr:   ErrInvalidLimit,
		},
		{
			name:         "limit lower bound",
			req:          ScanRequest{Links: []string{"durov"}, Limit: 10},
			available:    testSessions,
			wantChannels: []string{"durov"},
			wantSessions: []string{"alice"},
			wantLimit:    10,
		},
		{
			name:      "limit above range",
			req:       ScanRequest{Links: []string{"durov"}, Limit: 1001},
			available: testSessions,
			wantErr:   ErrInvalidLimit,
		},
		{
			name:      "negative limit",
			req:       ScanRequest{Links: []string{"durov"}, Limit: -1},
			available: testSessions,
			wantErr:   ErrInvalidLimit,
		},
		{
			name:      "unknown session",
			req:       ScanRequest{Links: []string{"durov"}, Sessions: []string{"mallory"}},
			available: testSessions,
			wantErr:   ErrUnknownSession,
		},
		{
			name:      "no sessions on disk",
			req:       ScanRequest{Links: []string{"durov"}},
			available: nil,
			wantErr:   ErrNoSessions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.Validate(tt.available, 50)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}

			if !reflect.DeepEqual(got.Channels, tt.wantChannels) {
				t.Errorf("Channels = %v, want %v", got.Channels, tt.wantChannels)
			}
			if !reflect.DeepEqual(got.SessionNames(), tt.wantSessions) {
				t.Errorf("Sessions = %v, want %v", got.SessionNames(), tt.wantSessions)
			}
			if got.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", got.Limit, tt.wantLimit)
			}
		})
	}
}

func TestScanRequest_Validate_CapsChannels(t *testing.T) {
	req := ScanRequest{Text: "a\nb\nc\nd\ne"}

	got, err := req.Validate(testSessions, 3)
	if err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got.Channels, want) {
		t.Errorf("Channels = %v, want %v", got.Channels, want)
	}
}

func TestScanRequest_Validate_DoesNotAliasAvailable(t *testing.T) {
	available := append([]telegram.SessionHandle(nil), testSessions...)
	req := ScanRequest{Links: []string{"x"}, Sessions: []string{"bob"}}

	if _, err := req.Validate(available, 50); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	if !reflect.DeepEqual(available, testSessions) {
		t.Errorf("available sessions modified: %v", available)
	}
}
