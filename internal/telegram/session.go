package telegram

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/gotd/td/session"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Session file extensions understood by LoadSession.
const (
	TelethonExt = ".session"  // Telethon SQLite session
	StringExt   = ".gsession" // gotgproto string session stored in a file
)

// SessionHandle points at one pre-authenticated session file.
type SessionHandle struct {
	Name string `json:"name"` // file name without extension
	Path string `json:"path"`
}

// NewSessionHandle builds a handle for the given file path.
func NewSessionHandle(path string) SessionHandle {
	base := filepath.Base(path)
	return SessionHandle{
		Name: strings.TrimSuffix(base, filepath.Ext(base)),
		Path: path,
	}
}

// LoadedSession is a session file decoded into gotd terms.
type LoadedSession struct {
	Data *session.Data
	// Peers holds channels the session file already knows about, so forward
	// origins can be resolved without a prior username lookup.
	Peers []Channel
}

// Discover lists session files in dir, sorted by file name.
func Discover(dir string) ([]SessionHandle, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	var out []SessionHandle
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case TelethonExt, StringExt:
			out = append(out, NewSessionHandle(filepath.Join(dir, e.Name())))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// LoadSession decodes the session file behind h.
func LoadSession(h SessionHandle) (*LoadedSession, error) {
	switch filepath.Ext(h.Path) {
	case TelethonExt:
		return loadTelethonSession(h.Path)
	case StringExt:
		raw, err := os.ReadFile(h.Path)
		if err != nil {
			return nil, fmt.Errorf("read session %s: %w", h.Name, err)
		}
		data, err := DecodeStringSession(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", h.Name, err)
		}
		return &LoadedSession{Data: data}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported extension %q", ErrInvalidSession, filepath.Ext(h.Path))
	}
}

// telethonSessionRow maps the "sessions" table of a Telethon session file.
type telethonSessionRow struct {
	DCID          int    `gorm:"column:dc_id"`
	ServerAddress string `gorm:"column:server_address"`
	Port          int    `gorm:"column:port"`
	AuthKey       []byte `gorm:"column:auth_key"`
}

// telethonEntityRow maps the "entities" table (peer cache) of a Telethon session file.
type telethonEntityRow struct {
	ID       int64   `gorm:"column:id"`
	Hash     int64   `gorm:"column:hash"`
	Username *string `gorm:"column:username"`
	Name     *string `gorm:"column:name"`
}

// Telethon stores channel ids in "marked" form: -(10^12 + id).
const markedChannelOffset = 1_000_000_000_000

func loadTelethonSession(path string) (*LoadedSession, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open session %s: %w", path, err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	var row telethonSessionRow
	if err := db.Table("sessions").Take(&row).Error; err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSession, path, err)
	}

	data, err := ConvertTelethonSession(row.DCID, row.ServerAddress, row.Port, row.AuthKey)
	if err != nil {
		return nil, err
	}

	var entities []telethonEntityRow
	// older files may lack the table; the peer cache is optional
	_ = db.Table("entities").Where("id < ?", -markedChannelOffset).Find(&entities).Error

	peers := make([]Channel, 0, len(entities))
	for _, e := range entities {
		ch := Channel{
			ID:         -e.ID - markedChannelOffset,
			AccessHash: e.Hash,
		}
		if e.Username != nil {
			ch.Username = *e.Username
		}
		if e.Name != nil {
			ch.Title = *e.Name
		}
		peers = append(peers, ch)
	}

	return &LoadedSession{Data: data, Peers: peers}, nil
}
