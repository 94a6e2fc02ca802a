package telegram

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"

	"github.com/celestix/gotgproto/functions"
	"github.com/celestix/gotgproto/storage"
	"github.com/gotd/td/crypto"
	"github.com/gotd/td/session"
)

// ConvertTelethonSession builds gotd session data from the fields of a
// Telethon "sessions" row.
func ConvertTelethonSession(dc int, addr string, port int, authKey []byte) (*session.Data, error) {
	if len(authKey) != 256 {
		return nil, fmt.Errorf("%w: auth key is %d bytes, want 256", ErrInvalidSession, len(authKey))
	}
	if addr == "" {
		return nil, fmt.Errorf("%w: empty server address", ErrInvalidSession)
	}

	var key crypto.Key
	copy(key[:], authKey)
	withID := key.WithID()

	return &session.Data{
		DC:        dc,
		Addr:      net.JoinHostPort(addr, strconv.Itoa(port)),
		AuthKey:   withID.Value[:],
		AuthKeyID: withID.ID[:],
	}, nil
}

// ConvertFromGotgprotoSession extracts gotd session data from a gotgproto
// storage.Session. The Data field holds gotd session JSON, either bare or
// wrapped in the versioned envelope gotd's own storage writes.
func ConvertFromGotgprotoSession(sess *storage.Session) (*session.Data, error) {
	if sess == nil {
		return nil, fmt.Errorf("%w: session is nil", ErrInvalidSession)
	}

	var envelope struct {
		Version int
		Data    session.Data
	}
	if err := json.Unmarshal(sess.Data, &envelope); err == nil && len(envelope.Data.AuthKey) > 0 {
		return &envelope.Data, nil
	}

	var data session.Data
	if err := json.Unmarshal(sess.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: unmarshal session data: %w", ErrInvalidSession, err)
	}
	if len(data.AuthKey) == 0 {
		return nil, fmt.Errorf("%w: session has no auth key", ErrInvalidSession)
	}
	return &data, nil
}

// DecodeStringSession decodes a gotgproto string session (as printed by
// gotgproto's ExportStringSession).
func DecodeStringSession(s string) (*session.Data, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty string session", ErrInvalidSession)
	}
	sess, err := functions.DecodeStringToSession(s)
	if err != nil {
		return nil, fmt.Errorf("%w: decode string session: %w", ErrInvalidSession, err)
	}
	return ConvertFromGotgprotoSession(sess)
}
