package telegram

import (
	"errors"
	"fmt"

	"github.com/gotd/td/tgerr"
)

// errors
var (
	ErrUnauthorized    = errors.New("session is not authorized")
	ErrPasswordNeeded  = errors.New("session requires two-factor password")
	ErrChannelNotFound = errors.New("channel not found")
	ErrNotAChannel     = errors.New("peer is not a channel")
	ErrUnknownPeer     = errors.New("no access hash for peer")
	ErrInvalidSession  = errors.New("invalid session file")
)

// rpc error types that mean the channel cannot be read by this account
var channelMissingTypes = []string{
	"USERNAME_NOT_OCCUPIED",
	"USERNAME_INVALID",
	"CHANNEL_INVALID",
	"CHANNEL_PRIVATE",
	"CHANNEL_PUBLIC_GROUP_NA",
}

// classifyError maps rpc errors to the package sentinels, keeping the original
// error in the chain.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case tgerr.Is(err, "SESSION_PASSWORD_NEEDED"):
		return fmt.Errorf("%w: %w", ErrPasswordNeeded, err)
	case tgerr.IsCode(err, 401):
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	case tgerr.Is(err, channelMissingTypes...):
		return fmt.Errorf("%w: %w", ErrChannelNotFound, err)
	}
	return err
}
