package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/repost-tracer/internal/config"
)

func TestConnector_Run_LoadError(t *testing.T) {
	conn := NewConnector(&config.Config{TGApiID: 1, TGApiHash: "hash"})
	conn.SetSessionLoader(func(SessionHandle) (*LoadedSession, error) {
		return nil, ErrInvalidSession
	})

	called := false
	err := conn.Run(context.Background(), SessionHandle{Name: "alice", Path: "alice.session"}, func(context.Context, *Client) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrInvalidSession)
	assert.Contains(t, err.Error(), "alice")
	assert.False(t, called)
}

func TestConnector_Run_MissingFile(t *testing.T) {
	conn := NewConnector(&config.Config{})

	err := conn.Run(context.Background(), NewSessionHandle("/nonexistent/bob.session"), func(context.Context, *Client) error {
		return errors.New("must not be called")
	})

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "must not be called")
}

func TestConnector_LimiterSharedPerSession(t *testing.T) {
	conn := NewConnector(&config.Config{TGRateLimit: 3})

	a1 := conn.limiter(SessionHandle{Path: "a.session"})
	a2 := conn.limiter(SessionHandle{Path: "a.session"})
	b := conn.limiter(SessionHandle{Path: "b.session"})

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
}
