package telegram

import (
	"context"
	"fmt"
	"sync"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"

	"github.com/blockedby/repost-tracer/internal/config"
	"github.com/blockedby/repost-tracer/internal/logger"
)

// SessionLoader decodes a session file. Replaceable in tests.
type SessionLoader func(h SessionHandle) (*LoadedSession, error)

// Connector opens one MTProto connection per call, backed by a session file.
// Connections are never shared between callers; rate limiters are shared per
// session.
type Connector struct {
	apiID   int
	apiHash string
	rps     float64
	log     *logger.Logger

	loadSession SessionLoader

	mu       sync.Mutex
	limiters map[string]*RateLimiter
}

// NewConnector creates a connector using the api credentials from cfg.
func NewConnector(cfg *config.Config) *Connector {
	return &Connector{
		apiID:       cfg.TGApiID,
		apiHash:     cfg.TGApiHash,
		rps:         cfg.TGRateLimit,
		log:         logger.Get().Component("telegram"),
		loadSession: LoadSession,
		limiters:    make(map[string]*RateLimiter),
	}
}

// SetSessionLoader allows overriding how session files are read (e.g. for testing).
func (c *Connector) SetSessionLoader(f SessionLoader) {
	c.loadSession = f
}

// limiter returns the rate limiter shared by every connection of h.
func (c *Connector) limiter(h SessionHandle) *RateLimiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	rl, ok := c.limiters[h.Path]
	if !ok {
		rl = NewRateLimiter(c.rps, 1)
		c.limiters[h.Path] = rl
	}
	return rl
}

// Run connects with the session behind h, calls fn with a ready Client and
// disconnects once fn returns, whatever the outcome.
func (c *Connector) Run(ctx context.Context, h SessionHandle, fn func(ctx context.Context, client *Client) error) error {
	loaded, err := c.loadSession(h)
	if err != nil {
		return fmt.Errorf("load session %s: %w", h.Name, err)
	}

	storage := new(session.StorageMemory)
	loader := session.Loader{Storage: storage}
	if err := loader.Save(ctx, loaded.Data); err != nil {
		return fmt.Errorf("prepare session %s: %w", h.Name, err)
	}

	tc := telegram.NewClient(c.apiID, c.apiHash, telegram.Options{
		SessionStorage: storage,
		NoUpdates:      true,
	})

	log := &logger.Logger{Logger: c.log.With().Str("session", h.Name).Logger()}
	log.Debug().Msg("telegram: connecting")
	defer log.Debug().Msg("telegram: disconnected")

	err = tc.Run(ctx, func(ctx context.Context) error {
		client := NewClient(tc.API(), func(ctx context.Context) (bool, error) {
			status, err := tc.Auth().Status(ctx)
			if err != nil {
				return false, err
			}
			return status.Authorized, nil
		}, c.limiter(h), log)
		client.RememberChannels(loaded.Peers...)

		return fn(ctx, client)
	})
	if err != nil {
		return fmt.Errorf("session %s: %w", h.Name, err)
	}
	return nil
}
