// Package scanner walks channel history through user sessions and resolves
// where forwarded posts originally came from.
package scanner

import (
	"context"

	"github.com/blockedby/repost-tracer/internal/telegram"
)

// API is the per-session backend surface a scan needs.
type API interface {
	IsAuthorized(ctx context.Context) (bool, error)
	ResolveChannel(ctx context.Context, username string) (*telegram.Channel, error)
	GetMessages(ctx context.Context, channel *telegram.Channel, offsetID int, limit int) ([]telegram.Message, error)
	GetChannel(ctx context.Context, id int64) (*telegram.Channel, error)
	GetFullChannel(ctx context.Context, channel *telegram.Channel) (*telegram.FullChannel, error)
}

// Connector gives scoped access to a connected API for one session. The
// connection must be released when fn returns, on every path.
type Connector interface {
	Run(ctx context.Context, session telegram.SessionHandle, fn func(ctx context.Context, api API) error) error
}

type telegramConnector struct {
	conn *telegram.Connector
}

// NewTelegramConnector adapts a telegram.Connector to Connector.
func NewTelegramConnector(conn *telegram.Connector) Connector {
	return &telegramConnector{conn: conn}
}

func (c *telegramConnector) Run(ctx context.Context, session telegram.SessionHandle, fn func(ctx context.Context, api API) error) error {
	return c.conn.Run(ctx, session, func(ctx context.Context, client *telegram.Client) error {
		return fn(ctx, client)
	})
}
