package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blockedby/repost-tracer/internal/telegram"
)

var errLookup = errors.New("CHANNEL_PRIVATE")

// fakeAPI is an in-memory backend for one session.
type fakeAPI struct {
	authorized bool
	authErr    error

	channels   map[string]*telegram.Channel // by username
	history    map[string][]telegram.Message
	historyErr error
	panicOn    string // channel that panics on fetch

	origins      map[int64]*telegram.Channel
	participants map[int64]int
	fullErr      map[int64]error

	delay time.Duration

	mu      sync.Mutex
	offsets []int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		authorized:   true,
		channels:     map[string]*telegram.Channel{},
		history:      map[string][]telegram.Message{},
		origins:      map[int64]*telegram.Channel{},
		participants: map[int64]int{},
		fullErr:      map[int64]error{},
	}
}

func (f *fakeAPI) addChannel(username string, messages ...telegram.Message) {
	f.channels[username] = &telegram.Channel{ID: int64(len(f.channels) + 1), Username: username}
	f.history[username] = messages
}

func (f *fakeAPI) addOrigin(id int64, username, title string, participants int) {
	f.origins[id] = &telegram.Channel{ID: id, Username: username, Title: title}
	f.participants[id] = participants
}

func (f *fakeAPI) IsAuthorized(context.Context) (bool, error) {
	return f.authorized, f.authErr
}

func (f *fakeAPI) ResolveChannel(_ context.Context, username string) (*telegram.Channel, error) {
	ch, ok := f.channels[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", telegram.ErrChannelNotFound, username)
	}
	return ch, nil
}

func (f *fakeAPI) GetMessages(ctx context.Context, channel *telegram.Channel, offsetID int, limit int) ([]telegram.Message, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	if f.panicOn == channel.Username {
		panic("corrupted response")
	}

	f.mu.Lock()
	f.offsets = append(f.offsets, offsetID)
	f.mu.Unlock()

	all := f.history[channel.Username]
	start := 0
	if offsetID != 0 {
		for i, m := range all {
			if m.ID == offsetID {
				start = i + 1
				break
			}
		}
	}
	end := min(start+limit, len(all))
	return all[start:end], nil
}

func (f *fakeAPI) GetChannel(_ context.Context, id int64) (*telegram.Channel, error) {
	ch, ok := f.origins[id]
	if !ok {
		return nil, fmt.Errorf("%w: channel %d", telegram.ErrUnknownPeer, id)
	}
	return ch, nil
}

func (f *fakeAPI) GetFullChannel(_ context.Context, ch *telegram.Channel) (*telegram.FullChannel, error) {
	if err := f.fullErr[ch.ID]; err != nil {
		return nil, err
	}
	return &telegram.FullChannel{Channel: ch, ParticipantsCount: f.participants[ch.ID]}, nil
}

// fakeConnector hands out fakeAPIs by session name and counts acquisitions.
type fakeConnector struct {
	apis    map[string]API
	dialErr map[string]error

	mu       sync.Mutex
	opened   int
	released int
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{apis: map[string]API{}, dialErr: map[string]error{}}
}

func (c *fakeConnector) Run(ctx context.Context, session telegram.SessionHandle, fn func(ctx context.Context, api API) error) error {
	c.mu.Lock()
	c.opened++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.released++
		c.mu.Unlock()
	}()

	if err := c.dialErr[session.Name]; err != nil {
		return err
	}
	api, ok := c.apis[session.Name]
	if !ok {
		return fmt.Errorf("no such session %s", session.Name)
	}
	return fn(ctx, api)
}

func post(id int, text string, at time.Time) telegram.Message {
	return telegram.Message{ID: id, Text: text, Date: at}
}

func forward(id int, text string, at time.Time, origin int64) telegram.Message {
	m := post(id, text, at)
	m.Forward = telegram.ForwardOrigin{Kind: telegram.OriginChannel, ID: origin}
	return m
}

func handle(name string) telegram.SessionHandle {
	return telegram.SessionHandle{Name: name, Path: name + ".session"}
}

// asyncConnector runs fn on a goroutine of its own, the way gotd's
// Client.Run does.
type asyncConnector struct {
	*fakeConnector
}

func (c asyncConnector) Run(ctx context.Context, session telegram.SessionHandle, fn func(ctx context.Context, api API) error) error {
	return c.fakeConnector.Run(ctx, session, func(ctx context.Context, api API) error {
		errc := make(chan error, 1)
		go func() { errc <- fn(ctx, api) }()
		return <-errc
	})
}
