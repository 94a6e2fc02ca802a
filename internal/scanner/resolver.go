package scanner

import (
	"context"

	"github.com/blockedby/repost-tracer/internal/logger"
	"github.com/blockedby/repost-tracer/internal/models"
	"github.com/blockedby/repost-tracer/internal/telegram"
)

// DefaultMinParticipants is the smallest origin channel worth reporting.
const DefaultMinParticipants = 1500

// Resolver turns forwarded messages into repost records.
type Resolver struct {
	minParticipants int
	log             *logger.Logger
}

// NewResolver creates a resolver that drops resolved origins with fewer than
// minParticipants members. minParticipants <= 0 means DefaultMinParticipants.
func NewResolver(minParticipants int, log *logger.Logger) *Resolver {
	if minParticipants <= 0 {
		minParticipants = DefaultMinParticipants
	}
	if log == nil {
		log = logger.Get()
	}
	return &Resolver{
		minParticipants: minParticipants,
		log:             log,
	}
}

// Resolve classifies msg. It returns a record and true when msg is a forward
// from a channel that passes the size filter, or whose origin could not be
// looked up at all. Lookup failures never surface as errors; the only error
// returned is ctx's own.
func (r *Resolver) Resolve(ctx context.Context, api API, msg telegram.Message) (models.RepostRecord, bool, error) {
	originID, ok := msg.Forward.ChannelID()
	if !ok {
		return models.RepostRecord{}, false, nil
	}

	rec := models.RepostRecord{
		MessageExcerpt:   models.Excerpt(msg.Text),
		MessageTimestamp: msg.Date,
	}

	title, link, count, err := r.lookup(ctx, api, originID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.RepostRecord{}, false, ctxErr
		}
		r.log.Debug().Err(err).Int64("origin_id", originID).Msg("origin lookup failed, keeping as unknown")

		// unresolved origins bypass the size filter
		rec.OriginalChannelTitle = models.UnknownChannelTitle
		rec.OriginalChannelLink = models.UnknownLink(originID)
		return rec, true, nil
	}

	if count < r.minParticipants {
		r.log.Debug().Int64("origin_id", originID).Int("participants", count).Msg("origin below size threshold, skipped")
		return models.RepostRecord{}, false, nil
	}

	rec.OriginalChannelTitle = title
	rec.OriginalChannelLink = link
	return rec, true, nil
}

func (r *Resolver) lookup(ctx context.Context, api API, id int64) (title, link string, count int, err error) {
	ch, err := api.GetChannel(ctx, id)
	if err != nil {
		return "", "", 0, err
	}

	full, err := api.GetFullChannel(ctx, ch)
	if err != nil {
		return "", "", 0, err
	}

	link = models.PrivateLink(id)
	if ch.Username != "" {
		link = models.PublicLink(ch.Username)
	}
	return ch.Title, link, full.ParticipantsCount, nil
}
