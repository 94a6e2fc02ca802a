package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/repost-tracer/internal/models"
)

var ts = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func rec(title, link, text string, at time.Time) models.RepostRecord {
	return models.RepostRecord{
		OriginalChannelTitle: title,
		OriginalChannelLink:  link,
		MessageExcerpt:       text,
		MessageTimestamp:     at,
	}
}

func TestAggregate_DeduplicatesOnAllFields(t *testing.T) {
	a := rec("A", "https://t.me/a", "hello", ts)
	b := rec("A", "https://t.me/a", "hello", ts.Add(time.Minute))

	rep := Aggregate([]models.RepostRecord{a, a, b})

	assert.Equal(t, []models.RepostRecord{a, b}, rep.Records)
	assert.Equal(t, []models.ChannelCount{{Title: "A", Reposts: 2}}, rep.Ranking)
}

func TestAggregate_SubSecondTimestampsCollapse(t *testing.T) {
	a := rec("A", "https://t.me/a", "hello", ts)
	b := rec("A", "https://t.me/a", "hello", ts.Add(300*time.Millisecond))

	rep := Aggregate([]models.RepostRecord{a, b})

	assert.Len(t, rep.Records, 1)
}

func TestAggregate_Ranking(t *testing.T) {
	records := []models.RepostRecord{
		rec("Small", "https://t.me/small", "1", ts),
		rec("Big", "https://t.me/big", "1", ts),
		rec("Tie", "[Private Channel | ID: 5]", "1", ts),
		rec("Big", "https://t.me/big", "2", ts),
		rec("Tie", "[Private Channel | ID: 5]", "2", ts),
		rec("Big", "https://t.me/big", "3", ts),
	}

	rep := Aggregate(records)

	assert.Equal(t, []models.ChannelCount{
		{Title: "Big", Reposts: 3},
		{Title: "Tie", Reposts: 2},
		{Title: "Small", Reposts: 1},
	}, rep.Ranking)
	assert.Equal(t, 3, rep.UniqueChannels())
}

func TestAggregate_TiesKeepFirstAppearance(t *testing.T) {
	records := []models.RepostRecord{
		rec("Zulu", "https://t.me/zulu", "1", ts),
		rec("Alpha", "https://t.me/alpha", "1", ts),
		rec("Mike", "https://t.me/mike", "1", ts),
	}

	for range 20 {
		rep := Aggregate(records)
		require.Len(t, rep.Ranking, 3)
		assert.Equal(t, "Zulu", rep.Ranking[0].Title)
		assert.Equal(t, "Alpha", rep.Ranking[1].Title)
		assert.Equal(t, "Mike", rep.Ranking[2].Title)
	}
}

func TestAggregate_PublicLinksOnly(t *testing.T) {
	records := []models.RepostRecord{
		rec("B", "https://t.me/bbb", "1", ts),
		rec("Unknown channel", "[ID: 42]", "1", ts),
		rec("A", "https://t.me/aaa", "1", ts),
		rec("P", "[Private Channel | ID: 7]", "1", ts),
		rec("B", "https://t.me/bbb", "2", ts),
	}

	rep := Aggregate(records)

	assert.Equal(t, []string{"https://t.me/aaa", "https://t.me/bbb"}, rep.PublicLinks)
}

func TestAggregate_Empty(t *testing.T) {
	rep := Aggregate(nil)

	assert.Empty(t, rep.Records)
	assert.Empty(t, rep.Ranking)
	assert.Empty(t, rep.PublicLinks)
	assert.Empty(t, rep.Top(DefaultTop))
	assert.Zero(t, rep.UniqueChannels())
}

func TestReport_Top(t *testing.T) {
	rep := Aggregate([]models.RepostRecord{
		rec("A", "", "1", ts),
		rec("A", "", "2", ts),
		rec("B", "", "1", ts),
		rec("C", "", "1", ts),
	})

	assert.Equal(t, []models.ChannelCount{{Title: "A", Reposts: 2}, {Title: "B", Reposts: 1}}, rep.Top(2))
	assert.Len(t, rep.Top(10), 3)
	assert.Len(t, rep.Top(-1), 3)
}
