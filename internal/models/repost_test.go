package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "empty", text: "", want: ""},
		{name: "short", text: "hello", want: "hello"},
		{name: "exactly 200", text: strings.Repeat("a", 200), want: strings.Repeat("a", 200)},
		{name: "201 characters", text: strings.Repeat("a", 201), want: strings.Repeat("a", 200) + "..."},
		{name: "multibyte counted as characters", text: strings.Repeat("я", 201), want: strings.Repeat("я", 200) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Excerpt(tt.text))
		})
	}
}

func TestLinks(t *testing.T) {
	assert.Equal(t, "https://t.me/durov", PublicLink("durov"))
	assert.Equal(t, "[Private Channel | ID: 42]", PrivateLink(42))
	assert.Equal(t, "[ID: 42]", UnknownLink(42))
}

func TestRepostRecord_Row(t *testing.T) {
	rec := RepostRecord{
		OriginalChannelTitle: "Go News",
		OriginalChannelLink:  "https://t.me/gonews",
		MessageExcerpt:       "release",
		MessageTimestamp:     time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC),
	}

	assert.Equal(t, []string{"Go News", "https://t.me/gonews", "release", "2024-03-01 09:05:07"}, rec.Row())
	assert.Len(t, ExportHeader, len(rec.Row()))
}

func TestRepostRecord_Key(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC)
	a := RepostRecord{OriginalChannelTitle: "A", MessageTimestamp: ts}
	b := RepostRecord{OriginalChannelTitle: "A", MessageTimestamp: ts.In(time.FixedZone("x", 3600))}
	c := RepostRecord{OriginalChannelTitle: "A", MessageTimestamp: ts.Add(time.Second)}

	assert.Equal(t, a.Key(), b.Key(), "same instant in another zone")
	assert.NotEqual(t, a.Key(), c.Key())
}
