package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/repost-tracer/internal/models"
)

func TestWriteCSV(t *testing.T) {
	records := []models.RepostRecord{
		rec("Big News", "https://t.me/big", "line one, with comma", ts),
		rec("Unknown channel", "[ID: 42]", "say \"hi\"", ts.Add(25*time.Hour + time.Minute + time.Second)),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"OriginalChannelTitle", "OriginalChannelLink", "MessageExcerpt", "MessageTimestamp"},
		{"Big News", "https://t.me/big", "line one, with comma", "2024-05-01 10:00:00"},
		{"Unknown channel", "[ID: 42]", "say \"hi\"", "2024-05-02 11:01:01"},
	}, rows)
}

func TestWriteCSV_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	assert.Equal(t, "OriginalChannelTitle,OriginalChannelLink,MessageExcerpt,MessageTimestamp\n", buf.String())
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "reposts_abc.csv", FileName("abc"))
}
