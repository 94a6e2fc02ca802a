package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/repost-tracer/internal/config"
	"github.com/blockedby/repost-tracer/internal/models"
)

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name string
		job  config.Job
		set  map[string]bool
		want config.Job
	}{
		{
			name: "no flags keeps the job file",
			job:  config.Job{Links: []string{"from_file"}, Limit: 200, Top: 5, Output: "job.csv"},
			set:  map[string]bool{},
			want: config.Job{Links: []string{"from_file"}, Limit: 200, Top: 5, Output: "job.csv"},
		},
		{
			name: "explicit flags override the job file",
			job:  config.Job{Links: []string{"from_file"}, Limit: 200, Top: 5, Output: "job.csv"},
			set:  map[string]bool{"links": true, "sessions": true, "limit": true, "out": true, "top": true},
			want: config.Job{Links: []string{"a", "b"}, Sessions: []string{"alice", "bob"}, Limit: 300, Top: 3, Output: "out.csv"},
		},
		{
			name: "default top fills an empty job",
			job:  config.Job{},
			set:  map[string]bool{},
			want: config.Job{Top: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := tt.job
			applyFlags(&job, tt.set, " a, ,b ", "alice,bob", 300, "out.csv", 3)
			assert.Equal(t, tt.want, job)
		})
	}
}

func TestWriteCSV_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.csv")
	records := []models.RepostRecord{{
		OriginalChannelTitle: "Big",
		OriginalChannelLink:  "https://t.me/big",
		MessageExcerpt:       "hi",
		MessageTimestamp:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}}

	require.NoError(t, writeCSV(path, records))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"Big", "https://t.me/big", "hi", "2024-01-02 03:04:05"}, rows[1])
}
