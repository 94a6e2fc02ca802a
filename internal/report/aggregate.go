// Package report merges the records of a scan run into a deduplicated,
// ranked report.
package report

import (
	"slices"
	"strings"

	"github.com/blockedby/repost-tracer/internal/models"
)

// DefaultTop is how many ranking lines a summary shows.
const DefaultTop = 10

// Report is the aggregated view of one run.
type Report struct {
	Records     []models.RepostRecord `json:"records"`      // deduplicated, first-seen order
	Ranking     []models.ChannelCount `json:"ranking"`      // most reposted first
	PublicLinks []string              `json:"public_links"` // distinct t.me links, sorted
}

// Aggregate removes exact duplicates and ranks origin channels by how many
// distinct records name them. Equal counts keep the order in which the title
// first appeared, so the same input always yields the same report.
func Aggregate(records []models.RepostRecord) *Report {
	rep := &Report{
		Records:     []models.RepostRecord{},
		Ranking:     []models.ChannelCount{},
		PublicLinks: []string{},
	}

	seen := make(map[string]struct{}, len(records))
	counts := make(map[string]int)
	var titles []string
	links := make(map[string]struct{})

	for _, rec := range records {
		key := rec.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		rep.Records = append(rep.Records, rec)

		if _, ok := counts[rec.OriginalChannelTitle]; !ok {
			titles = append(titles, rec.OriginalChannelTitle)
		}
		counts[rec.OriginalChannelTitle]++

		if strings.HasPrefix(rec.OriginalChannelLink, models.PublicLinkPrefix) {
			links[rec.OriginalChannelLink] = struct{}{}
		}
	}

	for _, title := range titles {
		rep.Ranking = append(rep.Ranking, models.ChannelCount{Title: title, Reposts: counts[title]})
	}
	slices.SortStableFunc(rep.Ranking, func(a, b models.ChannelCount) int {
		return b.Reposts - a.Reposts
	})

	for link := range links {
		rep.PublicLinks = append(rep.PublicLinks, link)
	}
	slices.Sort(rep.PublicLinks)

	return rep
}

// Top returns at most n ranking lines.
func (r *Report) Top(n int) []models.ChannelCount {
	if n < 0 || n > len(r.Ranking) {
		n = len(r.Ranking)
	}
	return r.Ranking[:n]
}

// UniqueChannels is the number of distinct origin titles.
func (r *Report) UniqueChannels() int {
	return len(r.Ranking)
}
