// Package links turns user supplied channel references into usernames the
// telegram API can resolve.
package links

import "strings"

// DefaultMaxChannels caps how many channels one run may scan.
const DefaultMaxChannels = 50

// prefixes are tried in order, first match wins
var urlPrefixes = []string{
	"https://t.me/",
	"http://t.me/",
	"t.me/",
}

// Normalize converts a channel reference (full or partial t.me url, @handle,
// bare name) into a canonical channel identifier.
//
//	https://t.me/foo/123 -> foo
//	@bar                 -> bar
//	qux                  -> qux
func Normalize(ref string) string {
	for _, prefix := range urlPrefixes {
		if rest, ok := strings.CutPrefix(ref, prefix); ok {
			name, _, _ := strings.Cut(rest, "/")
			return name
		}
	}

	if rest, ok := strings.CutPrefix(ref, "@"); ok {
		return rest
	}

	return ref
}

// ParseList splits a newline separated block of references, drops blank and
// repeated lines, keeps at most max entries and normalizes each of them.
// References that normalize to nothing are skipped.
// Order follows first appearance. max <= 0 means DefaultMaxChannels.
func ParseList(raw string, max int) []string {
	if max <= 0 {
		max = DefaultMaxChannels
	}

	seen := make(map[string]bool)
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true

		// "https://t.me/" or "@" alone name no channel
		name := Normalize(line)
		if name == "" {
			continue
		}

		if len(out) == max {
			break
		}
		out = append(out, name)
	}

	return out
}
