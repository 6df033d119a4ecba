package registry

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

const (
	// suggestionThreshold is the minimum similarity for a fuzzy suggestion.
	suggestionThreshold = 0.3
	// maxSuggestions caps how many suggestions a lookup miss carries.
	maxSuggestions = 5
)

type scoredPath struct {
	path  string
	score float64
}

// Suggest returns up to five registered paths similar to the query, ranked by
// edit-distance similarity over path, description and signature.
func (r *Registry) Suggest(query string) []string {
	query = strings.ToLower(query)

	r.mu.RLock()
	candidates := make([]scoredPath, 0, len(r.index))
	for path, entry := range r.index {
		score := similarity(query, strings.ToLower(path))
		if s := similarity(query, strings.ToLower(entry.Descriptor.Description)); s > score {
			score = s
		}
		if s := similarity(query, strings.ToLower(entry.Descriptor.Signature())); s > score {
			score = s
		}
		if score >= suggestionThreshold {
			candidates = append(candidates, scoredPath{path: path, score: score})
		}
	}
	r.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].path < candidates[j].path
	})

	if len(candidates) > maxSuggestions {
		candidates = candidates[:maxSuggestions]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.path
	}
	return out
}

// similarity maps edit distance to a 0..1 score, 1 meaning identical.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
