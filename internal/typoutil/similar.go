// Package typoutil finds spelling variants of a term in an index vocabulary.
package typoutil

import "sort"

// Match is a vocabulary term close to the requested one
type Match struct {
	Term     string
	Distance int
}

// SimilarTerms returns the terms within maxDistance edits of term, excluding term itself,
// ordered by distance and then alphabetically. maxResults <= 0 returns every match.
func SimilarTerms(term string, vocabulary []string, maxDistance, maxResults int) []Match {
	matches := make([]Match, 0)
	if maxDistance <= 0 || term == "" {
		return matches
	}

	runes := []rune(term)
	for _, candidate := range vocabulary {
		if candidate == term {
			continue
		}
		if d := distanceWithLimit(runes, []rune(candidate), maxDistance); d <= maxDistance {
			matches = append(matches, Match{Term: candidate, Distance: d})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Term < matches[j].Term
	})
	if maxResults > 0 && len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches
}
