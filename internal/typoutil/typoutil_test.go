package typoutil

import (
	"reflect"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{"both empty", "", "", 0},
		{"a empty", "", "hello", 5},
		{"b empty", "hello", "", 5},
		{"identical", "hello", "hello", 0},
		{"simple substitution", "kitten", "sitten", 1},
		{"simple insertion", "apple", "applye", 1},
		{"simple deletion", "banana", "banna", 1},
		{"multiple edits", "saturday", "sunday", 3},
		{"transposition", "form", "from", 1},
		{"unicode substitution", "cliché", "cliche", 1},
		{"unicode twice", "résumé", "resume", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); got != tt.want {
				t.Errorf("Distance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDistanceWithLimit(t *testing.T) {
	tests := []struct {
		name        string
		a           string
		b           string
		maxDistance int
		want        int
	}{
		{"within limit", "kitten", "sitting", 3, 3},
		{"over limit", "kitten", "sitting", 2, 3},
		{"length difference over limit", "cat", "catalogue", 2, 3},
		{"zero limit identical", "cat", "cat", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DistanceWithLimit(tt.a, tt.b, tt.maxDistance); got != tt.want {
				t.Errorf("DistanceWithLimit(%q, %q, %d) = %d, want %d", tt.a, tt.b, tt.maxDistance, got, tt.want)
			}
		})
	}
}

func TestSimilarTerms(t *testing.T) {
	vocabulary := []string{"cat", "cats", "coat", "cot", "dog", "tac", "act"}

	tests := []struct {
		name        string
		term        string
		maxDistance int
		maxResults  int
		want        []Match
	}{
		{
			name:        "distance one",
			term:        "cat",
			maxDistance: 1,
			want:        []Match{{"act", 1}, {"cats", 1}, {"coat", 1}, {"cot", 1}},
		},
		{
			name:        "limited results",
			term:        "cat",
			maxDistance: 2,
			maxResults:  2,
			want:        []Match{{"act", 1}, {"cats", 1}},
		},
		{
			name:        "term not in vocabulary",
			term:        "dgo",
			maxDistance: 1,
			want:        []Match{{"dog", 1}},
		},
		{"zero distance", "cat", 0, 0, []Match{}},
		{"empty term", "", 2, 0, []Match{}},
		{"nothing close", "elephant", 2, 0, []Match{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SimilarTerms(tt.term, vocabulary, tt.maxDistance, tt.maxResults)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SimilarTerms(%q, %d, %d) = %v, want %v", tt.term, tt.maxDistance, tt.maxResults, got, tt.want)
			}
		})
	}
}
