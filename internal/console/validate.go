package console

import (
	"regexp"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/sahilm/fuzzy"
)

// maxSuggestions caps "did you mean" candidates.
const maxSuggestions = 3

// maxEditDistance bounds the edit-distance fallback for suggestions.
const maxEditDistance = 3

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._+-]*$`)

// ValidIdentifier reports whether s is a well-formed toolchain identifier
// such as "swift-6.0.2" or "main-snapshot-2024-09-01".
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// Suggest returns up to three known identifiers close to input. Fuzzy
// subsequence matches rank first; edit distance covers typos that break
// the subsequence.
func Suggest(input string, known []string) []string {
	input = strings.TrimSpace(input)
	if input == "" || len(known) == 0 {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if !seen[s] && len(out) < maxSuggestions {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, m := range fuzzy.Find(input, known) {
		add(m.Str)
	}
	if len(out) >= maxSuggestions {
		return out
	}

	type scored struct {
		id   string
		dist int
	}
	var near []scored
	lower := strings.ToLower(input)
	for _, id := range known {
		d := levenshtein.ComputeDistance(lower, strings.ToLower(id))
		if d <= maxEditDistance {
			near = append(near, scored{id, d})
		}
	}
	slices.SortStableFunc(near, func(a, b scored) int { return a.dist - b.dist })
	for _, n := range near {
		add(n.id)
	}
	return out
}

// sanitizeIdentifier strips characters that can never appear in an
// identifier so suggestions still work for inputs like "swift 6.0".
func sanitizeIdentifier(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '+' || r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}
