package strategy

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxTypoDistance is how far a typed name may drift from a known one.
const maxTypoDistance = 2

// Parse maps user input to a Kind. It accepts the wire value, the display
// name, or the first word of the display name, and tolerates small typos.
func Parse(raw string) (Kind, error) {
	token := strings.ToLower(strings.TrimSpace(raw))
	token = strings.Join(strings.Fields(token), " ")
	if token == "" {
		return "", fmt.Errorf("%w: empty", ErrUnknownStrategy)
	}

	for _, k := range order {
		for _, cand := range aliases(k) {
			if token == cand {
				return k, nil
			}
		}
	}

	best := Kind("")
	bestDist := maxTypoDistance + 1
	tie := false
	for _, k := range order {
		for _, cand := range aliases(k) {
			d := levenshtein.ComputeDistance(token, cand)
			switch {
			case d < bestDist:
				best, bestDist, tie = k, d, false
			case d == bestDist && best != k:
				tie = true
			}
		}
	}
	if best == "" || tie {
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, raw)
	}
	return best, nil
}

func aliases(k Kind) []string {
	name := strings.ToLower(catalog[k].Name)
	out := []string{string(k), name}
	if first, _, ok := strings.Cut(name, " "); ok && first != string(k) {
		out = append(out, first)
	}
	return out
}
