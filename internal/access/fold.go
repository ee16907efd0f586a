package access

import (
	"strings"

	"golang.org/x/text/cases"
)

// fold normalizes names for case-insensitive comparison. cases.Caser is not safe
// for concurrent use, so a fresh one is created per call.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func equalFold(a, b string) bool {
	return fold(a) == fold(b)
}

func containsFold(list []string, target string) bool {
	want := fold(target)
	if want == "" {
		return false
	}
	for _, item := range list {
		if fold(item) == want {
			return true
		}
	}
	return false
}
