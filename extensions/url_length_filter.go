package extensions

import (
	"github.com/agentberlin/vinesnake"
)

// URLLengthFilter drops candidate URLs longer than URLLengthLimit before
// they reach the frontier
func URLLengthFilter(t *vinesnake.Traversal, URLLengthLimit int) {
	t.OnCandidate(func(pageURL string, depth int) bool {
		return len(pageURL) <= URLLengthLimit
	})
}
