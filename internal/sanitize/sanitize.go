// Package sanitize strips markup from user-provided text before it is
// stored. Taskloop fields (usernames, todo titles, descriptions) are plain
// text; anything that looks like HTML is hostile input from the API's point
// of view, so the strict bluemonday policy removes it entirely.
package sanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared strict policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		// StrictPolicy allows no elements and no attributes: the output is
		// the input with all markup removed.
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text removes all HTML elements and attributes from the input and trims
// surrounding whitespace. Must be called on every user-provided string
// before persistence.
func Text(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(getPolicy().Sanitize(input))
}
