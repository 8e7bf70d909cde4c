// Package moderation gates incoming queries against a blocklist of
// disallowed terms before any retrieval or generation runs.
package moderation

import "strings"

// DefaultBlocklist covers topics the assistant must not engage with.
var DefaultBlocklist = []string{
	"how to make a bomb",
	"explosive materials",
	"hatred",
	"self-harm",
}

// RefusalMessage is returned to the user when a query is blocked.
const RefusalMessage = "I can only help with questions about municipal ordinances and local government services. Please rephrase your question."

// Checker screens query text against a lowercase blocklist.
type Checker struct {
	terms []string
}

// NewChecker creates a Checker with the given blocked terms. Terms are
// matched case-insensitively as substrings. A nil or empty list falls back
// to DefaultBlocklist.
func NewChecker(terms []string) *Checker {
	if len(terms) == 0 {
		terms = DefaultBlocklist
	}

	lowered := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			lowered = append(lowered, term)
		}
	}

	return &Checker{terms: lowered}
}

// Allowed reports whether the query passes the blocklist.
func (c *Checker) Allowed(query string) bool {
	lowered := strings.ToLower(query)
	for _, term := range c.terms {
		if strings.Contains(lowered, term) {
			return false
		}
	}

	return true
}
