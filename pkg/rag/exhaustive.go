package rag

import "strings"

// exhaustiveWords are single words that, appearing as a whole word, mark a
// query as asking for comprehensive coverage rather than the single best
// answer.
var exhaustiveWords = map[string]bool{
	"all":       true,
	"list":      true,
	"every":     true,
	"enumerate": true,
}

// exhaustivePhrases are multi-word markers matched as substrings.
var exhaustivePhrases = []string{
	"give me all",
	"show me all",
	"how many",
	"what are all",
	"complete list",
}

// IsExhaustive reports whether the query asks for an exhaustive result set
// ("list all ordinances about X") rather than a focused top-K answer.
func IsExhaustive(query string) bool {
	lowered := strings.ToLower(query)

	for _, phrase := range exhaustivePhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}

	for _, word := range strings.Fields(lowered) {
		if exhaustiveWords[strings.Trim(word, "?.,!:;")] {
			return true
		}
	}

	return false
}
