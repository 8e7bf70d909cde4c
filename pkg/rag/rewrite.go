package rag

import (
	"strings"

	"github.com/civitaslabs/ordina/pkg/session"
	"github.com/civitaslabs/ordina/pkg/sparse"
)

// minSelfContainedWords is the word count below which a query is treated as
// a follow-up that needs terms from the prior turn to stand on its own.
const minSelfContainedWords = 4

// maxCarriedTerms bounds how many prior-turn terms are appended to a
// follow-up query.
const maxCarriedTerms = 6

// followUpLeads are leading words that signal the query refers back to the
// previous exchange.
var followUpLeads = map[string]bool{
	"it":    true,
	"that":  true,
	"this":  true,
	"they":  true,
	"those": true,
	"these": true,
	"its":   true,
	"their": true,
}

// followUpPrefixes are leading phrases that signal a follow-up.
var followUpPrefixes = []string{
	"what about",
	"how about",
	"and what",
	"tell me more",
}

// Rewrite produces a self-contained query string. Follow-up queries that
// lean on the previous turn (very short, or opening with a back-reference)
// get the salient terms of the prior query appended so both retrievers see
// the full topic. Self-contained queries pass through unchanged.
func Rewrite(query string, turns []session.Turn) string {
	if len(turns) == 0 {
		return query
	}

	if !looksLikeFollowUp(query) {
		return query
	}

	prior := turns[len(turns)-1].Query
	carried := salientTerms(prior, query)
	if len(carried) == 0 {
		return query
	}

	return query + " " + strings.Join(carried, " ")
}

func looksLikeFollowUp(query string) bool {
	lowered := strings.ToLower(strings.TrimSpace(query))
	words := strings.Fields(lowered)
	if len(words) == 0 {
		return false
	}

	if len(words) < minSelfContainedWords {
		return true
	}

	if followUpLeads[strings.Trim(words[0], "?.,!")] {
		return true
	}

	for _, prefix := range followUpPrefixes {
		if strings.HasPrefix(lowered, prefix) {
			return true
		}
	}

	return false
}

// salientTerms extracts content terms from the prior query that the current
// query does not already contain, in first-seen order.
func salientTerms(prior, current string) []string {
	present := make(map[string]bool)
	for _, term := range sparse.Tokenize(current) {
		present[term] = true
	}

	var terms []string
	for _, term := range sparse.Tokenize(prior) {
		if present[term] {
			continue
		}
		present[term] = true

		terms = append(terms, term)
		if len(terms) == maxCarriedTerms {
			break
		}
	}

	return terms
}
