package search

import "strings"

// Stop words excluded when checking for verbatim matches. Pure
// function words; they carry no retrieval signal on their own.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// tokenize lowercases, strips surrounding punctuation and drops stop
// words.
func tokenize(text string) []string {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))

	for _, field := range fields {
		token := strings.ToLower(strings.Trim(field, ".,!?;:'\"-()[]{}"))
		if token != "" && !stopWords[token] {
			tokens = append(tokens, token)
		}
	}

	return tokens
}

// containsAllQueryWords reports whether every content-bearing query
// word appears somewhere in the document. Used for the verbatim-match
// score boost.
func containsAllQueryWords(document, query string) bool {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return false
	}

	present := make(map[string]bool)
	for _, token := range tokenize(document) {
		present[token] = true
	}

	for _, token := range queryTokens {
		if !present[token] {
			return false
		}
	}
	return true
}
