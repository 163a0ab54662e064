package rag

import (
	"regexp"
	"strings"
)

const (
	// simpleWordLimit is the word count below which any query gets the short template
	simpleWordLimit = 5
	// conversationalWordLimit caps how long a greeting or closing can run;
	// longer messages that open with one carry a real question
	conversationalWordLimit = 10
)

var conversationalOpener = regexp.MustCompile(`(?i)^\s*(hi+|hello+|hey+|hiya|yo|howdy|greetings|good\s+(morning|afternoon|evening|night)|how\s+are\s+(you|u)|what'?s\s+up|sup|thanks?|thank\s+(you|u)|thx|ty|ok(ay)?|cool|great|bye+|goodbye|see\s+(you|ya)|take\s+care|vanakkam|namaste)\b`)

// IsSimpleQuery reports whether the query is a greeting/closing or too short to need retrieval depth
func IsSimpleQuery(query string) bool {
	q := strings.TrimSpace(query)
	if q == "" {
		return true
	}
	words := len(strings.Fields(q))
	if words <= conversationalWordLimit && conversationalOpener.MatchString(q) {
		return true
	}
	return words < simpleWordLimit
}
