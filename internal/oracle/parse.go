// File: internal/oracle/parse.go
package oracle

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"
)

// fenceRegex extracts the payload of a markdown code block, which models
// wrap around JSON no matter how firmly the prompt forbids it.
var fenceRegex = regexp.MustCompile(fmt.Sprintf("(?s)%s(?:json)?\\s*(.*?)\\s*%s", "```", "```"))

var (
	arrayRegex  = regexp.MustCompile(`(?s)\[.*\]`)
	objectRegex = regexp.MustCompile(`(?s)\{.*\}`)
)

// extractJSON strips code-fence markup from a model response and, failing
// that, falls back to the first well-formed-looking bracketed or braced
// substring. wantArray selects which bracket shape the fallback hunts for.
func extractJSON(response string, wantArray bool) string {
	response = strings.TrimSpace(response)
	if m := fenceRegex.FindStringSubmatch(response); len(m) > 1 {
		response = strings.TrimSpace(m[1])
	}
	re := objectRegex
	if wantArray {
		re = arrayRegex
	}
	if m := re.FindString(response); m != "" {
		return m
	}
	return response
}

// parseCandidates decodes a find-cheaper response. A malformed response
// yields (nil, false), never an error: the oracle is advisory and the run
// must not abort on its noise.
func parseCandidates(response string) ([]Candidate, bool) {
	payload := extractJSON(response, true)
	if payload == "" {
		return nil, false
	}
	var out []Candidate
	if err := json.UnmarshalFromString(payload, &out); err != nil {
		return nil, false
	}
	return out, true
}

// parseMatch decodes a single best-candidate response.
func parseMatch(response string) (Match, bool) {
	payload := extractJSON(response, false)
	if payload == "" {
		return Match{}, false
	}
	var out Match
	if err := json.UnmarshalFromString(payload, &out); err != nil {
		return Match{}, false
	}
	return out, true
}
