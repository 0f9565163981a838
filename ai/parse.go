package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParseStatus tags a repair outcome.
type ParseStatus string

const (
	// ParseOk means the payload decoded without loss.
	ParseOk ParseStatus = "ok"
	// ParsePartial means structured data was recovered but some of it was
	// dropped along the way.
	ParsePartial ParseStatus = "partial"
	// ParseFailed means no structured data survived. Callers must treat this
	// the same as a provider failure, not as a parse of empty content.
	ParseFailed ParseStatus = "failed"
)

// ParseResult is the tagged outcome of the repair ladder.
type ParseResult struct {
	Status  ParseStatus
	Value   any
	Dropped int
}

// Objects flattens the recovered value into a list of JSON objects. A single
// object becomes a one-element list; non-object array entries are skipped.
func (r ParseResult) Objects() []map[string]any {
	switch v := r.Value.(type) {
	case map[string]any:
		return []map[string]any{v}
	case []any:
		objects := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				objects = append(objects, obj)
			}
		}
		return objects
	}
	return nil
}

// flatObjectPattern matches a maximal balanced-brace substring with no nested
// braces, used as the last-resort salvage pass.
var flatObjectPattern = regexp.MustCompile(`\{[^{}]*\}`)

// ParsePayload runs the repair ladder over raw generation output that is
// expected to contain one JSON value (an object or an array of objects).
// Providers routinely wrap payloads in prose, truncate them mid-object, or
// leave trailing commas, so each rung is more aggressive than the last and
// the first success wins. requiredKeys applies only to the final salvage
// pass: recovered fragments missing any of them are discarded.
func ParsePayload(raw string, requiredKeys ...string) ParseResult {
	raw = strings.TrimSpace(raw)

	// Rung 1: the whole string is already valid JSON.
	var direct any
	if err := json.Unmarshal([]byte(raw), &direct); err == nil {
		return ParseResult{Status: ParseOk, Value: direct}
	}

	// Rung 2: slice out the bracketed region and normalize embedded newlines.
	start := strings.IndexAny(raw, "[{")
	if start == -1 {
		return ParseResult{Status: ParseFailed}
	}
	isArray := raw[start] == '['
	end := strings.LastIndex(raw, "]")
	if !isArray {
		end = strings.LastIndex(raw, "}")
	}

	var candidate string
	if end > start {
		candidate = raw[start : end+1]
	} else {
		candidate = raw[start:]
	}
	candidate = strings.ReplaceAll(candidate, "\n", " ")
	candidate = strings.ReplaceAll(candidate, "\r", " ")

	var sliced any
	if err := json.Unmarshal([]byte(candidate), &sliced); err == nil {
		return ParseResult{Status: ParseOk, Value: sliced}
	}

	// Rung 3: the payload was cut off mid-object. Truncate at the last fully
	// closed object boundary and re-close the enclosing array.
	if strings.Count(candidate, "{") > strings.Count(candidate, "}") {
		if closed := closeTruncatedArray(candidate); closed != "" {
			var repaired any
			if err := json.Unmarshal([]byte(closed), &repaired); err == nil {
				return ParseResult{Status: ParsePartial, Value: repaired, Dropped: 1}
			}
		}
	}

	// Rung 4: scan for flat objects and keep the ones that decode and carry
	// the minimum required keys.
	matches := flatObjectPattern.FindAllString(candidate, -1)
	var kept []any
	dropped := 0
	for _, m := range matches {
		var obj map[string]any
		if err := json.Unmarshal([]byte(m), &obj); err != nil {
			dropped++
			continue
		}
		if !hasKeys(obj, requiredKeys) {
			dropped++
			continue
		}
		kept = append(kept, obj)
	}
	if len(kept) > 0 {
		return ParseResult{Status: ParsePartial, Value: kept, Dropped: dropped}
	}

	return ParseResult{Status: ParseFailed}
}

// closeTruncatedArray cuts an unbalanced JSON array at the last complete
// object boundary and re-closes it. Returns "" when there is no boundary to
// recover from.
func closeTruncatedArray(s string) string {
	if last := strings.LastIndex(s, "},"); last != -1 {
		return s[:last+1] + "]"
	}
	// No complete object at all; try closing the one in flight.
	trimmed := strings.TrimRight(s, ", ")
	if strings.HasPrefix(trimmed, "[") && !strings.HasSuffix(trimmed, "}") {
		return trimmed + "}]"
	}
	return ""
}

func hasKeys(obj map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return false
		}
	}
	return true
}
