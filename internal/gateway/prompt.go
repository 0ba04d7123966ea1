package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// Result is the outcome of a typed prompt. OK reports whether a value
// was parsed; Response always carries the underlying exchange so
// callers can inspect warnings and token counts either way.
type Result[T any] struct {
	OK       bool
	Value    T
	Reason   string
	Response Response
}

// Prompt runs a single-turn exchange and parses the first JSON object
// found in the reply into T. Model preamble and trailing prose around
// the object are tolerated. A parse failure is reported in the Result,
// never as an error.
func Prompt[T any](ctx context.Context, g *Gateway, text string, opts Options) Result[T] {
	resp := g.Chat(ctx, text, opts)
	if !resp.Success {
		return Result[T]{Reason: resp.Error, Response: resp}
	}

	raw, ok := extractJSONObject(resp.Content)
	if !ok {
		log.Printf("gateway: no JSON object found in provider response")
		return Result[T]{Reason: "no JSON object found in response", Response: resp}
	}

	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		log.Printf("gateway: failed to parse typed response: %v", err)
		return Result[T]{Reason: fmt.Sprintf("failed to parse response: %v", err), Response: resp}
	}
	return Result[T]{OK: true, Value: value, Response: resp}
}

// extractJSONObject returns the first balanced top-level JSON object in
// s. Braces inside string literals are skipped, escapes included.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
