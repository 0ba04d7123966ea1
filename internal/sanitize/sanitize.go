// Package sanitize screens tenant-supplied free text before it reaches a
// shared prompt template. Known injection phrasing blocks the call;
// sensitive-data matches only produce advisory warnings, because false
// positives on legitimate compliance text must not block work.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength bounds input size to prevent token exhaustion.
const DefaultMaxLength = 10000

// ValidationError reports blocked input. The message is surfaced verbatim
// to callers.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Invalid input detected in %s. Please remove special instructions.", e.Field)
}

var injectionPatterns = []string{
	`ignore\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|context)`,
	`system:\s*you\s+are`,
	`assistant:\s*`,
	`human:\s*`,
	`<\s*system\s*>`,
	`<\s*/?\s*prompt\s*>`,
	`forget\s+(everything|all)`,
	`new\s+instructions?:`,
	`override\s+(system|instructions?)`,
	`act\s+as\s+if`,
	`pretend\s+(you\s+are|to\s+be)`,
	`jailbreak`,
	`dan\s+mode`,
	`developer\s+mode`,
	`ignore\s+safety`,
	`bypass\s+(filter|safety|restrictions?)`,
}

var injectionRe = regexp.MustCompile(`(?i)` + strings.Join(injectionPatterns, "|"))

type sensitivePattern struct {
	name string
	re   *regexp.Regexp
}

var sensitivePatterns = []sensitivePattern{
	{"SSN", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"CreditCard", regexp.MustCompile(`\b\d{16}\b|\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`)},
	{"Password", regexp.MustCompile(`(?i)password\s*[:=]\s*\S+`)},
	{"ApiKey", regexp.MustCompile(`(?i)api[_-]?key\s*[:=]\s*\S+`)},
	{"Secret", regexp.MustCompile(`(?i)secret\s*[:=]\s*\S+`)},
	{"NationalID", regexp.MustCompile(`\b[12]\d{9}\b`)},
}

// Prompt-framing escapes: a separating character defuses the delimiter
// while keeping the text readable.
var escaper = strings.NewReplacer(
	"```", "'''",
	"<<", "< <",
	">>", "> >",
	"{{", "{ {",
	"}}", "} }",
)

// Sanitize validates and cleans one field of user-authored text. It
// returns the escaped text plus any sensitive-data warnings. Injection
// matches fail with a *ValidationError before any network call is made.
// Empty or whitespace-only input is a no-op.
func Sanitize(input, fieldName string, maxLength int) (string, []string, error) {
	if strings.TrimSpace(input) == "" {
		return "", nil, nil
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if len(input) > maxLength {
		// Back the cut off to a rune boundary so multibyte text stays
		// valid UTF-8.
		cut := maxLength
		for cut > 0 && !utf8.RuneStart(input[cut]) {
			cut--
		}
		input = input[:cut]
	}

	if injectionRe.MatchString(input) {
		return "", nil, &ValidationError{Field: fieldName}
	}

	var warnings []string
	if detected := DetectSensitive(input); len(detected) > 0 {
		warnings = append(warnings, "Sensitive data detected: "+strings.Join(detected, ", "))
	}

	return escaper.Replace(input), warnings, nil
}

// DetectSensitive returns the names of sensitive-data patterns matched by
// the input. Detection is advisory and never blocks a request.
func DetectSensitive(input string) []string {
	var detected []string
	for _, p := range sensitivePatterns {
		if p.re.MatchString(input) {
			detected = append(detected, p.name)
		}
	}
	return detected
}
