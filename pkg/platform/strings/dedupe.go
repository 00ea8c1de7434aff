// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// MessageSeparator joins multiple row messages into one failure-message field.
const MessageSeparator = "; "

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{"  foo ", "bar", "foo", "", "  "})
//	// Returns: []string{"foo", "bar"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// JoinMessages dedupes and trims messages and joins them with
// MessageSeparator. No usable messages yields "".
func JoinMessages(messages ...string) string {
	return strings.Join(DedupeAndTrim(messages), MessageSeparator)
}

// AppendMessages extends an existing joined message with more messages.
func AppendMessages(existing string, messages ...string) string {
	if existing == "" {
		return JoinMessages(messages...)
	}
	return JoinMessages(append(strings.Split(existing, MessageSeparator), messages...)...)
}
