// internal/llmutil/parser.go
package llmutil

import (
	"regexp"
	"strings"
)

var (
	// Regex definitions use \x60 (hex representation) for backticks because Go raw strings cannot contain backticks.

	// fenceOpenRegex finds a JSON object or array opening a markdown fence.
	fenceOpenRegex = regexp.MustCompile("\x60\x60\x60(?:json)?\\s*([{\\[])")

	// codeBlockRegex extracts content wrapped in markdown, supporting various language tags (robot, text, etc.).
	codeBlockRegex = regexp.MustCompile("(?s)\x60\x60\x60[a-zA-Z]*\\s*(.*?)\\s*\x60\x60\x60")
)

// CleanCodeOutput removes common markdown artifacts (like ```robot) from a script
// returned as plain code.
func CleanCodeOutput(content string) string {
	content = strings.TrimSpace(content)
	if strings.Contains(content, "```") {
		matches := codeBlockRegex.FindStringSubmatch(content)
		if len(matches) > 1 {
			return strings.TrimSpace(matches[1]) + "\n"
		}
	}
	return content
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	// Simple truncation; does not account for rune boundaries but sufficient for logging.
	return s[:maxLen] + "..."
}
