// Package detect guesses the language of an editor buffer and debounces the
// guess behind a quiet period so detection runs once per typing pause, never
// per keystroke. Detection reads the buffer but never writes it.
package detect

import "strings"

// Language returns a best-effort language identifier for the buffer content,
// or "" when nothing matches. Markers are checked from most to least
// distinctive so that, e.g., TypeScript annotations win over plain
// JavaScript.
func Language(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "#!") {
		firstLine, _, _ := strings.Cut(trimmed, "\n")
		switch {
		case strings.Contains(firstLine, "python"):
			return "python"
		case strings.Contains(firstLine, "node"):
			return "javascript"
		case strings.Contains(firstLine, "ruby"):
			return "ruby"
		}
	}

	switch {
	case strings.Contains(trimmed, "package ") && strings.Contains(trimmed, "func "):
		return "go"
	case strings.Contains(trimmed, "def ") && (strings.Contains(trimmed, ":") || strings.Contains(trimmed, "import ")):
		return "python"
	case strings.Contains(trimmed, "public class ") || strings.Contains(trimmed, "private class "):
		return "java"
	case strings.Contains(trimmed, "fn ") && strings.Contains(trimmed, "let "):
		return "rust"
	case hasTypeScriptMarkers(trimmed):
		return "typescript"
	case hasJavaScriptMarkers(trimmed):
		return "javascript"
	}
	return ""
}

func hasTypeScriptMarkers(s string) bool {
	if !hasJavaScriptMarkers(s) {
		return false
	}
	return strings.Contains(s, ": string") ||
		strings.Contains(s, ": number") ||
		strings.Contains(s, ": boolean") ||
		strings.Contains(s, "interface ") ||
		strings.Contains(s, "<T>")
}

func hasJavaScriptMarkers(s string) bool {
	return strings.Contains(s, "function ") ||
		strings.Contains(s, "const ") ||
		strings.Contains(s, "let ") ||
		strings.Contains(s, "=>")
}
