package normalize

import "strings"

// Email returns a normalized form of an email address suitable for
// login requests and comparisons. Normalization currently trims
// surrounding whitespace and lower-cases the address.
func Email(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// ConversationName normalizes a conversation name for comparisons.
func ConversationName(n string) string {
	return strings.ToLower(strings.TrimSpace(n))
}

// IsGlobalName reports whether a conversation name denotes the global
// conversation. The server is inconsistent about that name ("Global",
// "global chat", ...), so matching happens on the normalized form.
func IsGlobalName(n string) bool {
	switch ConversationName(n) {
	case "global", "global chat":
		return true
	}
	return false
}
