package email

import (
	"strings"

	"github.com/emersion/go-message/mail"
)

// ExtractAddress returns the bare, lower-cased address from a From header
// value such as `"Max Muster" <max@example.com>`. Values that are not valid
// RFC 5322 addresses fall back to the text between the last '<' and the
// following '>'.
// An empty result means no address could be found.
func ExtractAddress(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if addr, err := mail.ParseAddress(raw); err == nil {
		return strings.ToLower(addr.Address)
	}

	if start := strings.LastIndex(raw, "<"); start >= 0 {
		if end := strings.Index(raw[start:], ">"); end > 0 {
			raw = raw[start+1 : start+end]
		}
	}

	raw = strings.ToLower(strings.TrimSpace(raw))
	if !strings.Contains(raw, "@") {
		return ""
	}
	return raw
}
