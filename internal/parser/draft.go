package parser

import (
	"errors"
	"regexp"
	"strings"
)

// ErrEmptyDraft is returned when the generated draft has no content
var ErrEmptyDraft = errors.New("draft is empty")

var subjectLineRegex = regexp.MustCompile(`(?i)^(?:Betreff|Subject):\s*(.*)$`)

// Draft is an outbound email split into subject and body
type Draft struct {
	Subject string
	Body    string
}

// SplitDraft splits a generated email into subject and body. A leading
// "Betreff:" or "Subject:" line becomes the subject; otherwise, or when that
// line is blank, fallbackSubject is used and the whole text is the body.
func SplitDraft(raw, fallbackSubject string) (Draft, error) {
	raw = strings.TrimLeft(strings.ReplaceAll(raw, "\r\n", "\n"), " \t\n")
	if strings.TrimSpace(raw) == "" {
		return Draft{}, ErrEmptyDraft
	}

	firstLine, rest, _ := strings.Cut(raw, "\n")
	m := subjectLineRegex.FindStringSubmatch(firstLine)
	if m == nil {
		return Draft{Subject: fallbackSubject, Body: raw}, nil
	}

	subject := strings.TrimSpace(m[1])
	if subject == "" {
		subject = fallbackSubject
	}

	body := strings.TrimLeft(rest, " \t\n")
	if strings.TrimSpace(body) == "" {
		return Draft{}, ErrEmptyDraft
	}

	return Draft{Subject: subject, Body: body}, nil
}
