package parser

import (
	"regexp"
	"strings"

	"github.com/mixelka/dealfeedback/pkg/models"
)

// Terminator patterns for the summary block. A terminator always starts at
// a line break; text on the label line itself never ends it.
var (
	// TerminatorLabelWord ends the summary at a line like "Original:".
	TerminatorLabelWord = regexp.MustCompile(`\n[A-ZÄÖÜ][a-zA-ZäöüÄÖÜß]+:`)

	// TerminatorCapital ends the summary at any line starting with a capital letter.
	TerminatorCapital = regexp.MustCompile(`\n[A-ZÄÖÜ]`)

	// TerminatorLabels ends the summary only at one of the known output labels.
	TerminatorLabels = regexp.MustCompile(`\n[ \t]*(?:Anrede|Name|Email|E-Mail|Telefon|Status|Feedback|Zusammenfassung|Original):`)

	labelLine = regexp.MustCompile(`^[ \t]*[A-ZÄÖÜ][a-zA-ZäöüÄÖÜß-]*:`)
)

// ClassifierConfig configures labels and the summary terminator
type ClassifierConfig struct {
	CategoryLabel   string         // default "Feedback"
	SummaryLabel    string         // default "Zusammenfassung"
	Terminator      *regexp.Regexp // default TerminatorLabelWord
	DefaultCategory string         // default models.DefaultCategory
}

// ReplyClassifier extracts category and summary from generated analysis text
type ReplyClassifier struct {
	categoryRegex   *regexp.Regexp
	summaryRegex    *regexp.Regexp
	terminator      *regexp.Regexp
	defaultCategory string
}

// NewReplyClassifier creates a new classifier
func NewReplyClassifier(cfg ClassifierConfig) *ReplyClassifier {
	if cfg.CategoryLabel == "" {
		cfg.CategoryLabel = "Feedback"
	}
	if cfg.SummaryLabel == "" {
		cfg.SummaryLabel = "Zusammenfassung"
	}
	if cfg.Terminator == nil {
		cfg.Terminator = TerminatorLabelWord
	}
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = models.DefaultCategory
	}

	return &ReplyClassifier{
		categoryRegex:   regexp.MustCompile(`(?m)^[ \t]*` + regexp.QuoteMeta(cfg.CategoryLabel) + `:[ \t]*([^\n]*)`),
		summaryRegex:    regexp.MustCompile(regexp.QuoteMeta(cfg.SummaryLabel) + `:`),
		terminator:      cfg.Terminator,
		defaultCategory: cfg.DefaultCategory,
	}
}

// TerminatorByName returns the terminator preset for a config name
func TerminatorByName(name string) *regexp.Regexp {
	switch name {
	case "capital":
		return TerminatorCapital
	case "labels":
		return TerminatorLabels
	default:
		return TerminatorLabelWord
	}
}

// Classify never fails: missing fields fall back to their defaults.
func (c *ReplyClassifier) Classify(text string) models.Analysis {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return models.NewAnalysis(c.category(text), c.summary(text), c.defaultCategory)
}

func (c *ReplyClassifier) category(text string) string {
	m := c.categoryRegex.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func (c *ReplyClassifier) summary(text string) string {
	loc := c.summaryRegex.FindStringIndex(text)
	if loc == nil {
		return ""
	}

	rest := strings.TrimLeft(text[loc[1]:], " \t")
	if strings.HasPrefix(rest, "\n") {
		rest = strings.TrimLeft(rest, "\r\n")
		// empty value followed directly by the next label
		if labelLine.MatchString(rest) {
			if t := c.terminator.FindStringIndex("\n" + rest); t != nil && t[0] == 0 {
				return ""
			}
		}
	}
	if end := c.terminator.FindStringIndex(rest); end != nil {
		rest = rest[:end[0]]
	}

	return strings.TrimSpace(rest)
}
