package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyCategory(t *testing.T) {
	c := NewReplyClassifier(ClassifierConfig{})

	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "Feedback: Preis", "Preis"},
		{"surrounding whitespace", "Status: Verloren\nFeedback:    Angebot  \nOriginal: x", "Angebot"},
		{"umlauts", "Feedback: Qualität & Größe", "Qualität & Größe"},
		{"indented label", "  Feedback: Termin", "Termin"},
		{"crlf", "Status: Verloren\r\nFeedback: Preis\r\n", "Preis"},
		{"first label wins", "Feedback: Preis\nFeedback: Service", "Preis"},
		{"missing", "Status: Verloren\nOriginal: Danke", "Andere"},
		{"lowercase label", "feedback: Preis", "Andere"},
		{"empty value", "Feedback:\nZusammenfassung: kurz", "Andere"},
		{"not line leading", "Kunde gab Feedback: Preis", "Andere"},
		{"empty text", "", "Andere"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.text).Category)
		})
	}
}

func TestClassifyCustomDefaultCategory(t *testing.T) {
	c := NewReplyClassifier(ClassifierConfig{DefaultCategory: "Other"})
	assert.Equal(t, "Other", c.Classify("nothing structured here").Category)
}

func TestClassifySummary(t *testing.T) {
	c := NewReplyClassifier(ClassifierConfig{})

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "single line",
			text: "Feedback: Preis\nZusammenfassung: Zu teuer.\nOriginal: ...",
			want: "Zu teuer.",
		},
		{
			name: "multi line",
			text: "Zusammenfassung: Der Kunde fand das Angebot zu teuer.\nEr hat sich für einen anderen Anbieter entschieden.\nOriginal: Hallo",
			want: "Der Kunde fand das Angebot zu teuer.\nEr hat sich für einen anderen Anbieter entschieden.",
		},
		{
			name: "capitalized summary line is not a terminator",
			text: "Zusammenfassung: Preis war entscheidend.\nDer Kunde meldet sich wieder.\nOriginal: x",
			want: "Preis war entscheidend.\nDer Kunde meldet sich wieder.",
		},
		{
			name: "value on next line",
			text: "Zusammenfassung:\nDer Kunde sagt ab.\nOriginal: x",
			want: "Der Kunde sagt ab.",
		},
		{
			name: "empty value before label",
			text: "Zusammenfassung:\nOriginal: x",
			want: "",
		},
		{
			name: "empty value keeps customer mail out",
			text: "Feedback: Preis\nZusammenfassung:\r\n\nOriginal: Sehr geehrte Damen und Herren,\nzu teuer.",
			want: "",
		},
		{
			name: "empty value at end of text",
			text: "Feedback: Preis\nZusammenfassung:  ",
			want: "",
		},
		{
			name: "runs to end of text",
			text: "Feedback: Service\nZusammenfassung: Sehr zufrieden.",
			want: "Sehr zufrieden.",
		},
		{
			name: "umlaut label terminates",
			text: "Zusammenfassung: Kurz.\nÄnderungswunsch: keiner",
			want: "Kurz.",
		},
		{
			name: "missing",
			text: "Feedback: Preis\nOriginal: x",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.text).Summary)
		})
	}
}

func TestClassifySummaryTerminatorPresets(t *testing.T) {
	text := "Zusammenfassung: Teuer.\nDer Rest folgt.\nHinweis: intern\nOriginal: x"

	assert.Equal(t, "Teuer.\nDer Rest folgt.", NewReplyClassifier(ClassifierConfig{
		Terminator: TerminatorByName("labelword"),
	}).Classify(text).Summary)

	assert.Equal(t, "Teuer.", NewReplyClassifier(ClassifierConfig{
		Terminator: TerminatorByName("capital"),
	}).Classify(text).Summary)

	assert.Equal(t, "Teuer.\nDer Rest folgt.\nHinweis: intern", NewReplyClassifier(ClassifierConfig{
		Terminator: TerminatorByName("labels"),
	}).Classify(text).Summary)
}

func TestClassifyEmptySummaryValueWithPresets(t *testing.T) {
	capital := NewReplyClassifier(ClassifierConfig{Terminator: TerminatorByName("capital")})
	assert.Equal(t, "Der Kunde sagt ab.", capital.Classify("Zusammenfassung:\nDer Kunde sagt ab.\nHinweis: intern").Summary)
	assert.Empty(t, capital.Classify("Zusammenfassung:\nOriginal: x").Summary)

	labels := NewReplyClassifier(ClassifierConfig{Terminator: TerminatorByName("labels")})
	assert.Equal(t, "Hinweis: intern", labels.Classify("Zusammenfassung:\nHinweis: intern\nOriginal: x").Summary)
	assert.Empty(t, labels.Classify("Zusammenfassung:\n  Original: x").Summary)
}

func TestClassifyScenarioC(t *testing.T) {
	a := NewReplyClassifier(ClassifierConfig{}).Classify("Feedback: Preis\nZusammenfassung: Zu teuer.\nOriginal: ...")
	assert.Equal(t, "Preis", a.Category)
	assert.Equal(t, "Zu teuer.", a.Summary)
}

func TestSplitDraft(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantSubject string
		wantBody    string
	}{
		{"betreff", "Betreff: Hallo\nDanke für Ihre Anfrage", "Hallo", "Danke für Ihre Anfrage"},
		{"subject english", "Subject: Hello\n\nThanks", "Hello", "Thanks"},
		{"case insensitive", "BETREFF:  Ihr Projekt \nText", "Ihr Projekt", "Text"},
		{"leading blank lines", "\n\n  Betreff: Hallo\nText", "Hallo", "Text"},
		{"no subject line", "Sehr geehrter Herr Muster,\nvielen Dank.", "Feedback erbeten, Max Muster", "Sehr geehrter Herr Muster,\nvielen Dank."},
		{"blank subject", "Betreff:\nText", "Feedback erbeten, Max Muster", "Text"},
		{"subject not on first line", "Hallo\nBetreff: x", "Feedback erbeten, Max Muster", "Hallo\nBetreff: x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := SplitDraft(tt.raw, "Feedback erbeten, Max Muster")
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubject, d.Subject)
			assert.Equal(t, tt.wantBody, d.Body)
		})
	}
}

func TestSplitDraftEmpty(t *testing.T) {
	_, err := SplitDraft("  \n ", "x")
	assert.ErrorIs(t, err, ErrEmptyDraft)

	_, err = SplitDraft("Betreff: Nur ein Betreff\n\n", "x")
	assert.ErrorIs(t, err, ErrEmptyDraft)
}

func TestHTMLParser(t *testing.T) {
	p := NewHTMLParser()

	text, err := p.Parse(`<html><head><style>p{}</style></head><body><p>Hallo,</p><div>das   Angebot war&nbsp;zu teuer.</div><script>x()</script></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "Hallo,\ndas Angebot war zu teuer.", text)

	empty, err := p.Parse("   ")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPlainBody(t *testing.T) {
	p := NewHTMLParser()

	assert.Equal(t, "plain wins", p.PlainBody("  plain wins\n", "<p>html</p>"))
	assert.Equal(t, "html fallback", p.PlainBody("", "<p>html fallback</p>"))
	assert.Empty(t, p.PlainBody("", ""))
}

func TestHTMLParserDropsQuotedHistory(t *testing.T) {
	p := NewHTMLParser()

	text, err := p.Parse(`<div>Zu teuer, leider.</div>` +
		`<div class="gmail_quote">Am 04.05.2026 schrieb Vertrieb:<blockquote>Feedback erbeten, Max Muster</blockquote></div>`)
	require.NoError(t, err)
	assert.Equal(t, "Zu teuer, leider.", text)

	text, err = p.Parse(`<p>Danke</p><blockquote type="cite"><p>Wie war unser Angebot?</p></blockquote>`)
	require.NoError(t, err)
	assert.Equal(t, "Danke", text)
}

func TestPlainBodyDropsQuotedLines(t *testing.T) {
	p := NewHTMLParser()

	assert.Equal(t, "Zu teuer.\nGruß Max", p.PlainBody("Zu teuer.\n> Wie war unser Angebot?\n>> alt\nGruß Max", ""))
	assert.Equal(t, "> nur Zitat", p.PlainBody("> nur Zitat", ""), "fully quoted body is kept")
}
