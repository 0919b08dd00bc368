package feedback

import (
	"strings"
	"time"

	"github.com/mixelka/dealfeedback/internal/config"
	"github.com/mixelka/dealfeedback/internal/crm"
	"github.com/mixelka/dealfeedback/pkg/models"
)

// createdLayouts are the timestamp formats the CRM uses for creation times
var createdLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// DealFromRecord maps a CRM record onto a Deal using the configured field
// names. Missing fields stay empty; an unparsable creation time is zero.
func DealFromRecord(r crm.Record, f config.FieldMap) models.Deal {
	deal := models.Deal{
		ID:         r.ID(),
		Salutation: r.String(f.Salutation),
		FirstName:  r.String(f.FirstName),
		LastName:   r.String(f.LastName),
		Email:      strings.TrimSpace(r.String(f.Email)),
		Stage:      r.String(f.Stage),
		Service:    r.String(f.Service),
		Note:       r.String(f.Note),
		State:      r.String(f.State),
	}

	if created := r.String(f.Created); created != "" {
		for _, layout := range createdLayouts {
			if t, err := time.Parse(layout, created); err == nil {
				deal.CreatedAt = t
				break
			}
		}
	}

	return deal
}

// RenderPrompt builds the compose prompt for a deal. The request date is
// printed as dd.mm.yyyy in loc.
func RenderPrompt(d models.Deal, loc *time.Location) string {
	var date string
	if !d.CreatedAt.IsZero() {
		date = d.CreatedAt.In(loc).Format("02.01.2006")
	}

	var b strings.Builder
	line := func(label, value string) {
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(value))
		b.WriteByte('\n')
	}

	line("Anrede", d.Salutation)
	line("Vorname", d.FirstName)
	line("Nachname", d.LastName)
	line("Status", d.Stage)
	line("Leistung", d.Service)
	line("Datum der Anfrage", date)
	line("Extra Info", d.Note)

	return strings.TrimSuffix(b.String(), "\n")
}

// DefaultSubject is used when the draft has no subject line
func DefaultSubject(prefix string, d models.Deal) string {
	name := d.FullName()
	if name == "" {
		return prefix
	}
	return prefix + ", " + name
}
