package models

import "time"

// Deal is the CRM view of a sales opportunity the feedback cycle works on.
// Fields absent from the CRM record are empty strings.
type Deal struct {
	ID         string
	Salutation string // Anrede
	FirstName  string
	LastName   string
	Email      string
	Stage      string
	Service    string
	Note       string // free-text note from the project manager
	State      string // feedback-request state
	CreatedAt  time.Time
}

// FullName returns "first last" without stray spaces.
func (d *Deal) FullName() string {
	switch {
	case d.FirstName == "":
		return d.LastName
	case d.LastName == "":
		return d.FirstName
	default:
		return d.FirstName + " " + d.LastName
	}
}
