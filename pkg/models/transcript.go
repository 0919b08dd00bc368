package models

import "time"

// Transcript is an email linked to a deal for the CRM audit trail.
type Transcript struct {
	From      string
	To        string
	Subject   string
	Content   string
	Date      time.Time
	Sent      bool   // true for outbound, false for received
	MessageID string // e.g. <uuid@example.com>
}
