package models

import "time"

// Reply is an inbound message consumed from the mailbox.
type Reply struct {
	From       string // bare sender address
	FromName   string
	Subject    string
	Body       string // plain text
	MessageID  string
	ReceivedAt time.Time
}
