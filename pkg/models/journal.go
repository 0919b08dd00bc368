package models

import "time"

// Journal statuses
const (
	StatusSent       = "sent"
	StatusFailed     = "failed"
	StatusUnmatched  = "unmatched"
	StatusClassified = "classified"
)

// OutboundEntry records one outbound feedback request attempt
type OutboundEntry struct {
	ID        int64     `db:"id"`
	DealID    string    `db:"deal_id"`
	Recipient string    `db:"recipient"`
	Subject   string    `db:"subject"`
	MessageID string    `db:"message_id"`
	Status    string    `db:"status"`
	Error     string    `db:"error"`
	CreatedAt time.Time `db:"created_at"`
}

// InboundEntry records the outcome of processing one reply
type InboundEntry struct {
	ID        int64     `db:"id"`
	Sender    string    `db:"sender"`
	Subject   string    `db:"subject"`
	DealID    string    `db:"deal_id"`
	Category  string    `db:"category"`
	Summary   string    `db:"summary"`
	Status    string    `db:"status"`
	Error     string    `db:"error"`
	CreatedAt time.Time `db:"created_at"`
}
