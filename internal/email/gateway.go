package email

import (
	"context"

	"github.com/mixelka/dealfeedback/pkg/models"
)

// Gateway is the mailbox used by the feedback cycle: outgoing mail through
// the Sender, replies through the Reader.
type Gateway struct {
	sender *Sender
	reader *Reader
}

// NewGateway creates a mailbox gateway
func NewGateway(sender *Sender, reader *Reader) *Gateway {
	return &Gateway{sender: sender, reader: reader}
}

// Address returns the address mail is sent from
func (g *Gateway) Address() string {
	return g.sender.From()
}

// Send delivers one plain-text message
func (g *Gateway) Send(ctx context.Context, to, subject, body, messageID string) error {
	return g.sender.Send(ctx, to, subject, body, messageID)
}

// FetchUnseen returns unseen replies in folder matching subject and marks
// them seen
func (g *Gateway) FetchUnseen(ctx context.Context, folder, subject string) ([]models.Reply, error) {
	if folder == "" {
		folder = "INBOX"
	}
	return g.reader.FetchUnseen(ctx, folder, subject)
}
