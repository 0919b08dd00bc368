package feedback

import (
	"time"

	"github.com/google/uuid"

	"github.com/mixelka/dealfeedback/pkg/models"
)

// NewMessageID returns a globally unique Message-ID such as <uuid@domain>
func NewMessageID(domain string) string {
	return "<" + uuid.NewString() + "@" + domain + ">"
}

// transcriptTime is now in loc, truncated to seconds
func transcriptTime(now time.Time, loc *time.Location) time.Time {
	return now.In(loc).Truncate(time.Second)
}

func outboundTranscript(from string, d models.Deal, subject, body, messageID string, at time.Time) models.Transcript {
	return models.Transcript{
		From:      from,
		To:        d.Email,
		Subject:   subject,
		Content:   body,
		Date:      at,
		Sent:      true,
		MessageID: messageID,
	}
}

func inboundTranscript(to string, r models.Reply, subject, messageID string, at time.Time) models.Transcript {
	return models.Transcript{
		From:      r.From,
		To:        to,
		Subject:   subject,
		Content:   r.Body,
		Date:      at,
		Sent:      false,
		MessageID: messageID,
	}
}
