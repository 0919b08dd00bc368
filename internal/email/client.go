package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/mixelka/dealfeedback/internal/parser"
	"github.com/mixelka/dealfeedback/pkg/models"
)

// ReaderConfig configuration for the IMAP reader
type ReaderConfig struct {
	Username    string
	Password    string
	Server      string // host:port
	DialTimeout time.Duration
}

// Reader fetches unseen replies over IMAP. Every FetchUnseen call uses its
// own connection and logs out afterwards.
type Reader struct {
	config ReaderConfig
	html   *parser.HTMLParser
	logger *slog.Logger
}

// NewReader creates a new IMAP reader
func NewReader(cfg ReaderConfig, logger *slog.Logger) *Reader {
	return &Reader{
		config: cfg,
		html:   parser.NewHTMLParser(),
		logger: logger.With("component", "imap", "email", cfg.Username),
	}
}

// FetchUnseen returns unseen messages in folder whose subject contains
// subject and flags them \Seen. A message that cannot be parsed is still
// flagged so it is not fetched again on every poll.
func (r *Reader) FetchUnseen(ctx context.Context, folder, subject string) ([]models.Reply, error) {
	c, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	// go-imap v1 has no context support; cancel by dropping the connection
	stop := context.AfterFunc(ctx, func() { c.Terminate() })
	defer stop()

	if _, err := c.Select(folder, false); err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", folder, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	if subject != "" {
		criteria.Header.Add("Subject", subject)
	}

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	r.logger.Debug("found unseen messages", "count", len(uids))

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	// Peek so a message is only flagged once it has been read completely
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 16)
	done := make(chan error, 1)

	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	var (
		replies []models.Reply
		fetched = new(imap.SeqSet)
	)
	for msg := range messages {
		fetched.AddNum(msg.Uid)

		reply, err := r.parseMessage(msg, section)
		if err != nil {
			r.logger.Warn("failed to parse message", "uid", msg.Uid, "error", err)
			continue
		}
		replies = append(replies, reply)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}

	if !fetched.Empty() {
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := c.UidStore(fetched, item, []interface{}{imap.SeenFlag}, nil); err != nil {
			return nil, fmt.Errorf("failed to mark as read: %w", err)
		}
	}

	return replies, nil
}

// connect dials with TLS and logs in
func (r *Reader) connect(ctx context.Context) (*client.Client, error) {
	timeout := r.config.DialTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := (&tls.Dialer{NetDialer: dialer}).DialContext(ctx, "tcp", r.config.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c, err := client.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create IMAP client: %w", err)
	}

	if err := c.Login(r.config.Username, r.config.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	return c, nil
}

// parseMessage converts a fetched message into a Reply
func (r *Reader) parseMessage(msg *imap.Message, section *imap.BodySectionName) (models.Reply, error) {
	reply := models.Reply{}

	if msg.Envelope != nil {
		reply.Subject = msg.Envelope.Subject
		reply.ReceivedAt = msg.Envelope.Date
		reply.MessageID = msg.Envelope.MessageId

		if len(msg.Envelope.From) > 0 {
			from := msg.Envelope.From[0]
			reply.From = from.Address()
			reply.FromName = from.PersonalName
		}
	}

	bodyReader := msg.GetBody(section)
	if bodyReader == nil {
		return reply, fmt.Errorf("server returned no body")
	}

	text, html, header, err := readBody(bodyReader)
	if err != nil {
		return reply, err
	}

	if reply.From == "" {
		reply.From = ExtractAddress(header.Get("From"))
	}
	if reply.Subject == "" {
		reply.Subject, _ = header.Subject()
	}

	reply.From = strings.ToLower(strings.TrimSpace(reply.From))
	reply.Body = r.html.PlainBody(text, html)

	return reply, nil
}

// readBody walks all parts and returns the first text/plain and text/html
// inline bodies.
func readBody(body io.Reader) (text, html string, header mail.Header, err error) {
	mr, err := mail.CreateReader(body)
	if err != nil {
		return "", "", header, fmt.Errorf("failed to create mail reader: %w", err)
	}
	defer mr.Close()

	header = mr.Header

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return text, html, header, fmt.Errorf("failed to read part: %w", err)
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		ct, _, _ := h.ContentType()
		data, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(ct, "text/plain") && text == "":
			text = string(data)
		case strings.HasPrefix(ct, "text/html") && html == "":
			html = string(data)
		}
	}

	return text, html, header, nil
}
