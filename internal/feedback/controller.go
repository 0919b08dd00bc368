package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/mixelka/dealfeedback/internal/config"
	"github.com/mixelka/dealfeedback/internal/crm"
	"github.com/mixelka/dealfeedback/internal/parser"
	"github.com/mixelka/dealfeedback/pkg/models"
)

// ErrNoRecipient is returned for a deal without an email address
var ErrNoRecipient = errors.New("deal has no email address")

// RecordStore is the CRM as seen by the feedback cycle
type RecordStore interface {
	Search(ctx context.Context, module, criteria string) ([]crm.Record, error)
	Update(ctx context.Context, module, id string, fields map[string]any) error
	AssociateEmail(ctx context.Context, module, id string, t models.Transcript) error
}

// Mailbox sends feedback requests and returns replies
type Mailbox interface {
	Address() string
	Send(ctx context.Context, to, subject, body, messageID string) error
	FetchUnseen(ctx context.Context, folder, subject string) ([]models.Reply, error)
}

// TextGenerator drafts requests and analyzes replies
type TextGenerator interface {
	Compose(ctx context.Context, prompt string) (string, error)
	Analyze(ctx context.Context, reply string) (string, error)
}

// Classifier turns analysis text into structured fields
type Classifier interface {
	Classify(text string) models.Analysis
}

// Journal keeps a local record of processed items
type Journal interface {
	RecordOutbound(ctx context.Context, e *models.OutboundEntry) error
	RecordInbound(ctx context.Context, e *models.InboundEntry) error
	LastSent(ctx context.Context, dealID string) (*models.OutboundEntry, error)
}

// Settings are the parts of the configuration the controller needs
type Settings struct {
	Module               string
	Fields               config.FieldMap
	TriggerValue         string
	SentValue            string
	Folder               string
	ReplySubjectFilter   string
	DefaultSubjectPrefix string
	InboundSubject       string
	MessageIDDomain      string
	Location             *time.Location
	PollInterval         time.Duration
}

// SettingsFromConfig extracts controller settings
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Module:               cfg.CRMModule,
		Fields:               cfg.Fields,
		TriggerValue:         cfg.TriggerValue,
		SentValue:            cfg.SentValue,
		Folder:               cfg.IMAPFolder,
		ReplySubjectFilter:   cfg.ReplySubjectFilter,
		DefaultSubjectPrefix: cfg.DefaultSubjectPrefix,
		InboundSubject:       cfg.InboundSubject,
		MessageIDDomain:      cfg.MessageIDDomain,
		Location:             cfg.Location(),
		PollInterval:         cfg.PollInterval,
	}
}

// Deps are the controller's collaborators. Journal, Now and NewMessageID
// are optional.
type Deps struct {
	Store        RecordStore
	Mailbox      Mailbox
	TextGen      TextGenerator
	Classifier   Classifier
	Journal      Journal
	Settings     Settings
	Logger       *slog.Logger
	Now          func() time.Time
	NewMessageID func() string
}

// Controller runs the outbound and inbound feedback phases
type Controller struct {
	store      RecordStore
	mailbox    Mailbox
	textgen    TextGenerator
	classifier Classifier
	journal    Journal
	settings   Settings
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// NewController creates a new controller
func NewController(d Deps) *Controller {
	c := &Controller{
		store:      d.Store,
		mailbox:    d.Mailbox,
		textgen:    d.TextGen,
		classifier: d.Classifier,
		journal:    d.Journal,
		settings:   d.Settings,
		logger:     d.Logger.With("component", "feedback"),
		now:        d.Now,
		newID:      d.NewMessageID,
	}

	if c.journal == nil {
		c.journal = nopJournal{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		domain := c.settings.MessageIDDomain
		c.newID = func() string { return NewMessageID(domain) }
	}
	if c.settings.Location == nil {
		c.settings.Location = time.UTC
	}
	if c.settings.PollInterval <= 0 {
		c.settings.PollInterval = time.Minute
	}

	return c
}

// Run ticks immediately and then sleeps the poll interval after every tick
// until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	c.logger.Info("feedback cycle starting",
		"interval", c.settings.PollInterval,
		"module", c.settings.Module,
	)

	for {
		c.Tick(ctx)

		timer := time.NewTimer(c.settings.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.logger.Info("feedback cycle stopping")
			return
		case <-timer.C:
		}
	}
}

// Tick runs the outbound phase and then the inbound phase. Neither phase
// can stop the other.
func (c *Controller) Tick(ctx context.Context) {
	c.phase("outbound", func() { c.RunOutbound(ctx) })
	if ctx.Err() != nil {
		return
	}
	c.phase("inbound", func() { c.RunInbound(ctx) })
}

func (c *Controller) phase(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("phase panicked", "phase", name, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

// item runs fn and converts a panic into an error
func (c *Controller) item(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("item panicked", "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// RunOutbound sends feedback requests for all deals in the trigger state.
// It returns the number of requests sent; an error means the batch could
// not be fetched.
func (c *Controller) RunOutbound(ctx context.Context) (int, error) {
	s := c.settings
	records, err := c.store.Search(ctx, s.Module, crm.Equals(s.Fields.State, s.TriggerValue))
	if err != nil {
		c.logger.Error("outbound batch fetch failed", "error", err)
		return 0, err
	}

	if len(records) == 0 {
		c.logger.Debug("no deals awaiting a feedback request")
		return 0, nil
	}
	c.logger.Info("deals awaiting a feedback request", "count", len(records))

	sent := 0
	for _, record := range records {
		if ctx.Err() != nil {
			return sent, nil
		}

		deal := DealFromRecord(record, s.Fields)
		err := c.item(func() error { return c.processDeal(ctx, deal) })
		switch {
		case err == nil:
			sent++
		case errors.Is(err, ErrNoRecipient):
			c.logger.Warn("deal skipped", "deal_id", deal.ID, "reason", err)
		default:
			c.logger.Error("outbound item failed", "deal_id", deal.ID, "error", err)
		}
	}

	return sent, nil
}

// processDeal composes, sends, records and marks one deal. The deal is only
// marked sent after the mail went out.
func (c *Controller) processDeal(ctx context.Context, deal models.Deal) error {
	s := c.settings
	log := c.logger.With("deal_id", deal.ID)

	if deal.Email == "" {
		return ErrNoRecipient
	}

	if prev, err := c.journal.LastSent(ctx, deal.ID); err == nil {
		log.Warn("deal was already mailed before",
			"previous_message_id", prev.MessageID,
			"previous_sent_at", prev.CreatedAt,
		)
	}

	entry := &models.OutboundEntry{DealID: deal.ID, Recipient: deal.Email}

	raw, err := c.textgen.Compose(ctx, RenderPrompt(deal, s.Location))
	if err != nil {
		return c.outboundFailed(ctx, entry, err)
	}

	draft, err := parser.SplitDraft(raw, DefaultSubject(s.DefaultSubjectPrefix, deal))
	if err != nil {
		return c.outboundFailed(ctx, entry, err)
	}
	entry.Subject = draft.Subject
	entry.MessageID = c.newID()

	if err := c.mailbox.Send(ctx, deal.Email, draft.Subject, draft.Body, entry.MessageID); err != nil {
		return c.outboundFailed(ctx, entry, err)
	}

	entry.Status = models.StatusSent
	c.record(ctx, entry)

	at := transcriptTime(c.now(), s.Location)
	transcript := outboundTranscript(c.mailbox.Address(), deal, draft.Subject, draft.Body, entry.MessageID, at)
	transcriptErr := c.store.AssociateEmail(ctx, s.Module, deal.ID, transcript)
	if transcriptErr != nil {
		transcriptErr = fmt.Errorf("failed to record transcript: %w", transcriptErr)
	}

	if err := c.store.Update(ctx, s.Module, deal.ID, map[string]any{s.Fields.State: s.SentValue}); err != nil {
		return errors.Join(transcriptErr, fmt.Errorf("failed to mark deal sent: %w", err))
	}

	log.Info("feedback request sent", "to", deal.Email, "subject", draft.Subject, "message_id", entry.MessageID)
	return transcriptErr
}

func (c *Controller) outboundFailed(ctx context.Context, e *models.OutboundEntry, err error) error {
	e.Status = models.StatusFailed
	e.Error = err.Error()
	c.record(ctx, e)
	return err
}

// RunInbound classifies unseen replies and writes the result to the
// matching deal. It returns the number of replies written back; an error
// means the mailbox could not be read.
func (c *Controller) RunInbound(ctx context.Context) (int, error) {
	s := c.settings
	replies, err := c.mailbox.FetchUnseen(ctx, s.Folder, s.ReplySubjectFilter)
	if err != nil {
		c.logger.Error("inbound batch fetch failed", "error", err)
		return 0, err
	}

	if len(replies) == 0 {
		c.logger.Debug("no unseen replies")
		return 0, nil
	}
	c.logger.Info("unseen replies", "count", len(replies))

	done := 0
	for _, reply := range replies {
		if ctx.Err() != nil {
			return done, nil
		}

		matched, err := c.itemReply(ctx, reply)
		switch {
		case err != nil:
			c.logger.Error("inbound item failed", "sender", reply.From, "subject", reply.Subject, "error", err)
		case matched:
			done++
		}
	}

	return done, nil
}

func (c *Controller) itemReply(ctx context.Context, reply models.Reply) (matched bool, err error) {
	err = c.item(func() error {
		var err error
		matched, err = c.processReply(ctx, reply)
		return err
	})
	return matched, err
}

// processReply reports whether the reply matched a deal
func (c *Controller) processReply(ctx context.Context, reply models.Reply) (bool, error) {
	s := c.settings
	log := c.logger.With("sender", reply.From, "reply_message_id", reply.MessageID)

	if reply.From == "" {
		log.Warn("reply without sender address skipped", "subject", reply.Subject)
		return false, nil
	}

	entry := &models.InboundEntry{Sender: reply.From, Subject: reply.Subject}

	records, err := c.store.Search(ctx, s.Module, crm.Equals(s.Fields.Email, reply.From))
	if err != nil {
		return false, c.inboundFailed(ctx, entry, fmt.Errorf("failed to find deal: %w", err))
	}

	if len(records) == 0 {
		log.Info("no deal matches reply sender")
		entry.Status = models.StatusUnmatched
		c.recordInbound(ctx, entry)
		return false, nil
	}
	if len(records) > 1 {
		log.Warn("several deals share the sender address, using the first", "count", len(records))
	}

	dealID := records[0].ID()
	entry.DealID = dealID
	log = log.With("deal_id", dealID)

	text, err := c.textgen.Analyze(ctx, reply.Body)
	if err != nil {
		return true, c.inboundFailed(ctx, entry, err)
	}

	analysis := c.classifier.Classify(text)
	entry.Category = analysis.Category
	entry.Summary = analysis.Summary

	fields := map[string]any{s.Fields.Category: analysis.Category}
	if s.Fields.Summary != "" {
		fields[s.Fields.Summary] = analysis.Summary
	}

	if err := c.store.Update(ctx, s.Module, dealID, fields); err != nil {
		return true, c.inboundFailed(ctx, entry, fmt.Errorf("failed to write analysis: %w", err))
	}

	subject := reply.Subject
	if subject == "" {
		subject = s.InboundSubject
	}
	at := transcriptTime(c.now(), s.Location)
	transcript := inboundTranscript(c.mailbox.Address(), reply, subject, c.newID(), at)
	if err := c.store.AssociateEmail(ctx, s.Module, dealID, transcript); err != nil {
		return true, c.inboundFailed(ctx, entry, fmt.Errorf("failed to record transcript: %w", err))
	}

	entry.Status = models.StatusClassified
	c.recordInbound(ctx, entry)

	log.Info("reply classified", "category", analysis.Category)
	return true, nil
}

func (c *Controller) inboundFailed(ctx context.Context, e *models.InboundEntry, err error) error {
	e.Status = models.StatusFailed
	e.Error = err.Error()
	c.recordInbound(ctx, e)
	return err
}

// record and recordInbound never fail the item
func (c *Controller) record(ctx context.Context, e *models.OutboundEntry) {
	if err := c.journal.RecordOutbound(ctx, e); err != nil {
		c.logger.Warn("failed to journal outbound entry", "deal_id", e.DealID, "error", err)
	}
}

func (c *Controller) recordInbound(ctx context.Context, e *models.InboundEntry) {
	if err := c.journal.RecordInbound(ctx, e); err != nil {
		c.logger.Warn("failed to journal inbound entry", "sender", e.Sender, "error", err)
	}
}

type nopJournal struct{}

func (nopJournal) RecordOutbound(context.Context, *models.OutboundEntry) error { return nil }
func (nopJournal) RecordInbound(context.Context, *models.InboundEntry) error   { return nil }
func (nopJournal) LastSent(context.Context, string) (*models.OutboundEntry, error) {
	return nil, errors.New("no journal")
}
