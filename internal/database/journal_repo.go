package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mixelka/dealfeedback/pkg/models"
)

// RecordOutbound appends an outbound attempt
func (db *DB) RecordOutbound(ctx context.Context, e *models.OutboundEntry) error {
	query := `
		INSERT INTO outbound_log (deal_id, recipient, subject, message_id, status, error, created_at)
		VALUES (:deal_id, :recipient, :subject, :message_id, :status, :error, :created_at)
	`
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	result, err := db.NamedExecContext(ctx, query, e)
	if err != nil {
		return fmt.Errorf("failed to record outbound entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	e.ID = id
	return nil
}

// RecordInbound appends the outcome of processing a reply
func (db *DB) RecordInbound(ctx context.Context, e *models.InboundEntry) error {
	query := `
		INSERT INTO inbound_log (sender, subject, deal_id, category, summary, status, error, created_at)
		VALUES (:sender, :subject, :deal_id, :category, :summary, :status, :error, :created_at)
	`
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	result, err := db.NamedExecContext(ctx, query, e)
	if err != nil {
		return fmt.Errorf("failed to record inbound entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	e.ID = id
	return nil
}

// RecentOutbound returns the newest outbound entries for a deal, newest first
func (db *DB) RecentOutbound(ctx context.Context, dealID string, limit int) ([]*models.OutboundEntry, error) {
	var entries []*models.OutboundEntry
	query := `SELECT * FROM outbound_log WHERE deal_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	if err := db.SelectContext(ctx, &entries, query, dealID, limit); err != nil {
		return nil, fmt.Errorf("failed to get outbound entries: %w", err)
	}
	return entries, nil
}

// LastSent returns the newest successful send for a deal
func (db *DB) LastSent(ctx context.Context, dealID string) (*models.OutboundEntry, error) {
	var e models.OutboundEntry
	query := `
		SELECT * FROM outbound_log
		WHERE deal_id = ? AND status = ?
		ORDER BY created_at DESC, id DESC LIMIT 1
	`
	err := db.GetContext(ctx, &e, query, dealID, models.StatusSent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last sent entry: %w", err)
	}
	return &e, nil
}

// CountOutboundByStatus returns the number of outbound entries per status
func (db *DB) CountOutboundByStatus(ctx context.Context) (map[string]int, error) {
	return db.countByStatus(ctx, "outbound_log")
}

// CountInboundByStatus returns the number of inbound entries per status
func (db *DB) CountInboundByStatus(ctx context.Context) (map[string]int, error) {
	return db.countByStatus(ctx, "inbound_log")
}

func (db *DB) countByStatus(ctx context.Context, table string) (map[string]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	query := fmt.Sprintf(`SELECT status, COUNT(*) AS count FROM %s GROUP BY status`, table)
	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", table, err)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
