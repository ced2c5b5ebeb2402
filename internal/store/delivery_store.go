package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Wissididom/twitch-sus-user-logger/internal/domain"
	"github.com/jackc/pgx/v5"
)

// DeliveryAttemptRecord holds the data for recording a delivery attempt.
type DeliveryAttemptRecord struct {
	ID             string
	MessageID      string
	EventType      string
	BroadcasterID  string
	UserID         string
	Destination    string
	Status         string
	HTTPStatusCode *int
	ResponseBody   string
	ResponseTimeMs int
	ErrorMessage   string
}

const deliveryColumns = `id, message_id, event_type, broadcaster_id, user_id, destination, status, http_status_code, response_body, response_time_ms, error_message, created_at`

// RecordDeliveryAttempt inserts a delivery attempt record.
func (s *PostgresStore) RecordDeliveryAttempt(ctx context.Context, rec DeliveryAttemptRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO delivery_attempts (id, message_id, event_type, broadcaster_id, user_id, destination, status, http_status_code, response_body, response_time_ms, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, rec.ID, rec.MessageID, rec.EventType,
		nullIfEmpty(rec.BroadcasterID), nullIfEmpty(rec.UserID),
		rec.Destination, rec.Status, rec.HTTPStatusCode,
		nullIfEmpty(rec.ResponseBody), rec.ResponseTimeMs, nullIfEmpty(rec.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("inserting delivery attempt: %w", err)
	}
	return nil
}

// ListDeliveryAttempts returns delivery attempts, newest first.
func (s *PostgresStore) ListDeliveryAttempts(ctx context.Context, filter domain.DeliveryFilter) ([]domain.DeliveryAttempt, error) {
	query, args := buildListQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying delivery attempts: %w", err)
	}
	defer rows.Close()

	attempts := []domain.DeliveryAttempt{}
	for rows.Next() {
		a, err := scanDeliveryAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning delivery attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating delivery attempts: %w", err)
	}

	return attempts, nil
}

// GetDeliveryAttempt returns a single delivery attempt by ID, or nil if none exists.
func (s *PostgresStore) GetDeliveryAttempt(ctx context.Context, id string) (*domain.DeliveryAttempt, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM delivery_attempts WHERE id = $1`, id)

	a, err := scanDeliveryAttempt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying delivery attempt: %w", err)
	}
	return &a, nil
}

func buildListQuery(filter domain.DeliveryFilter) (string, []any) {
	query := `SELECT ` + deliveryColumns + ` FROM delivery_attempts`
	args := []any{}
	conditions := []string{}

	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("message_id", filter.MessageID)
	add("broadcaster_id", filter.BroadcasterID)
	add("status", filter.Status)

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return query, args
}

func scanDeliveryAttempt(row pgx.Row) (domain.DeliveryAttempt, error) {
	var (
		a             domain.DeliveryAttempt
		broadcasterID *string
		userID        *string
	)
	err := row.Scan(
		&a.ID, &a.MessageID, &a.EventType, &broadcasterID, &userID,
		&a.Destination, &a.Status, &a.HTTPStatusCode, &a.ResponseBody,
		&a.ResponseTimeMs, &a.ErrorMessage, &a.CreatedAt,
	)
	if broadcasterID != nil {
		a.BroadcasterID = *broadcasterID
	}
	if userID != nil {
		a.UserID = *userID
	}
	return a, err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
