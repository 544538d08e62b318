package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"saga-engine/internal/ledger/domain"
	"saga-engine/internal/platform/idgen"
)

var ErrDeadLetterNotFound = errors.New("dead letter not found")

// InsertDeadLetter quarantines a message whose refund retries were
// exhausted (spec.md §4.6 "DLQ routing").
func (s *Store) InsertDeadLetter(ctx context.Context, originalTopic string, originalPayload []byte, errMsg, errStack string, attemptCount int) (domain.DeadLetter, error) {
	dl := domain.DeadLetter{
		ID:              idgen.New(),
		OriginalTopic:   originalTopic,
		OriginalPayload: originalPayload,
		ErrorMessage:    errMsg,
		ErrorStack:      errStack,
		AttemptCount:    attemptCount,
		Status:          domain.DeadLetterPending,
		CreatedAt:       time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dead_letter_queue (id, original_topic, original_payload, error_message, error_stack, attempt_count, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, dl.ID, dl.OriginalTopic, dl.OriginalPayload, dl.ErrorMessage, dl.ErrorStack, dl.AttemptCount, string(dl.Status), dl.CreatedAt)
	if err != nil {
		return domain.DeadLetter{}, fmt.Errorf("insert dead letter: %w", err)
	}
	return dl, nil
}

// ListDeadLetters returns dead letters newest-first, optionally filtered by
// status (spec.md §6 "GET /admin/dlq").
func (s *Store) ListDeadLetters(ctx context.Context, status domain.DeadLetterStatus) ([]domain.DeadLetter, error) {
	var rows pgx.Rows
	var err error
	if status == "" {
		rows, err = s.pool.Query(ctx, `
			SELECT id, original_topic, original_payload, error_message, error_stack, attempt_count, status, created_at, processed_at
			FROM dead_letter_queue ORDER BY created_at DESC
		`)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, original_topic, original_payload, error_message, error_stack, attempt_count, status, created_at, processed_at
			FROM dead_letter_queue WHERE status = $1 ORDER BY created_at DESC
		`, string(status))
	}
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var out []domain.DeadLetter
	for rows.Next() {
		dl, err := scanDeadLetter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, dl)
	}
	return out, rows.Err()
}

// GetDeadLetter returns one entry by id, or ErrDeadLetterNotFound.
func (s *Store) GetDeadLetter(ctx context.Context, id uuid.UUID) (domain.DeadLetter, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, original_topic, original_payload, error_message, error_stack, attempt_count, status, created_at, processed_at
		FROM dead_letter_queue WHERE id = $1
	`, id)
	dl, err := scanDeadLetter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DeadLetter{}, ErrDeadLetterNotFound
		}
		return domain.DeadLetter{}, err
	}
	return dl, nil
}

// MarkDeadLetterProcessed transitions an entry to PROCESSED after a
// successful replay (spec.md §4.6 "Admin interface").
func (s *Store) MarkDeadLetterProcessed(ctx context.Context, id uuid.UUID) error {
	return s.setDeadLetterStatus(ctx, id, domain.DeadLetterProcessed)
}

// MarkDeadLetterFailed transitions an entry to FAILED after a failed
// replay.
func (s *Store) MarkDeadLetterFailed(ctx context.Context, id uuid.UUID) error {
	return s.setDeadLetterStatus(ctx, id, domain.DeadLetterFailed)
}

func (s *Store) setDeadLetterStatus(ctx context.Context, id uuid.UUID, status domain.DeadLetterStatus) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE dead_letter_queue SET status = $1, processed_at = now() WHERE id = $2
	`, string(status), id)
	if err != nil {
		return fmt.Errorf("update dead letter status: %w", err)
	}
	return nil
}

func scanDeadLetter(row pgx.Row) (domain.DeadLetter, error) {
	var dl domain.DeadLetter
	var status string
	if err := row.Scan(&dl.ID, &dl.OriginalTopic, &dl.OriginalPayload, &dl.ErrorMessage, &dl.ErrorStack, &dl.AttemptCount, &status, &dl.CreatedAt, &dl.ProcessedAt); err != nil {
		return domain.DeadLetter{}, err
	}
	dl.Status = domain.DeadLetterStatus(status)
	return dl, nil
}
