package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"saga-engine/internal/platform/events"
	"saga-engine/internal/platform/outbox"
)

// PublishTick implements outbox.Store for the Ledger's outbox table,
// mirroring the Coordinator's skip-locked selection (spec.md §4.3, §5).
func (s *Store) PublishTick(ctx context.Context, batchSize int, publish func(outbox.Record) error) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, batchSize)
	if err != nil {
		return 0, fmt.Errorf("select unpublished outbox rows: %w", err)
	}

	var records []outbox.Record
	for rows.Next() {
		var rec outbox.Record
		var eventType string
		if err := rows.Scan(&rec.ID, &rec.AggregateType, &rec.AggregateID, &eventType, &rec.Payload, &rec.CreatedAt); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		rec.EventType = events.EventType(eventType)
		records = append(records, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox rows: %w", err)
	}

	var succeeded []uuid.UUID
	for _, rec := range records {
		if err := publish(rec); err != nil {
			continue
		}
		succeeded = append(succeeded, rec.ID)
	}

	if len(succeeded) > 0 {
		if _, err := tx.Exec(ctx, `
			UPDATE outbox SET published_at = now() WHERE id = ANY($1)
		`, succeeded); err != nil {
			return 0, fmt.Errorf("mark outbox published: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(succeeded), nil
}
