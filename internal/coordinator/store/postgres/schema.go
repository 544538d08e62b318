package postgres

// Schema is the DDL for the Coordinator's store: transfers + outbox
// (spec.md §6, bit-exact table names). New applies it with pool.Exec on
// connect; every statement is CREATE ... IF NOT EXISTS, so applying it
// again is harmless. It is the single source of truth for the shape this
// package's queries assume.
const Schema = `
CREATE TABLE IF NOT EXISTS transfers (
	transfer_id        UUID PRIMARY KEY,
	sender_wallet_id   UUID NOT NULL,
	receiver_wallet_id UUID NOT NULL,
	amount             BIGINT NOT NULL CHECK (amount > 0),
	status             TEXT NOT NULL,
	failure_reason     TEXT,
	timeout_at         TIMESTAMPTZ NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK (sender_wallet_id <> receiver_wallet_id)
);

CREATE INDEX IF NOT EXISTS idx_transfers_timeout
	ON transfers (timeout_at)
	WHERE status IN ('PENDING', 'DEBITED');

CREATE TABLE IF NOT EXISTS outbox (
	id             UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id   TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	payload        JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_outbox_unpublished
	ON outbox (created_at)
	WHERE published_at IS NULL;
`
