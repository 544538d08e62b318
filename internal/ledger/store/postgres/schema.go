package postgres

// Schema is the DDL for the Ledger's store: wallets, wallet_ledger_entries,
// outbox, dead_letter_queue (spec.md §6, bit-exact table names).
const Schema = `
CREATE TABLE IF NOT EXISTS wallets (
	wallet_id  UUID PRIMARY KEY,
	user_id    UUID NOT NULL UNIQUE,
	balance    BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS wallet_ledger_entries (
	entry_id        UUID PRIMARY KEY,
	wallet_id       UUID NOT NULL REFERENCES wallets (wallet_id),
	transaction_id  UUID NOT NULL,
	type            TEXT NOT NULL,
	amount          BIGINT NOT NULL CHECK (amount > 0),
	balance_after   BIGINT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (wallet_id, transaction_id)
);

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

CREATE TABLE IF NOT EXISTS dead_letter_queue (
	id               UUID PRIMARY KEY,
	original_topic   TEXT NOT NULL,
	original_payload JSONB NOT NULL,
	error_message    TEXT NOT NULL,
	error_stack      TEXT,
	attempt_count    INT NOT NULL,
	status           TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	processed_at     TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_dlq_status ON dead_letter_queue (status);
`
