package postgres

// The production schema is owned by the external migration tool; this
// bootstrap DDL is idempotent and only guarantees dev and test databases.
const schema = `
CREATE TABLE IF NOT EXISTS epochs (
	epoch                        BIGINT PRIMARY KEY,
	committees_fetched           BOOLEAN NOT NULL DEFAULT FALSE,
	sync_committees_fetched      BOOLEAN NOT NULL DEFAULT FALSE,
	validators_info_fetched      BOOLEAN NOT NULL DEFAULT FALSE,
	validators_balances_fetched  BOOLEAN NOT NULL DEFAULT FALSE,
	rewards_fetched              BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS slots (
	slot                       BIGINT PRIMARY KEY,
	attestations_fetched       BOOLEAN NOT NULL DEFAULT FALSE,
	consensus_rewards_fetched  BOOLEAN NOT NULL DEFAULT FALSE,
	sync_rewards_fetched       BOOLEAN NOT NULL DEFAULT FALSE,
	committees_count_in_slot   INTEGER[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS committees (
	slot                    BIGINT  NOT NULL,
	idx                     INTEGER NOT NULL,
	aggregation_bits_index  INTEGER NOT NULL,
	validator_index         BIGINT  NOT NULL,
	attestation_delay       INTEGER,
	PRIMARY KEY (slot, idx, aggregation_bits_index)
);
CREATE INDEX IF NOT EXISTS committees_validator_index ON committees (validator_index);

CREATE TABLE IF NOT EXISTS sync_committees (
	from_epoch            BIGINT NOT NULL,
	to_epoch              BIGINT NOT NULL,
	validators            BIGINT[] NOT NULL,
	validator_aggregates  JSONB NOT NULL DEFAULT '[]',
	PRIMARY KEY (from_epoch, to_epoch)
);

CREATE TABLE IF NOT EXISTS validators (
	validator_index     BIGINT PRIMARY KEY,
	status              TEXT NOT NULL DEFAULT '',
	balance             NUMERIC NOT NULL DEFAULT 0,
	effective_balance   NUMERIC NOT NULL DEFAULT 0,
	withdrawal_address  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS hourly_validator_stats (
	validator_index      BIGINT   NOT NULL,
	day                  DATE     NOT NULL,
	hour                 SMALLINT NOT NULL,
	head                 NUMERIC NOT NULL DEFAULT 0,
	target               NUMERIC NOT NULL DEFAULT 0,
	source               NUMERIC NOT NULL DEFAULT 0,
	inactivity           NUMERIC NOT NULL DEFAULT 0,
	missed_head          NUMERIC NOT NULL DEFAULT 0,
	missed_target        NUMERIC NOT NULL DEFAULT 0,
	missed_source        NUMERIC NOT NULL DEFAULT 0,
	missed_inactivity    NUMERIC NOT NULL DEFAULT 0,
	attestations_missed  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (validator_index, day, hour)
);

CREATE TABLE IF NOT EXISTS hourly_block_and_sync_rewards (
	validator_index  BIGINT   NOT NULL,
	day              DATE     NOT NULL,
	hour             SMALLINT NOT NULL,
	block_rewards    NUMERIC NOT NULL DEFAULT 0,
	sync_rewards     NUMERIC NOT NULL DEFAULT 0,
	PRIMARY KEY (validator_index, day, hour)
);

CREATE TABLE IF NOT EXISTS daily_validator_stats (
	validator_index      BIGINT NOT NULL,
	day                  DATE   NOT NULL,
	head                 NUMERIC NOT NULL DEFAULT 0,
	target               NUMERIC NOT NULL DEFAULT 0,
	source               NUMERIC NOT NULL DEFAULT 0,
	inactivity           NUMERIC NOT NULL DEFAULT 0,
	missed_head          NUMERIC NOT NULL DEFAULT 0,
	missed_target        NUMERIC NOT NULL DEFAULT 0,
	missed_source        NUMERIC NOT NULL DEFAULT 0,
	missed_inactivity    NUMERIC NOT NULL DEFAULT 0,
	attestations_missed  INTEGER NOT NULL DEFAULT 0,
	block_rewards        NUMERIC NOT NULL DEFAULT 0,
	sync_rewards         NUMERIC NOT NULL DEFAULT 0,
	PRIMARY KEY (validator_index, day)
);

CREATE TABLE IF NOT EXISTS last_summary_update (
	id                      SMALLINT PRIMARY KEY CHECK (id = 1),
	hourly_validator_stats  TIMESTAMPTZ NOT NULL DEFAULT 'epoch',
	daily_validator_stats   TIMESTAMPTZ NOT NULL DEFAULT 'epoch'
);
INSERT INTO last_summary_update (id) VALUES (1) ON CONFLICT DO NOTHING;

CREATE UNLOGGED TABLE IF NOT EXISTS epoch_rewards_temp (
	validator_index    BIGINT   NOT NULL,
	day                DATE     NOT NULL,
	hour               SMALLINT NOT NULL,
	head               NUMERIC NOT NULL DEFAULT 0,
	target             NUMERIC NOT NULL DEFAULT 0,
	source             NUMERIC NOT NULL DEFAULT 0,
	inactivity         NUMERIC NOT NULL DEFAULT 0,
	missed_head        NUMERIC NOT NULL DEFAULT 0,
	missed_target      NUMERIC NOT NULL DEFAULT 0,
	missed_source      NUMERIC NOT NULL DEFAULT 0,
	missed_inactivity  NUMERIC NOT NULL DEFAULT 0
);
`
