package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("not found")
	ErrPaused   = errors.New("check is paused")
)

type DB struct {
	pool *pgxpool.Pool
}

func Connect(databaseURL string) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

// Healthy checks the database connection.
func (db *DB) Healthy(ctx context.Context) error {
	var n int
	return db.pool.QueryRow(ctx, "SELECT 1").Scan(&n)
}

func Migrate(db *DB) error {
	ctx := context.Background()
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			id             TEXT PRIMARY KEY,
			email          TEXT NOT NULL,
			signing_secret TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS checks (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL,
			name             TEXT NOT NULL DEFAULT '',
			period           INTEGER NOT NULL CHECK (period BETWEEN 60 AND 604800),
			grace            INTEGER NOT NULL CHECK (grace BETWEEN 60 AND 3600),
			cron_expression  TEXT NOT NULL DEFAULT '',
			status           TEXT NOT NULL DEFAULT 'new',
			last_ping_at     TIMESTAMPTZ,
			next_expected_at TIMESTAMPTZ,
			ping_count       BIGINT NOT NULL DEFAULT 0,
			alert_count      BIGINT NOT NULL DEFAULT 0,
			last_alert_at    TIMESTAMPTZ,
			tags             TEXT[] NOT NULL DEFAULT '{}',
			group_name       TEXT NOT NULL DEFAULT '',
			maint_start      TIMESTAMPTZ,
			maint_end        TIMESTAMPTZ,
			maint_schedule   TEXT NOT NULL DEFAULT '',
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_checks_user ON checks(user_id);
		CREATE INDEX IF NOT EXISTS idx_checks_due ON checks(next_expected_at)
			WHERE status IN ('up', 'new');

		CREATE TABLE IF NOT EXISTS pings (
			id          BIGSERIAL PRIMARY KEY,
			check_id    TEXT NOT NULL REFERENCES checks(id) ON DELETE CASCADE,
			type        TEXT NOT NULL DEFAULT 'success',
			source_ip   TEXT NOT NULL DEFAULT '',
			duration_ms BIGINT,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_pings_check_time ON pings(check_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS channels (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			kind       TEXT NOT NULL,
			target     TEXT NOT NULL,
			is_default BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_channels_user ON channels(user_id);

		CREATE TABLE IF NOT EXISTS check_channels (
			check_id   TEXT NOT NULL REFERENCES checks(id) ON DELETE CASCADE,
			channel_id TEXT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
			PRIMARY KEY (check_id, channel_id)
		);
		CREATE INDEX IF NOT EXISTS idx_check_channels_channel ON check_channels(channel_id);

		CREATE TABLE IF NOT EXISTS alerts (
			id            BIGSERIAL PRIMARY KEY,
			check_id      TEXT NOT NULL REFERENCES checks(id) ON DELETE CASCADE,
			channel_id    TEXT REFERENCES channels(id) ON DELETE SET NULL,
			kind          TEXT NOT NULL,
			target        TEXT NOT NULL,
			type          TEXT NOT NULL,
			status        TEXT NOT NULL,
			error         TEXT,
			retry_count   INTEGER NOT NULL DEFAULT 0,
			next_retry_at TIMESTAMPTZ,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_alerts_check_time ON alerts(check_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_alerts_retry ON alerts(created_at)
			WHERE status = 'failed' AND retry_count < 3;
	`)
	return err
}
