package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"deadman/api/model"
)

// PingOutcome is the result of an accepted success ping.
type PingOutcome struct {
	Check   model.Check
	WasDown bool
	Ping    model.Ping
}

// RecordSuccess appends a success ping and moves the check to up in one
// transaction. The check row is locked first so that wasDown and period
// come from the same snapshot the update is applied to.
func (db *DB) RecordSuccess(ctx context.Context, checkID string, at time.Time, sourceIP string) (*PingOutcome, error) {
	var out PingOutcome
	err := pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		var (
			status     model.CheckStatus
			lastPingAt *time.Time
		)
		err := tx.QueryRow(ctx,
			`SELECT status, last_ping_at FROM checks WHERE id = $1 FOR UPDATE`, checkID,
		).Scan(&status, &lastPingAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if status == model.CheckPaused {
			return ErrPaused
		}
		out.WasDown = status == model.CheckDown

		// A start signal since the previous success gives the run duration.
		var startedAt *time.Time
		err = tx.QueryRow(ctx,
			`SELECT created_at FROM pings
			 WHERE check_id = $1 AND type = 'start'
			   AND ($2::timestamptz IS NULL OR created_at > $2)
			   AND created_at <= $3
			 ORDER BY created_at DESC LIMIT 1`,
			checkID, lastPingAt, at,
		).Scan(&startedAt)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		var duration *int64
		if startedAt != nil {
			ms := at.Sub(*startedAt).Milliseconds()
			duration = &ms
		}

		out.Ping = model.Ping{CheckID: checkID, Type: model.PingSuccess, SourceIP: sourceIP, DurationMs: duration}
		err = tx.QueryRow(ctx,
			`INSERT INTO pings (check_id, type, source_ip, duration_ms, created_at)
			 VALUES ($1, 'success', $2, $3, $4) RETURNING id, created_at`,
			checkID, sourceIP, duration, at,
		).Scan(&out.Ping.ID, &out.Ping.CreatedAt)
		if err != nil {
			return err
		}

		return scanCheck(tx.QueryRow(ctx,
			`UPDATE checks
			 SET status = 'up', last_ping_at = $2::timestamptz,
			     next_expected_at = $2::timestamptz + period * interval '1 second',
			     ping_count = ping_count + 1, updated_at = now()
			 WHERE id = $1
			 RETURNING `+checkColumns(""),
			checkID, at,
		), &out.Check)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordSignal appends a start or fail ping without touching the check.
func (db *DB) RecordSignal(ctx context.Context, checkID string, typ model.PingType, at time.Time, sourceIP string) (*model.Ping, error) {
	p := model.Ping{CheckID: checkID, Type: typ, SourceIP: sourceIP}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO pings (check_id, type, source_ip, created_at)
		 SELECT id, $2, $3, $4 FROM checks WHERE id = $1 AND status <> 'paused'
		 RETURNING id, created_at`,
		checkID, typ, sourceIP, at,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (db *DB) ListPings(ctx context.Context, checkID string, limit int) ([]model.Ping, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, check_id, type, source_ip, duration_ms, created_at
		 FROM pings WHERE check_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		checkID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pings []model.Ping
	for rows.Next() {
		var p model.Ping
		if err := rows.Scan(&p.ID, &p.CheckID, &p.Type, &p.SourceIP, &p.DurationMs, &p.CreatedAt); err != nil {
			return nil, err
		}
		pings = append(pings, p)
	}
	return pings, rows.Err()
}
