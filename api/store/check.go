package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"deadman/api/model"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func checkColumns(prefix string) string {
	cols := []string{
		"id", "user_id", "name", "period", "grace", "cron_expression", "status",
		"last_ping_at", "next_expected_at", "ping_count", "alert_count", "last_alert_at",
		"tags", "group_name", "maint_start", "maint_end", "maint_schedule",
		"created_at", "updated_at",
	}
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += prefix + c
	}
	return out
}

func scanCheck(row rowScanner, c *model.Check) error {
	return row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.Period, &c.Grace, &c.CronExpression, &c.Status,
		&c.LastPingAt, &c.NextExpectedAt, &c.PingCount, &c.AlertCount, &c.LastAlertAt,
		&c.Tags, &c.GroupName, &c.MaintStart, &c.MaintEnd, &c.MaintSchedule,
		&c.CreatedAt, &c.UpdatedAt,
	)
}

func (db *DB) InsertCheck(ctx context.Context, c *model.Check) error {
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if c.Status == "" {
		c.Status = model.CheckNew
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO checks (id, user_id, name, period, grace, cron_expression, status,
		                     tags, group_name, maint_start, maint_end, maint_schedule)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at, updated_at`,
		c.ID, c.UserID, c.Name, c.Period, c.Grace, c.CronExpression, c.Status,
		c.Tags, c.GroupName, c.MaintStart, c.MaintEnd, c.MaintSchedule,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return err
}

func (db *DB) GetCheck(ctx context.Context, id string) (*model.Check, error) {
	var c model.Check
	err := scanCheck(db.pool.QueryRow(ctx,
		`SELECT `+checkColumns("")+` FROM checks WHERE id = $1`, id), &c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetCheckConfig loads the cacheable projection of a check.
func (db *DB) GetCheckConfig(ctx context.Context, id string) (*model.CheckConfig, error) {
	var cfg model.CheckConfig
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, period, grace, status FROM checks WHERE id = $1`, id,
	).Scan(&cfg.ID, &cfg.UserID, &cfg.Period, &cfg.Grace, &cfg.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

func (db *DB) ListChecks(ctx context.Context, userID string) ([]model.Check, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+checkColumns("")+` FROM checks WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []model.Check
	for rows.Next() {
		var c model.Check
		if err := scanCheck(rows, &c); err != nil {
			return nil, err
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

// UpdateCheckConfig writes the owner-editable fields. Runtime state
// (status, timestamps, counters) is never touched here.
func (db *DB) UpdateCheckConfig(ctx context.Context, c *model.Check) error {
	if c.Tags == nil {
		c.Tags = []string{}
	}
	tag, err := db.pool.Exec(ctx,
		`UPDATE checks SET name = $2, period = $3, grace = $4, cron_expression = $5,
		        tags = $6, group_name = $7, maint_start = $8, maint_end = $9,
		        maint_schedule = $10, updated_at = now()
		 WHERE id = $1`,
		c.ID, c.Name, c.Period, c.Grace, c.CronExpression,
		c.Tags, c.GroupName, c.MaintStart, c.MaintEnd, c.MaintSchedule,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) DeleteCheck(ctx context.Context, id string) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM checks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) PauseCheck(ctx context.Context, id string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE checks SET status = 'paused', updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ResumeCheck returns a paused check to "new". The stale deadline is
// cleared so the check waits for its next ping instead of going down on
// the first sweep.
func (db *DB) ResumeCheck(ctx context.Context, id string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE checks SET status = 'new', next_expected_at = NULL, updated_at = now()
		 WHERE id = $1 AND status = 'paused'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := db.GetCheck(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// ListOverdue returns up to limit checks that are up or new, past their
// deadline plus grace and not inside a one-time maintenance window, with
// ids greater than afterID. Recurring schedules are evaluated by the caller.
func (db *DB) ListOverdue(ctx context.Context, now time.Time, afterID string, limit int) ([]model.Check, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+checkColumns("")+` FROM checks
		 WHERE status IN ('up', 'new')
		   AND next_expected_at IS NOT NULL
		   AND next_expected_at + grace * interval '1 second' < $1
		   AND NOT (maint_start IS NOT NULL AND maint_end IS NOT NULL
		            AND $1 BETWEEN maint_start AND maint_end)
		   AND id > $2
		 ORDER BY id
		 LIMIT $3`,
		now, afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list overdue: %w", err)
	}
	defer rows.Close()

	var checks []model.Check
	for rows.Next() {
		var c model.Check
		if err := scanCheck(rows, &c); err != nil {
			return nil, err
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

// MarkDown transitions a check to down if it is still up or new and still
// overdue at now. It reports false when a concurrent ping got there first.
func (db *DB) MarkDown(ctx context.Context, id string, now time.Time) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE checks
		 SET status = 'down', alert_count = alert_count + 1, last_alert_at = $2, updated_at = now()
		 WHERE id = $1
		   AND status IN ('up', 'new')
		   AND next_expected_at + grace * interval '1 second' < $2`,
		id, now,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
