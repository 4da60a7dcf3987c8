package store

import (
	"context"
	"time"

	"deadman/api/model"
)

// PendingRetry is a failed alert due for another attempt, with what the
// retrier needs to rebuild the message.
type PendingRetry struct {
	Alert         model.Alert
	Check         model.Check
	SigningSecret string
}

const alertColumns = `a.id, a.check_id, a.channel_id, a.kind, a.target, a.type, a.status,
	a.error, a.retry_count, a.next_retry_at, a.created_at, a.updated_at`

func scanAlert(row rowScanner, a *model.Alert, extra ...interface{}) error {
	dest := []interface{}{
		&a.ID, &a.CheckID, &a.ChannelID, &a.Kind, &a.Target, &a.Type, &a.Status,
		&a.Error, &a.RetryCount, &a.NextRetryAt, &a.CreatedAt, &a.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

func (db *DB) InsertAlert(ctx context.Context, a *model.Alert) error {
	return db.pool.QueryRow(ctx,
		`INSERT INTO alerts (check_id, channel_id, kind, target, type, status, error, retry_count, next_retry_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		a.CheckID, a.ChannelID, a.Kind, a.Target, a.Type, a.Status, a.Error, a.RetryCount, a.NextRetryAt,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (db *DB) ListAlerts(ctx context.Context, checkID string, limit int) ([]model.Alert, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+alertColumns+` FROM alerts a
		 WHERE a.check_id = $1 ORDER BY a.created_at DESC LIMIT $2`,
		checkID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var a model.Alert
		if err := scanAlert(rows, &a); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// DueRetries selects failed webhook and slack alerts that still have
// attempts left and whose next attempt is due, oldest first.
func (db *DB) DueRetries(ctx context.Context, now time.Time, limit int) ([]PendingRetry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+alertColumns+`, `+checkColumns("c.")+`, COALESCE(acc.signing_secret, '')
		 FROM alerts a
		 JOIN checks c ON c.id = a.check_id
		 LEFT JOIN accounts acc ON acc.id = c.user_id
		 WHERE a.status = 'failed'
		   AND a.retry_count < $2
		   AND a.kind IN ('webhook', 'slack')
		   AND (a.next_retry_at IS NULL OR a.next_retry_at <= $1)
		 ORDER BY a.created_at
		 LIMIT $3`,
		now, model.MaxAlertRetries, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []PendingRetry
	for rows.Next() {
		var p PendingRetry
		c := &p.Check
		err := scanAlert(rows, &p.Alert,
			&c.ID, &c.UserID, &c.Name, &c.Period, &c.Grace, &c.CronExpression, &c.Status,
			&c.LastPingAt, &c.NextExpectedAt, &c.PingCount, &c.AlertCount, &c.LastAlertAt,
			&c.Tags, &c.GroupName, &c.MaintStart, &c.MaintEnd, &c.MaintSchedule,
			&c.CreatedAt, &c.UpdatedAt,
			&p.SigningSecret,
		)
		if err != nil {
			return nil, err
		}
		due = append(due, p)
	}
	return due, rows.Err()
}

func (db *DB) MarkAlertSent(ctx context.Context, id int64) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE alerts SET status = 'sent', error = NULL, next_retry_at = NULL, updated_at = now()
		 WHERE id = $1`, id)
	return err
}

// MarkAlertRetry records a failed attempt. A nil next leaves the alert
// permanently failed.
func (db *DB) MarkAlertRetry(ctx context.Context, id int64, retryCount int, next *time.Time, errMsg string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE alerts SET retry_count = $2, next_retry_at = $3, error = $4, updated_at = now()
		 WHERE id = $1`, id, retryCount, next, errMsg)
	return err
}
