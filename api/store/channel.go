package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"deadman/api/model"
)

func (db *DB) InsertChannel(ctx context.Context, ch *model.Channel) error {
	return db.pool.QueryRow(ctx,
		`INSERT INTO channels (id, user_id, kind, target, is_default)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		ch.ID, ch.UserID, ch.Kind, ch.Target, ch.IsDefault,
	).Scan(&ch.CreatedAt)
}

func (db *DB) ListChannels(ctx context.Context, userID string) ([]model.Channel, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, kind, target, is_default, created_at
		 FROM channels WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectChannels(rows)
}

func (db *DB) DeleteChannel(ctx context.Context, id string) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) LinkChannel(ctx context.Context, checkID, channelID string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO check_channels (check_id, channel_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`, checkID, channelID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		// foreign_key_violation: check or channel is gone
		return ErrNotFound
	}
	return err
}

func (db *DB) UnlinkChannel(ctx context.Context, checkID, channelID string) error {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM check_channels WHERE check_id = $1 AND channel_id = $2`, checkID, channelID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ResolveChannels returns the channels a check notifies: its explicit
// links plus the owner's default channels that are not linked to any check.
func (db *DB) ResolveChannels(ctx context.Context, checkID, userID string) ([]model.Channel, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT c.id, c.user_id, c.kind, c.target, c.is_default, c.created_at
		 FROM channels c
		 JOIN check_channels cc ON cc.channel_id = c.id
		 WHERE cc.check_id = $1
		 UNION
		 SELECT c.id, c.user_id, c.kind, c.target, c.is_default, c.created_at
		 FROM channels c
		 WHERE c.user_id = $2 AND c.is_default
		   AND NOT EXISTS (SELECT 1 FROM check_channels cc WHERE cc.channel_id = c.id)
		 ORDER BY created_at`,
		checkID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectChannels(rows)
}

type channelRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func collectChannels(rows channelRows) ([]model.Channel, error) {
	var out []model.Channel
	for rows.Next() {
		var ch model.Channel
		if err := rows.Scan(&ch.ID, &ch.UserID, &ch.Kind, &ch.Target, &ch.IsDefault, &ch.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}
