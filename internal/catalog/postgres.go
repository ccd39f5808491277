package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"showroom/internal/playback"
)

// PostgresStore keeps reels in the reels and reel_items tables.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS reels (
		id text PRIMARY KEY,
		title text NOT NULL DEFAULT '',
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS reel_items (
		reel_id text NOT NULL REFERENCES reels(id) ON DELETE CASCADE,
		position int NOT NULL,
		key text NOT NULL,
		src text NOT NULL,
		poster text NOT NULL DEFAULT '',
		title text NOT NULL DEFAULT '',
		PRIMARY KEY (reel_id, position),
		UNIQUE (reel_id, key)
	)`,
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure reels schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Reel(ctx context.Context, id string) (Reel, error) {
	r := Reel{ID: id}
	err := s.pool.QueryRow(ctx, `SELECT title, updated_at FROM reels WHERE id=$1`, id).
		Scan(&r.Title, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Reel{}, ErrNotFound
	}
	if err != nil {
		return Reel{}, fmt.Errorf("load reel %s: %w", id, err)
	}
	rows, err := s.pool.Query(ctx, `
		SELECT key, src, poster, title FROM reel_items
		WHERE reel_id=$1 ORDER BY position`, id)
	if err != nil {
		return Reel{}, fmt.Errorf("load reel items %s: %w", id, err)
	}
	defer rows.Close()
	r.Items = []playback.MediaItem{}
	for rows.Next() {
		var it playback.MediaItem
		if err := rows.Scan(&it.Key, &it.Source, &it.Poster, &it.Title); err != nil {
			return Reel{}, err
		}
		r.Items = append(r.Items, it)
	}
	return r, rows.Err()
}

// SaveReel replaces the reel and all of its items in one transaction.
func (s *PostgresStore) SaveReel(ctx context.Context, reel Reel) (Reel, error) {
	reel, err := Normalize(reel)
	if err != nil {
		return Reel{}, err
	}
	reel.UpdatedAt = time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Reel{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO reels (id, title, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, updated_at=EXCLUDED.updated_at`,
		reel.ID, reel.Title, reel.UpdatedAt)
	if err != nil {
		return Reel{}, fmt.Errorf("upsert reel %s: %w", reel.ID, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM reel_items WHERE reel_id=$1`, reel.ID); err != nil {
		return Reel{}, fmt.Errorf("clear reel items %s: %w", reel.ID, err)
	}
	batch := &pgx.Batch{}
	for i, it := range reel.Items {
		batch.Queue(`INSERT INTO reel_items (reel_id, position, key, src, poster, title)
			VALUES ($1, $2, $3, $4, $5, $6)`, reel.ID, i, it.Key, it.Source, it.Poster, it.Title)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return Reel{}, fmt.Errorf("insert reel items %s: %w", reel.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Reel{}, err
	}
	return reel, nil
}

func (s *PostgresStore) DeleteReel(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reels WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete reel %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
