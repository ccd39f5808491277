package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"showroom/internal/playback"
)

// ScyllaStore keeps reels in the keyspace prepared by db.EnsureSchema.
type ScyllaStore struct {
	session  *gocql.Session
	keyspace string
}

func NewScyllaStore(session *gocql.Session, keyspace string) *ScyllaStore {
	return &ScyllaStore{session: session, keyspace: keyspace}
}

func (s *ScyllaStore) Reel(ctx context.Context, id string) (Reel, error) {
	r := Reel{ID: id}
	err := s.session.Query(fmt.Sprintf(`SELECT title, updated_at FROM %s.reels WHERE id=?`, s.keyspace), id).
		WithContext(ctx).
		Scan(&r.Title, &r.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return Reel{}, ErrNotFound
	}
	if err != nil {
		return Reel{}, fmt.Errorf("load reel %s: %w", id, err)
	}
	iter := s.session.Query(fmt.Sprintf(`SELECT key, src, poster, title FROM %s.reel_items WHERE reel_id=?`, s.keyspace), id).
		WithContext(ctx).Iter()
	r.Items = []playback.MediaItem{}
	var it playback.MediaItem
	for iter.Scan(&it.Key, &it.Source, &it.Poster, &it.Title) {
		r.Items = append(r.Items, it)
	}
	if err := iter.Close(); err != nil {
		return Reel{}, fmt.Errorf("load reel items %s: %w", id, err)
	}
	return r, nil
}

// SaveReel writes the reel and its items in one logged batch. The old item
// partition is deleted one microsecond before the new rows are written so
// the tombstone never shadows them.
func (s *ScyllaStore) SaveReel(ctx context.Context, reel Reel) (Reel, error) {
	reel, err := Normalize(reel)
	if err != nil {
		return Reel{}, err
	}
	reel.UpdatedAt = time.Now().UTC()
	ts := reel.UpdatedAt.UnixMicro()

	b := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	b.Query(fmt.Sprintf(`DELETE FROM %s.reel_items USING TIMESTAMP ? WHERE reel_id=?`, s.keyspace), ts-1, reel.ID)
	b.Query(fmt.Sprintf(`INSERT INTO %s.reels (id, title, updated_at) VALUES (?,?,?) USING TIMESTAMP ?`, s.keyspace),
		reel.ID, reel.Title, reel.UpdatedAt, ts)
	for i, it := range reel.Items {
		b.Query(fmt.Sprintf(`INSERT INTO %s.reel_items (reel_id, position, key, src, poster, title) VALUES (?,?,?,?,?,?) USING TIMESTAMP ?`, s.keyspace),
			reel.ID, i, it.Key, it.Source, it.Poster, it.Title, ts)
	}
	if err := s.session.ExecuteBatch(b); err != nil {
		return Reel{}, fmt.Errorf("save reel %s: %w", reel.ID, err)
	}
	return reel, nil
}

func (s *ScyllaStore) DeleteReel(ctx context.Context, id string) error {
	if _, err := s.Reel(ctx, id); err != nil {
		return err
	}
	b := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	b.Query(fmt.Sprintf(`DELETE FROM %s.reel_items WHERE reel_id=?`, s.keyspace), id)
	b.Query(fmt.Sprintf(`DELETE FROM %s.reels WHERE id=?`, s.keyspace), id)
	if err := s.session.ExecuteBatch(b); err != nil {
		return fmt.Errorf("delete reel %s: %w", id, err)
	}
	return nil
}
