package catalog

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showroom/internal/playback"
)

func sampleReel() Reel {
	return Reel{
		ID:    " spring-sale ",
		Title: "Spring sale",
		Items: []playback.MediaItem{
			{Key: "hero", Source: "https://cdn.example.com/hero.mp4", Poster: "https://cdn.example.com/hero.jpg"},
			{Source: "https://cdn.example.com/detail.mp4"},
		},
	}
}

func TestNormalize(t *testing.T) {
	r, err := Normalize(sampleReel())
	require.NoError(t, err)
	assert.Equal(t, "spring-sale", r.ID)
	assert.Equal(t, "1", r.Items[1].Key)

	_, err = Normalize(Reel{})
	assert.ErrorIs(t, err, ErrInvalid)

	bad := sampleReel()
	bad.Items = append(bad.Items, playback.MediaItem{Key: "x"})
	_, err = Normalize(bad)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorContains(t, err, "item 2 has no source")

	dup := sampleReel()
	dup.Items[1].Key = "hero"
	_, err = Normalize(dup)
	assert.ErrorContains(t, err, `share key "hero"`)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewMemoryStore()
	require.NoError(t, err)

	_, err = s.Reel(ctx, "spring-sale")
	assert.ErrorIs(t, err, ErrNotFound)

	saved, err := s.SaveReel(ctx, sampleReel())
	require.NoError(t, err)
	assert.False(t, saved.UpdatedAt.IsZero())

	got, err := s.Reel(ctx, "spring-sale")
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	got.Items[0].Source = "mutated"
	again, err := s.Reel(ctx, "spring-sale")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/hero.mp4", again.Items[0].Source)

	require.NoError(t, s.DeleteReel(ctx, "spring-sale"))
	assert.ErrorIs(t, s.DeleteReel(ctx, "spring-sale"), ErrNotFound)
}

type countingStore struct {
	Store
	reads atomic.Int32
}

func (c *countingStore) Reel(ctx context.Context, id string) (Reel, error) {
	c.reads.Add(1)
	return c.Store.Reel(ctx, id)
}

func TestCachedStore(t *testing.T) {
	ctx := context.Background()
	mem, err := NewMemoryStore(sampleReel())
	require.NoError(t, err)
	backing := &countingStore{Store: mem}

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCachedStore(backing, time.Minute)
	c.now = func() time.Time { return now }

	_, err = c.Reel(ctx, "spring-sale")
	require.NoError(t, err)
	_, err = c.Reel(ctx, "spring-sale")
	require.NoError(t, err)
	assert.EqualValues(t, 1, backing.reads.Load())

	now = now.Add(2 * time.Minute)
	_, err = c.Reel(ctx, "spring-sale")
	require.NoError(t, err)
	assert.EqualValues(t, 2, backing.reads.Load())

	updated := sampleReel()
	updated.Title = "Summer sale"
	_, err = c.SaveReel(ctx, updated)
	require.NoError(t, err)
	got, err := c.Reel(ctx, "spring-sale")
	require.NoError(t, err)
	assert.Equal(t, "Summer sale", got.Title)
	assert.EqualValues(t, 3, backing.reads.Load())

	require.NoError(t, c.DeleteReel(ctx, "spring-sale"))
	_, err = c.Reel(ctx, "spring-sale")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCachedStoreNegativeLookupsAreNotCached(t *testing.T) {
	ctx := context.Background()
	mem, err := NewMemoryStore()
	require.NoError(t, err)
	backing := &countingStore{Store: mem}
	c := NewCachedStore(backing, time.Minute)

	_, err = c.Reel(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Reel(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualValues(t, 2, backing.reads.Load())
}
