package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"showroom/internal/playback"
)

var (
	ErrNotFound = errors.New("reel not found")
	ErrInvalid  = errors.New("invalid reel")
)

// Reel is an ordered list of media items shown in one carousel.
type Reel struct {
	ID        string               `json:"id"`
	Title     string               `json:"title,omitempty"`
	Items     []playback.MediaItem `json:"items"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// Store persists reels. Reel returns ErrNotFound for unknown ids.
type Store interface {
	Reel(ctx context.Context, id string) (Reel, error)
	SaveReel(ctx context.Context, reel Reel) (Reel, error)
	DeleteReel(ctx context.Context, id string) error
}

// Normalize trims the reel, fills missing item keys with their position and
// rejects reels that cannot be played back at all.
func Normalize(r Reel) (Reel, error) {
	r.ID = strings.TrimSpace(r.ID)
	r.Title = strings.TrimSpace(r.Title)
	if r.ID == "" {
		return r, fmt.Errorf("%w: id is required", ErrInvalid)
	}
	r.Items = playback.NormalizeItems(r.Items)
	seen := make(map[string]int, len(r.Items))
	for i, it := range r.Items {
		if it.Source == "" {
			return r, fmt.Errorf("%w: item %d has no source", ErrInvalid, i)
		}
		if prev, ok := seen[it.Key]; ok {
			return r, fmt.Errorf("%w: items %d and %d share key %q", ErrInvalid, prev, i, it.Key)
		}
		seen[it.Key] = i
	}
	return r, nil
}

func cloneReel(r Reel) Reel {
	out := r
	out.Items = make([]playback.MediaItem, len(r.Items))
	copy(out.Items, r.Items)
	return out
}
