package playback

// Fallback is what a slot shows instead of a player once its unit is in
// Error.
type Fallback struct {
	Poster  string    `json:"poster,omitempty"`
	Title   string    `json:"title,omitempty"`
	Message string    `json:"message,omitempty"`
	Kind    ErrorKind `json:"kind"`
}

// FallbackFunc builds the substitute view for the slot at index.
type FallbackFunc func(item MediaItem, index int, detail ErrorDetail) Fallback

const unavailableMessage = "Video unavailable"

// DefaultFallback shows the poster with a short message. Aborted playback is
// not a user-facing failure, so it gets the poster only.
func DefaultFallback(item MediaItem, _ int, detail ErrorDetail) Fallback {
	fb := Fallback{
		Poster: item.Poster,
		Title:  item.Title,
		Kind:   detail.Kind,
	}
	if detail.Kind != KindAborted {
		fb.Message = unavailableMessage
	}
	return fb
}
