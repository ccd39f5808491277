package playback

import (
	"fmt"
	"strconv"
	"strings"
)

// MediaItem describes one slot of a carousel. It is never mutated after it
// has been handed to a unit; the host replaces the whole list instead.
type MediaItem struct {
	Key    string `json:"key"`
	Source string `json:"src"`
	Poster string `json:"poster,omitempty"`
	Title  string `json:"title,omitempty"`
}

// State is the lifecycle position of one playback unit.
type State int

const (
	Idle State = iota
	Probing
	Ready
	Playing
	Paused
	Ended
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Probing:
		return "probing"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for st := Idle; st <= Error; st++ {
		if strings.EqualFold(st.String(), string(text)) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown playback state %q", text)
}

// ErrorKind classifies why a unit became unplayable.
type ErrorKind string

const (
	KindAborted       ErrorKind = "aborted"
	KindNetwork       ErrorKind = "network"
	KindDecodeCorrupt ErrorKind = "decodeCorrupt"
	KindUnsupported   ErrorKind = "unsupported"
	KindUnavailable   ErrorKind = "unavailable"
)

// ErrorDetail is attached to a unit only while it is in Error.
type ErrorDetail struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message,omitempty"`
}

func (e *ErrorDetail) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// Event is emitted on every unit state transition.
type Event struct {
	Index    int          `json:"index"`
	Key      string       `json:"key"`
	State    State        `json:"state"`
	Err      *ErrorDetail `json:"error,omitempty"`
	Fallback *Fallback    `json:"fallback,omitempty"`
}

// SlotSnapshot is one slot of a Snapshot.
type SlotSnapshot struct {
	Index    int          `json:"index"`
	Item     MediaItem    `json:"item"`
	State    State        `json:"state"`
	Err      *ErrorDetail `json:"error,omitempty"`
	Fallback *Fallback    `json:"fallback,omitempty"`
}

// Snapshot is a copy of the coordinator's slot table. Active is -1 when no
// slot is active.
type Snapshot struct {
	Active int            `json:"active"`
	Slots  []SlotSnapshot `json:"slots"`
}

// Playing returns the indices of slots currently in Playing.
func (s Snapshot) Playing() []int {
	var out []int
	for _, slot := range s.Slots {
		if slot.State == Playing {
			out = append(out, slot.Index)
		}
	}
	return out
}

// NormalizeItems trims fields and fills missing keys with the slot position.
func NormalizeItems(items []MediaItem) []MediaItem {
	out := make([]MediaItem, len(items))
	for i, it := range items {
		it.Key = strings.TrimSpace(it.Key)
		it.Source = strings.TrimSpace(it.Source)
		it.Poster = strings.TrimSpace(it.Poster)
		it.Title = strings.TrimSpace(it.Title)
		if it.Key == "" {
			it.Key = strconv.Itoa(i)
		}
		out[i] = it
	}
	return out
}
