package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"showroom/internal/playback"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrUnknownSignal = errors.New("unknown signal")
)

// ErrClosed is returned by commands issued after the session ended. The
// coordinator classifies it as an aborted fault.
var ErrClosed error = &playback.ErrorDetail{Kind: playback.KindAborted, Message: "session closed"}

// Session binds one carousel coordinator to at most one connected browser.
type Session struct {
	ID        string
	ReelID    string
	CreatedAt time.Time

	coord   *playback.Coordinator
	surface *RemoteSurface
	log     zerolog.Logger
	now     func() time.Time

	mu       sync.Mutex
	peer     Peer
	lastSeen time.Time
	closed   bool
}

// Info is the JSON view of a session.
type Info struct {
	ID        string            `json:"id"`
	ReelID    string            `json:"reelId,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	Connected bool              `json:"connected"`
	Snapshot  playback.Snapshot `json:"snapshot"`
}

type sessionConfig struct {
	id, reelID string
	items      []playback.MediaItem
	coord      playback.Options
	pres       Presentation
	log        zerolog.Logger
	now        func() time.Time
}

func newSession(cfg sessionConfig) *Session {
	now := cfg.now()
	s := &Session{
		ID:        cfg.id,
		ReelID:    cfg.reelID,
		CreatedAt: now,
		log:       cfg.log,
		now:       cfg.now,
		lastSeen:  now,
	}
	s.surface = NewRemoteSurface(s.send, cfg.pres)
	opts := cfg.coord
	opts.Surface = s.surface
	opts.OnEvent = s.onEvent
	opts.OnAdvance = s.onAdvance
	opts.Logger = s.log
	s.coord = playback.New(cfg.items, opts)
	return s
}

func (s *Session) Snapshot() playback.Snapshot {
	return s.coord.Snapshot()
}

func (s *Session) Info() Info {
	s.mu.Lock()
	connected := s.peer != nil
	s.mu.Unlock()
	return Info{
		ID:        s.ID,
		ReelID:    s.ReelID,
		CreatedAt: s.CreatedAt,
		Connected: connected,
		Snapshot:  s.coord.Snapshot(),
	}
}

func (s *Session) SlideChanged(index int) error {
	if !s.touch() {
		return ErrClosed
	}
	s.coord.SlideChanged(index)
	return nil
}

// Replace rebuilds the coordinator with a new item list. Errored items get a
// fresh probe.
func (s *Session) Replace(items []playback.MediaItem) error {
	if !s.touch() {
		return ErrClosed
	}
	s.coord.Replace(items)
	s.sync()
	return nil
}

// Signal applies a browser signal. Media signals from elements that are no
// longer mounted are dropped.
func (s *Session) Signal(in Inbound) error {
	if !s.touch() {
		return ErrClosed
	}
	switch in.Type {
	case SignalSlide:
		s.coord.SlideChanged(in.Index)
	case SignalEnded:
		if sig, ok := s.surface.Signals(in.Index, in.Mount); ok {
			sig.Ended()
		} else {
			s.log.Debug().Int("slot", in.Index).Uint64("mount", in.Mount).Msg("stale ended signal")
		}
	case SignalError:
		if sig, ok := s.surface.Signals(in.Index, in.Mount); ok {
			sig.Failed(playback.MediaErrorCode(in.Code), in.Message)
		} else {
			s.log.Debug().Int("slot", in.Index).Uint64("mount", in.Mount).Msg("stale error signal")
		}
	case SignalPause:
		s.coord.Pause()
	case SignalResume:
		s.coord.Resume()
	case SignalPing:
		return s.send(Outbound{Type: TypePong})
	default:
		return fmt.Errorf("%w %q", ErrUnknownSignal, in.Type)
	}
	return nil
}

// HandleInbound is the read pump handler for an attached browser.
func (s *Session) HandleInbound(in Inbound) {
	if err := s.Signal(in); err != nil && !errors.Is(err, ErrClosed) {
		_ = s.send(Outbound{Type: TypeError, Index: in.Index, Message: err.Error()})
	}
}

// Attach makes p the session's browser, replacing any previous one, and
// sends it a full sync.
func (s *Session) Attach(p Peer) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	prev := s.peer
	s.peer = p
	s.lastSeen = s.now()
	s.mu.Unlock()
	if prev != nil && prev != p {
		prev.Close()
	}
	s.log.Info().Msg("browser attached")
	s.sync()
	return nil
}

// Detach forgets p if it is still the attached browser.
func (s *Session) Detach(p Peer) {
	s.mu.Lock()
	if s.peer != p {
		s.mu.Unlock()
		return
	}
	s.peer = nil
	s.lastSeen = s.now()
	s.mu.Unlock()
	s.log.Info().Msg("browser detached")
}

// Close stops the coordinator and disconnects the browser.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	p := s.peer
	s.peer = nil
	s.mu.Unlock()

	s.coord.Close()
	if p != nil {
		p.Close()
	}
	s.log.Info().Msg("session closed")
}

// idle reports whether no browser is attached and nothing happened for ttl.
func (s *Session) idle(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer == nil && now.Sub(s.lastSeen) > ttl
}

func (s *Session) touch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.lastSeen = s.now()
	return true
}

func (s *Session) sync() {
	snap := s.coord.Snapshot()
	pres := s.surface.pres
	_ = s.send(Outbound{Type: TypeSync, Index: snap.Active, Snapshot: &snap, Mounts: s.surface.Mounts(), Presentation: &pres})
}

func (s *Session) onEvent(ev playback.Event) {
	_ = s.send(Outbound{Type: TypeState, Index: ev.Index, Event: &ev})
}

func (s *Session) onAdvance(next int) {
	_ = s.send(Outbound{Type: TypeAdvance, Index: next})
}

// send delivers msg to the attached browser. Without a browser the message
// is dropped; the next Attach resynchronises from a snapshot.
func (s *Session) send(msg Outbound) error {
	s.mu.Lock()
	closed, p := s.closed, s.peer
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if p == nil {
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	p.Send(data)
	return nil
}
