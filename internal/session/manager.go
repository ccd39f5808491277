package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"showroom/internal/playback"
)

type Options struct {
	Prober   playback.Prober
	Fallback playback.FallbackFunc
	Metrics  *playback.Metrics
	// IdleTTL is how long a session without a browser survives.
	IdleTTL    time.Duration
	Registerer prometheus.Registerer
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Params are the per-session carousel settings.
type Params struct {
	ReelID      string
	Items       []playback.MediaItem
	AutoAdvance bool
	Autoplay    bool
	Muted       bool
	Controls    bool
}

// Manager owns all live sessions.
type Manager struct {
	opts Options
	log  zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 10 * time.Minute
	}
	m := &Manager{
		opts:     opts,
		log:      opts.Logger.With().Str("component", "sessions").Logger(),
		sessions: make(map[string]*Session),
	}
	if opts.Registerer != nil {
		opts.Registerer.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "showroom_sessions_active",
			Help: "Live playback sessions",
		}, func() float64 { return float64(m.Len()) }))
	}
	return m
}

func (m *Manager) Create(p Params) *Session {
	id := uuid.NewString()
	s := newSession(sessionConfig{
		id:     id,
		reelID: p.ReelID,
		items:  p.Items,
		coord: playback.Options{
			AutoAdvance: p.AutoAdvance,
			Autoplay:    p.Autoplay,
			Prober:      m.opts.Prober,
			Fallback:    m.opts.Fallback,
			Metrics:     m.opts.Metrics,
		},
		pres: Presentation{Muted: p.Muted, Controls: p.Controls},
		log:  m.opts.Logger.With().Str("session", id).Logger(),
		now:  m.opts.Now,
	})
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	m.log.Info().Str("session", id).Str("reel", p.ReelID).Int("items", len(p.Items)).Msg("session created")
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Close()
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Reap closes sessions that have had no browser attached for longer than
// the idle TTL and returns how many were removed.
func (m *Manager) Reap(now time.Time) int {
	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idle(now, m.opts.IdleTTL) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range expired {
		s.Close()
		m.log.Info().Str("session", s.ID).Msg("idle session reaped")
	}
	return len(expired)
}

// Run reaps idle sessions until ctx is done and then closes the rest.
func (m *Manager) Run(ctx context.Context) {
	interval := m.opts.IdleTTL / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.CloseAll()
			return
		case <-ticker.C:
			m.Reap(m.opts.Now())
		}
	}
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}
