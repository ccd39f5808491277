package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// manualProber blocks every probe until the test resolves it.
type manualProber struct {
	mu      sync.Mutex
	waiting map[string]chan ProbeResult
	started map[string]int
}

func newManualProber() *manualProber {
	return &manualProber{
		waiting: make(map[string]chan ProbeResult),
		started: make(map[string]int),
	}
}

func (p *manualProber) ch(source string) chan ProbeResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.waiting[source]
	if !ok {
		c = make(chan ProbeResult, 1)
		p.waiting[source] = c
	}
	return c
}

func (p *manualProber) Probe(ctx context.Context, source string) ProbeResult {
	p.mu.Lock()
	p.started[source]++
	p.mu.Unlock()
	select {
	case res := <-p.ch(source):
		return res
	case <-ctx.Done():
		return ProbeResult{Reason: ctx.Err().Error()}
	}
}

func (p *manualProber) resolve(source string, reachable bool) {
	res := ProbeResult{Reachable: reachable}
	if !reachable {
		res.Reason = "status 404"
	}
	p.ch(source) <- res
}

func (p *manualProber) startedCount(source string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started[source]
}

type fakeResource struct {
	mu      sync.Mutex
	index   int
	signals Signals
	calls   []string
	playErr error
	panics  bool
	closed  bool
	// onPlay runs inside Play, before it returns.
	onPlay func(Signals)
}

func (r *fakeResource) record(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *fakeResource) Play() error {
	r.record("play")
	if r.onPlay != nil {
		r.onPlay(r.signals)
	}
	if r.panics {
		panic("element detached")
	}
	return r.playErr
}

func (r *fakeResource) Pause() error { r.record("pause"); return nil }
func (r *fakeResource) Reset() error { r.record("reset"); return nil }

func (r *fakeResource) Close() error {
	r.record("close")
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func (r *fakeResource) callsCopy() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeSurface struct {
	mu        sync.Mutex
	resources map[int]*fakeResource
	mountErr  map[int]error
	configure func(index int, r *fakeResource)
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{resources: make(map[int]*fakeResource), mountErr: make(map[int]error)}
}

func (s *fakeSurface) Mount(index int, _ MediaItem, signals Signals) (Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mountErr[index]; err != nil {
		return nil, err
	}
	r := &fakeResource{index: index, signals: signals}
	if s.configure != nil {
		s.configure(index, r)
	}
	s.resources[index] = r
	return r, nil
}

func (s *fakeSurface) resource(index int) *fakeResource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resources[index]
}

// recorder plays the host: it collects events and advance requests.
type recorder struct {
	mu       sync.Mutex
	events   []Event
	advances []int
	onAdv    func(int)
}

func (r *recorder) event(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) advance(index int) {
	r.mu.Lock()
	r.advances = append(r.advances, index)
	fn := r.onAdv
	r.mu.Unlock()
	if fn != nil {
		fn(index)
	}
}

func (r *recorder) eventsCopy() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) advancesCopy() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.advances...)
}

func (r *recorder) eventsFor(index int) []Event {
	var out []Event
	for _, ev := range r.eventsCopy() {
		if ev.Index == index {
			out = append(out, ev)
		}
	}
	return out
}

type harness struct {
	c       *Coordinator
	prober  *manualProber
	surface *fakeSurface
	host    *recorder
}

func items(n int) []MediaItem {
	out := make([]MediaItem, n)
	for i := range out {
		out[i] = MediaItem{
			Key:    "clip-" + string(rune('a'+i)),
			Source: "https://cdn.example.com/clip-" + string(rune('a'+i)) + ".mp4",
			Poster: "https://cdn.example.com/clip-" + string(rune('a'+i)) + ".jpg",
			Title:  "Clip " + string(rune('A'+i)),
		}
	}
	return out
}

func newHarness(t *testing.T, list []MediaItem, autoAdvance, autoplay bool) *harness {
	t.Helper()
	h := &harness{prober: newManualProber(), surface: newFakeSurface(), host: &recorder{}}
	h.c = New(list, Options{
		AutoAdvance: autoAdvance,
		Autoplay:    autoplay,
		Prober:      h.prober,
		Surface:     h.surface,
		OnEvent:     h.host.event,
		OnAdvance:   h.host.advance,
		Logger:      zerolog.Nop(),
	})
	t.Cleanup(h.c.Close)
	return h
}

func (h *harness) resolveAll(t *testing.T, list []MediaItem) {
	t.Helper()
	for _, it := range list {
		h.prober.resolve(it.Source, true)
	}
	for i := range list {
		h.waitNotProbing(t, i)
	}
}

func (h *harness) waitState(t *testing.T, index int, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		got, _, ok := h.c.State(index)
		return ok && got == want
	}, 2*time.Second, time.Millisecond, "slot %d never reached %s", index, want)
}

func (h *harness) waitNotProbing(t *testing.T, index int) {
	t.Helper()
	require.Eventually(t, func() bool {
		got, _, ok := h.c.State(index)
		return ok && got != Probing
	}, 2*time.Second, time.Millisecond, "slot %d still probing", index)
}

func (h *harness) waitAdvances(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(h.host.advancesCopy()) >= n
	}, 2*time.Second, time.Millisecond)
}

var errDetached = errors.New("media element detached")
