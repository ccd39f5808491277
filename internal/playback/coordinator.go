package playback

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Options configures a Coordinator. Callbacks are delivered in order, never
// while the coordinator lock is held, so they may call back into it.
type Options struct {
	// AutoAdvance asks the host to move to the next slot when the active one
	// ends.
	AutoAdvance bool
	// Autoplay starts the first slot as soon as it is playable.
	Autoplay bool

	Prober  Prober
	Surface Surface
	// Fallback must be a pure function: it runs under the coordinator lock.
	Fallback FallbackFunc

	OnEvent   func(Event)
	OnAdvance func(index int)

	Logger  zerolog.Logger
	Metrics *Metrics
}

type slot struct {
	unit     *unit
	fallback *Fallback
}

// Coordinator owns one PlaybackUnit per media item and guarantees that at
// most one of them is Playing. It is the only caller of start, pause and
// reset on its units.
type Coordinator struct {
	opts Options
	log  zerolog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	slots  []*slot
	active int
	closed bool

	notes notifyQueue

	// ops holds resource signals raised while the lock was held. They run
	// before the lock is released.
	opsMu sync.Mutex
	ops   []func()
	busy  bool
}

// New builds a coordinator and starts probing every item.
func New(items []MediaItem, opts Options) *Coordinator {
	if opts.Fallback == nil {
		opts.Fallback = DefaultFallback
	}
	c := &Coordinator{
		opts:   opts,
		log:    opts.Logger.With().Str("component", "coordinator").Logger(),
		active: -1,
	}
	c.notes.log = c.log
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.exec(func() { c.rebuild(items) })
	return c
}

// SlideChanged makes index the active slot. Every other slot is paused and
// rewound before the new one is started, so two slots never play at once.
func (c *Coordinator) SlideChanged(index int) {
	c.exec(func() {
		if c.closed {
			return
		}
		if index < 0 || index >= len(c.slots) {
			c.log.Warn().Int("slot", index).Int("slots", len(c.slots)).Msg("slide change out of range")
			return
		}
		c.active = index
		for i, s := range c.slots {
			if i == index {
				continue
			}
			s.unit.pause()
			s.unit.reset()
		}
		target := c.slots[index].unit
		if target.state == Error {
			return
		}
		target.start()
	})
}

// Pause pauses the active slot. The slot stays active, so Resume picks it up
// where it stopped.
func (c *Coordinator) Pause() {
	c.exec(func() {
		if c.closed || c.active < 0 {
			return
		}
		c.slots[c.active].unit.pause()
	})
}

// Resume starts the active slot again. Like SlideChanged it leaves a slot in
// Error on its fallback.
func (c *Coordinator) Resume() {
	c.exec(func() {
		if c.closed || c.active < 0 {
			return
		}
		u := c.slots[c.active].unit
		if u.state == Error {
			return
		}
		u.start()
	})
}

// Replace tears down every unit and rebuilds the list. It is the only way
// to retry items whose units are in Error.
func (c *Coordinator) Replace(items []MediaItem) {
	c.exec(func() {
		if c.closed {
			return
		}
		c.destroyAll()
		c.rebuild(items)
	})
}

// Close destroys all units and cancels in-flight probes. No events are
// emitted for the destroyed units afterwards.
func (c *Coordinator) Close() {
	c.exec(func() {
		if c.closed {
			return
		}
		c.closed = true
		c.destroyAll()
		c.slots = nil
		c.active = -1
		c.cancel()
	})
}

// Active returns the active slot index.
func (c *Coordinator) Active() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active, c.active >= 0
}

// State returns the state of the unit at index.
func (c *Coordinator) State(index int) (State, *ErrorDetail, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.slots) {
		return Idle, nil, false
	}
	u := c.slots[index].unit
	return u.state, copyDetail(u.detail), true
}

// Snapshot copies the slot table.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{Active: c.active, Slots: make([]SlotSnapshot, len(c.slots))}
	for i, s := range c.slots {
		snap.Slots[i] = SlotSnapshot{
			Index:    i,
			Item:     s.unit.item,
			State:    s.unit.state,
			Err:      copyDetail(s.unit.detail),
			Fallback: copyFallback(s.fallback),
		}
	}
	return snap
}

// Len returns the number of slots.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

// exec runs fn under the lock and then delivers the callbacks it queued.
func (c *Coordinator) exec(fn func()) {
	c.mu.Lock()
	c.opsMu.Lock()
	c.busy = true
	c.opsMu.Unlock()
	fn()
	for op := c.nextOp(); op != nil; op = c.nextOp() {
		op()
	}
	c.mu.Unlock()
	c.notes.drain()
}

// post runs fn like exec unless the lock is currently held, in which case fn
// is queued for the holder. Resources may signal from inside Play or Mount.
func (c *Coordinator) post(fn func()) {
	c.opsMu.Lock()
	if c.busy {
		c.ops = append(c.ops, fn)
		c.opsMu.Unlock()
		return
	}
	c.opsMu.Unlock()
	c.exec(fn)
}

// nextOp pops a queued signal. It clears busy when the queue is empty so a
// later post cannot be stranded.
func (c *Coordinator) nextOp() func() {
	c.opsMu.Lock()
	defer c.opsMu.Unlock()
	if len(c.ops) == 0 {
		c.busy = false
		return nil
	}
	op := c.ops[0]
	c.ops[0] = nil
	c.ops = c.ops[1:]
	return op
}

func (c *Coordinator) rebuild(items []MediaItem) {
	items = NormalizeItems(items)
	c.slots = make([]*slot, len(items))
	c.active = -1
	for i, item := range items {
		u := &unit{
			index:   i,
			item:    item,
			state:   Idle,
			prober:  c.opts.Prober,
			surface: c.opts.Surface,
			exec:    c.exec,
			notify:  c.onTransition,
			log:     c.log.With().Int("slot", i).Str("key", item.Key).Logger(),
			metrics: c.opts.Metrics,
		}
		c.slots[i] = &slot{unit: u}
	}
	if len(c.slots) > 0 {
		c.active = 0
	}
	for _, s := range c.slots {
		s.unit.launch(c.ctx)
	}
	if c.opts.Autoplay && len(c.slots) > 0 {
		c.slots[0].unit.start()
	}
	c.log.Debug().Int("slots", len(c.slots)).Msg("slots rebuilt")
}

func (c *Coordinator) destroyAll() {
	for _, s := range c.slots {
		s.unit.destroy()
	}
}

// onTransition runs under the lock for every unit state change.
func (c *Coordinator) onTransition(u *unit) {
	if c.closed || u.index >= len(c.slots) || c.slots[u.index].unit != u {
		return
	}
	c.opts.Metrics.observeTransition(u.state, u.detail)
	ev := Event{Index: u.index, Key: u.item.Key, State: u.state, Err: copyDetail(u.detail)}
	if u.state == Error {
		ev.Fallback = c.unitError(u.index, *u.detail)
	}
	if c.opts.OnEvent != nil {
		onEvent := c.opts.OnEvent
		c.notes.push(func() { onEvent(ev) })
	}
	if u.state == Ended {
		c.unitEnded(u.index)
	}
}

// unitEnded requests an advance when the active slot finished naturally and
// a next slot exists. The request is sent even if the next slot is in Error.
func (c *Coordinator) unitEnded(index int) {
	if !c.opts.AutoAdvance || index != c.active || index+1 >= len(c.slots) {
		return
	}
	next := index + 1
	c.opts.Metrics.observeAdvance()
	c.log.Debug().Int("slot", index).Int("next", next).Msg("requesting advance")
	if c.opts.OnAdvance != nil {
		onAdvance := c.opts.OnAdvance
		c.notes.push(func() { onAdvance(next) })
	}
}

// unitError swaps the slot to its fallback. An error never triggers an
// advance on its own.
func (c *Coordinator) unitError(index int, detail ErrorDetail) *Fallback {
	s := c.slots[index]
	fb := c.renderFallback(s.unit.item, index, detail)
	s.fallback = &fb
	ev := c.log.Warn()
	if detail.Kind == KindAborted {
		ev = c.log.Debug()
	}
	ev.Int("slot", index).Str("kind", string(detail.Kind)).Str("detail", detail.Message).Msg("unit unplayable, showing fallback")
	return copyFallback(s.fallback)
}

func (c *Coordinator) renderFallback(item MediaItem, index int, detail ErrorDetail) (fb Fallback) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Err(fmt.Errorf("%v", r)).Int("slot", index).Msg("fallback renderer panicked")
			fb = DefaultFallback(item, index, detail)
		}
	}()
	return c.opts.Fallback(item, index, detail)
}

func copyDetail(d *ErrorDetail) *ErrorDetail {
	if d == nil {
		return nil
	}
	out := *d
	return &out
}

func copyFallback(f *Fallback) *Fallback {
	if f == nil {
		return nil
	}
	out := *f
	return &out
}
