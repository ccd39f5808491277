package playback

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// unit owns the lifecycle of one media resource. All methods except the
// probe goroutine run while the owning coordinator holds its lock.
type unit struct {
	index int
	item  MediaItem

	state  State
	detail *ErrorDetail

	// gen invalidates probe completions and resource signals issued before
	// the unit was destroyed.
	gen       uint64
	destroyed bool
	probed    bool
	pending   bool
	cancel    context.CancelFunc
	res       Resource

	prober  Prober
	surface Surface
	// exec runs fn under the coordinator lock.
	exec func(fn func())
	// post is exec for resource signals, which may arrive while the lock is
	// already held by this goroutine.
	post func(fn func())
	// notify is called after every state change.
	notify  func(u *unit)
	log     zerolog.Logger
	metrics *Metrics
}

func (u *unit) launch(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	u.cancel = cancel
	gen := u.gen
	u.transition(Probing)
	go func() {
		res := u.runProbe(ctx)
		u.exec(func() { u.probeDone(gen, res) })
	}()
}

func (u *unit) runProbe(ctx context.Context) (res ProbeResult) {
	defer func() {
		if r := recover(); r != nil {
			res = ProbeResult{Reason: fmt.Sprintf("probe panic: %v", r)}
		}
	}()
	if u.prober == nil {
		return ProbeResult{Reachable: true}
	}
	return u.prober.Probe(ctx, u.item.Source)
}

func (u *unit) probeDone(gen uint64, res ProbeResult) {
	if u.destroyed || gen != u.gen || u.state != Probing {
		return
	}
	u.cancel()
	u.metrics.observeProbe(res)
	if !res.Reachable {
		u.log.Debug().Str("src", u.item.Source).Str("reason", res.Reason).Msg("probe failed")
		u.pending = false
		u.fail(KindUnavailable, res.Reason)
		return
	}
	u.probed = true
	u.transition(Ready)
	if err := u.mount(); err != nil {
		u.pending = false
		u.fail(ClassifyError(err), err.Error())
		return
	}
	if u.pending {
		u.pending = false
		u.start()
	}
}

func (u *unit) mount() (err error) {
	if u.surface == nil {
		return fmt.Errorf("no surface: %w", ErrUnsupported)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mount panic: %v", r)
		}
	}()
	res, err := u.surface.Mount(u.index, u.item, unitSignals{u: u, gen: u.gen})
	if err != nil {
		return err
	}
	if res == nil {
		return fmt.Errorf("surface returned no resource: %w", ErrUnsupported)
	}
	u.res = res
	return nil
}

// start is a no-op while Playing or in Error. Before the probe has passed the
// intent is queued and replayed when the unit becomes Ready.
func (u *unit) start() {
	switch u.state {
	case Playing, Error:
		return
	case Probing:
		u.pending = true
		return
	case Idle:
		if !u.probed {
			u.pending = true
			return
		}
	}
	if u.res == nil {
		return
	}
	if u.state == Ended {
		if err := u.call(u.res.Reset); err != nil {
			u.fail(ClassifyError(err), err.Error())
			return
		}
	}
	if err := u.call(u.res.Play); err != nil {
		u.fail(ClassifyError(err), err.Error())
		return
	}
	u.transition(Playing)
}

func (u *unit) pause() {
	if u.state != Playing {
		return
	}
	if err := u.call(u.res.Pause); err != nil {
		u.fail(ClassifyError(err), err.Error())
		return
	}
	u.transition(Paused)
}

// reset stops and rewinds. Error is terminal, and a unit that has not been
// probed yet has nothing to rewind, so both only lose their queued start.
func (u *unit) reset() {
	u.pending = false
	switch u.state {
	case Ready, Playing, Paused, Ended:
	default:
		return
	}
	if err := u.call(u.res.Reset); err != nil {
		u.fail(ClassifyError(err), err.Error())
		return
	}
	u.transition(Idle)
}

func (u *unit) ended(gen uint64) {
	if u.destroyed || gen != u.gen || u.state != Playing {
		return
	}
	u.transition(Ended)
}

func (u *unit) failed(gen uint64, code MediaErrorCode, message string) {
	if u.destroyed || gen != u.gen || u.res == nil {
		return
	}
	switch u.state {
	case Error, Probing:
		return
	}
	u.fail(ClassifyMediaError(code, message), message)
}

func (u *unit) fail(kind ErrorKind, message string) {
	u.pending = false
	u.detail = &ErrorDetail{Kind: kind, Message: message}
	u.release()
	u.transition(Error)
}

// destroy releases everything without emitting events.
func (u *unit) destroy() {
	if u.destroyed {
		return
	}
	u.destroyed = true
	u.gen++
	u.pending = false
	if u.cancel != nil {
		u.cancel()
	}
	u.release()
}

func (u *unit) release() {
	if u.res == nil {
		return
	}
	if err := u.call(u.res.Close); err != nil {
		u.log.Debug().Err(err).Msg("close resource")
	}
	u.res = nil
}

func (u *unit) transition(next State) {
	if u.destroyed || (u.state == next && next != Error) {
		return
	}
	u.state = next
	if next != Error {
		u.detail = nil
	}
	if u.notify != nil {
		u.notify(u)
	}
}

// call shields the coordinator from panicking resource implementations.
func (u *unit) call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resource panic: %v", r)
		}
	}()
	return fn()
}

type unitSignals struct {
	u   *unit
	gen uint64
}

func (s unitSignals) Ended() {
	s.u.post(func() { s.u.ended(s.gen) })
}

func (s unitSignals) Failed(code MediaErrorCode, message string) {
	s.u.post(func() { s.u.failed(s.gen, code, message) })
}
