package playback

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// notifyQueue delivers host callbacks one at a time, in the order they were
// pushed. Whoever calls drain first delivers everything queued, including
// callbacks pushed while it is delivering, so a host callback may call back
// into the coordinator without deadlocking.
type notifyQueue struct {
	mu       sync.Mutex
	pending  []func()
	draining bool
	log      zerolog.Logger
}

func (q *notifyQueue) push(fns ...func()) {
	if len(fns) == 0 {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, fns...)
	q.mu.Unlock()
}

func (q *notifyQueue) drain() {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true
	for len(q.pending) > 0 {
		next := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()
		q.run(next)
		q.mu.Lock()
	}
	q.draining = false
	q.mu.Unlock()
}

func (q *notifyQueue) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error().Err(fmt.Errorf("%v", r)).Msg("host callback panicked")
		}
	}()
	fn()
}
