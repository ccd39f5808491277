package session

import (
	"sync"

	"showroom/internal/playback"
)

type mountEntry struct {
	id      uint64
	signals playback.Signals
}

// RemoteSurface mounts media elements in a browser by sending commands over
// send. send must not block: it is called while the coordinator holds its
// lock.
type RemoteSurface struct {
	send func(Outbound) error
	pres Presentation

	mu     sync.Mutex
	nextID uint64
	mounts map[int]mountEntry
}

func NewRemoteSurface(send func(Outbound) error, pres Presentation) *RemoteSurface {
	return &RemoteSurface{send: send, pres: pres, mounts: make(map[int]mountEntry)}
}

func (s *RemoteSurface) Mount(index int, item playback.MediaItem, signals playback.Signals) (playback.Resource, error) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.mounts[index] = mountEntry{id: id, signals: signals}
	s.mu.Unlock()

	pres := s.pres
	if err := s.send(Outbound{Type: TypeCommand, Command: CmdMount, Index: index, Mount: id, Item: &item, Presentation: &pres}); err != nil {
		s.forget(index, id)
		return nil, err
	}
	return &remoteResource{surface: s, index: index, mount: id}, nil
}

// Signals returns the signal sink of the element currently mounted at index.
// Signals from an element that has since been unmounted or replaced are
// reported as missing.
func (s *RemoteSurface) Signals(index int, mount uint64) (playback.Signals, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.mounts[index]
	if !ok || (mount != 0 && mount != entry.id) {
		return nil, false
	}
	return entry.signals, true
}

// Mounts returns the current mount id per slot.
func (s *RemoteSurface) Mounts() map[int]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]uint64, len(s.mounts))
	for index, entry := range s.mounts {
		out[index] = entry.id
	}
	return out
}

func (s *RemoteSurface) forget(index int, id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.mounts[index]; ok && entry.id == id {
		delete(s.mounts, index)
		return true
	}
	return false
}

type remoteResource struct {
	surface *RemoteSurface
	index   int
	mount   uint64
}

func (r *remoteResource) command(cmd string) error {
	return r.surface.send(Outbound{Type: TypeCommand, Command: cmd, Index: r.index, Mount: r.mount})
}

func (r *remoteResource) Play() error  { return r.command(CmdPlay) }
func (r *remoteResource) Pause() error { return r.command(CmdPause) }
func (r *remoteResource) Reset() error { return r.command(CmdReset) }

func (r *remoteResource) Close() error {
	if !r.surface.forget(r.index, r.mount) {
		return nil
	}
	return r.command(CmdUnmount)
}
