package playback

// Signals is handed to a Resource when it is mounted. Both methods may be
// called from any goroutine, including from inside Mount or a Resource
// method. They are serialized onto the coordinator.
type Signals interface {
	// Ended reports natural completion of playback.
	Ended()
	// Failed reports a fault using the resource's native error code.
	Failed(code MediaErrorCode, message string)
}

// Resource is one mounted media element. Every method is invoked from the
// coordinator's serial queue.
type Resource interface {
	Play() error
	Pause() error
	// Reset stops playback and rewinds to the start.
	Reset() error
	Close() error
}

// Surface mounts one Resource per slot.
type Surface interface {
	Mount(index int, item MediaItem, signals Signals) (Resource, error)
}
