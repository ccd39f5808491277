package session

import (
	"showroom/internal/playback"
)

// Inbound message types sent by the browser. Pause and resume come from the
// viewer's own controls and apply to the active slot.
const (
	SignalSlide  = "slide"
	SignalEnded  = "ended"
	SignalError  = "error"
	SignalPause  = "pause"
	SignalResume = "resume"
	SignalPing   = "ping"
)

// Outbound message types sent to the browser.
const (
	TypeCommand = "command"
	TypeState   = "state"
	TypeAdvance = "advance"
	TypeSync    = "sync"
	TypePong    = "pong"
	TypeError   = "error"
)

// Commands the browser executes against its media elements.
const (
	CmdMount   = "mount"
	CmdPlay    = "play"
	CmdPause   = "pause"
	CmdReset   = "reset"
	CmdUnmount = "unmount"
)

// Presentation holds the element attributes the browser applies when it
// mounts a slot. Browsers only autoplay muted media.
type Presentation struct {
	Muted    bool `json:"muted"`
	Controls bool `json:"controls"`
}

// Inbound is a media or carousel signal reported by the browser. Mount echoes
// the mount id of the element that raised it; zero means the current mount.
type Inbound struct {
	Type    string `json:"type"`
	Index   int    `json:"index"`
	Mount   uint64 `json:"mount,omitempty"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type Outbound struct {
	Type         string              `json:"type"`
	Command      string              `json:"command,omitempty"`
	Index        int                 `json:"index"`
	Mount        uint64              `json:"mount,omitempty"`
	Item         *playback.MediaItem `json:"item,omitempty"`
	Presentation *Presentation       `json:"presentation,omitempty"`
	Event        *playback.Event     `json:"event,omitempty"`
	Snapshot     *playback.Snapshot  `json:"snapshot,omitempty"`
	Mounts       map[int]uint64      `json:"mounts,omitempty"`
	Message      string              `json:"message,omitempty"`
}
