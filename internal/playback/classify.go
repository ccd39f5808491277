package playback

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
)

// MediaErrorCode mirrors the numeric code a browser media element reports
// in its error attribute.
type MediaErrorCode int

const (
	MediaErrAborted        MediaErrorCode = 1
	MediaErrNetwork        MediaErrorCode = 2
	MediaErrDecode         MediaErrorCode = 3
	MediaErrSrcUnsupported MediaErrorCode = 4
)

var (
	// ErrDecode can be wrapped by Resource implementations to report an
	// unplayable payload.
	ErrDecode = errors.New("media decode failed")
	// ErrUnsupported can be wrapped by Resource implementations to report a
	// format the runtime cannot play.
	ErrUnsupported = errors.New("media format not supported")
)

// ClassifyMediaError maps a native media error signal onto an ErrorKind.
// Unknown codes fall back to keyword matching on the message.
func ClassifyMediaError(code MediaErrorCode, message string) ErrorKind {
	switch code {
	case MediaErrAborted:
		return KindAborted
	case MediaErrNetwork:
		return KindNetwork
	case MediaErrDecode:
		return KindDecodeCorrupt
	case MediaErrSrcUnsupported:
		return KindUnsupported
	}
	return classifyMessage(message)
}

// ClassifyError maps an error returned by a Resource call onto an ErrorKind.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindNetwork
	}
	var detail *ErrorDetail
	if errors.As(err, &detail) {
		return detail.Kind
	}
	switch {
	case errors.Is(err, context.Canceled):
		return KindAborted
	case errors.Is(err, ErrDecode):
		return KindDecodeCorrupt
	case errors.Is(err, ErrUnsupported):
		return KindUnsupported
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindNetwork
	}
	return classifyMessage(err.Error())
}

func classifyMessage(message string) ErrorKind {
	msg := strings.ToLower(message)
	switch {
	case containsAny(msg, "abort", "interrupted", "cancel"):
		return KindAborted
	case containsAny(msg, "not supported", "unsupported", "no decoder", "missing plugin", "mime"):
		return KindUnsupported
	case containsAny(msg, "decode", "corrupt", "malformed", "demux", "codec"):
		return KindDecodeCorrupt
	default:
		// fetch failures are the common case for media that made it past the probe
		return KindNetwork
	}
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
