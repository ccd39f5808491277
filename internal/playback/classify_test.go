package playback

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMediaError(t *testing.T) {
	cases := []struct {
		code MediaErrorCode
		msg  string
		want ErrorKind
	}{
		{MediaErrAborted, "", KindAborted},
		{MediaErrNetwork, "", KindNetwork},
		{MediaErrDecode, "", KindDecodeCorrupt},
		{MediaErrSrcUnsupported, "", KindUnsupported},
		{0, "PIPELINE_ERROR_DECODE: corrupt frame", KindDecodeCorrupt},
		{0, "Format not supported by this browser", KindUnsupported},
		{0, "playback interrupted by user", KindAborted},
		{0, "connection reset by peer", KindNetwork},
		{9, "", KindNetwork},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyMediaError(tc.code, tc.msg), "code=%d msg=%q", tc.code, tc.msg)
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNetwork},
		{"detail", fmt.Errorf("wrapped: %w", &ErrorDetail{Kind: KindUnavailable}), KindUnavailable},
		{"canceled", fmt.Errorf("play: %w", context.Canceled), KindAborted},
		{"decode sentinel", fmt.Errorf("frame 12: %w", ErrDecode), KindDecodeCorrupt},
		{"unsupported sentinel", ErrUnsupported, KindUnsupported},
		{"url error", &url.Error{Op: "Get", URL: "https://cdn.example.com/a.mp4", Err: errors.New("unsupported protocol")}, KindNetwork},
		{"keyword decode", errors.New("demuxer failed"), KindDecodeCorrupt},
		{"keyword mime", errors.New("bad MIME type video/x-foo"), KindUnsupported},
		{"unknown", errors.New("boom"), KindNetwork},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyError(tc.err))
		})
	}
}
