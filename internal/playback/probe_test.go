package playback

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProber_Head(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		if r.URL.Path == "/missing.mp4" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p, err := NewHTTPProber(srv.Client(), "")
	require.NoError(t, err)

	res := p.Probe(context.Background(), srv.URL+"/clip.mp4")
	assert.True(t, res.Reachable)
	assert.Equal(t, http.StatusOK, res.Status)

	res = p.Probe(context.Background(), srv.URL+"/missing.mp4")
	assert.False(t, res.Reachable)
	assert.Equal(t, "status 404", res.Reason)
	assert.Equal(t, http.StatusNotFound, res.Status)
}

func TestHTTPProber_RangedGetWhenHeadRefused(t *testing.T) {
	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		gotRange = r.Header.Get("Range")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte{0})
	}))
	defer srv.Close()

	p, err := NewHTTPProber(srv.Client(), "")
	require.NoError(t, err)
	res := p.Probe(context.Background(), srv.URL+"/clip.mp4")
	assert.True(t, res.Reachable)
	assert.Equal(t, http.StatusPartialContent, res.Status)
	assert.Equal(t, "bytes=0-0", gotRange)
}

func TestHTTPProber_RelativeSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/media/clip.mp4" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p, err := NewHTTPProber(srv.Client(), srv.URL+"/media/")
	require.NoError(t, err)
	assert.True(t, p.Probe(context.Background(), "clip.mp4").Reachable)

	bare, err := NewHTTPProber(nil, "")
	require.NoError(t, err)
	res := bare.Probe(context.Background(), "clip.mp4")
	assert.False(t, res.Reachable)
	assert.Equal(t, "relative source without base url", res.Reason)
}

func TestHTTPProber_LocalFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(file, []byte("ftyp"), 0o644))

	p, err := NewHTTPProber(nil, "")
	require.NoError(t, err)

	assert.True(t, p.Probe(context.Background(), file).Reachable)
	assert.True(t, p.Probe(context.Background(), "file://"+file).Reachable)
	assert.False(t, p.Probe(context.Background(), filepath.Join(dir, "nope.mp4")).Reachable)

	res := p.Probe(context.Background(), dir)
	assert.False(t, res.Reachable)
	assert.Equal(t, "source is a directory", res.Reason)
}

func TestHTTPProber_Rejects(t *testing.T) {
	p, err := NewHTTPProber(nil, "")
	require.NoError(t, err)

	assert.Equal(t, "empty source", p.Probe(context.Background(), "  ").Reason)
	assert.Equal(t, "unsupported scheme rtmp", p.Probe(context.Background(), "rtmp://live.example.com/a").Reason)
}

func TestHTTPProber_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p, err := NewHTTPProber(srv.Client(), "")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := p.Probe(ctx, srv.URL+"/clip.mp4")
	assert.False(t, res.Reachable)
	assert.Contains(t, res.Reason, "context canceled")
}
