package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showroom/internal/catalog"
	"showroom/internal/playback"
)

func TestProbeAllRespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	prober := playback.ProberFunc(func(_ context.Context, src string) playback.ProbeResult {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return playback.ProbeResult{Reachable: !strings.Contains(src, "bad"), Status: 200}
	})
	sources := []string{"/a", "/bad", "/c", "/d", "/e", "/f"}

	results, err := probeAll(context.Background(), prober, sources, 2)
	require.NoError(t, err)
	require.Len(t, results, len(sources))
	assert.False(t, results[1].Reachable)
	assert.True(t, results[5].Reachable)
	assert.LessOrEqual(t, peak.Load(), int32(2))

	var out bytes.Buffer
	failed, err := printResults(&out, sources, results)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)

	rows := map[string]string{}
	for _, line := range strings.Split(out.String(), "\n") {
		for _, key := range append([]string{"SOURCE"}, sources...) {
			if strings.Contains(line, " "+key+" ") {
				rows[key] = line
			}
		}
	}
	require.Len(t, rows, len(sources)+1, out.String())
	assert.Contains(t, rows["SOURCE"], "REACHABLE")
	assert.Contains(t, rows["/bad"], "false")
	assert.Contains(t, rows["/a"], "true")
	assert.Contains(t, rows["/a"], "200")
}

func TestReelSourcesAndSeed(t *testing.T) {
	dir := t.TempDir()
	reelPath := filepath.Join(dir, "reel.json")
	require.NoError(t, os.WriteFile(reelPath, []byte(`{"id":"r","items":[{"src":"/a.mp4"},{"src":"/b.mp4"}]}`), 0o644))
	srcs, err := reelSources(reelPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a.mp4", "/b.mp4"}, srcs)

	seedPath := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(seedPath, []byte(`[{"id":"r","items":[{"src":"/a.mp4"}]},{"id":"s","items":[]}]`), 0o644))
	store, err := catalog.NewMemoryStore()
	require.NoError(t, err)
	require.NoError(t, seedCatalog(context.Background(), store, seedPath))
	r, err := store.Reel(context.Background(), "r")
	require.NoError(t, err)
	assert.Len(t, r.Items, 1)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"id":"","items":[]}]`), 0o644))
	assert.ErrorIs(t, seedCatalog(context.Background(), store, bad), catalog.ErrInvalid)
}
