package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showroom/internal/playback"
)

func TestClientOverWebsocket(t *testing.T) {
	m := newTestManager(playback.ProberFunc(func(context.Context, string) playback.ProbeResult {
		return playback.ProbeResult{Reachable: true}
	}))
	defer m.CloseAll()
	s := m.Create(Params{Items: reelItems(2)})

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(conn, zerolog.Nop())
		if err := s.Attach(c); err != nil {
			conn.Close()
			return
		}
		go c.WritePump()
		c.ReadPump(context.Background(), s.HandleInbound)
		s.Detach(c)
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer ws.Close()
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	readUntil := func(typ string) Outbound {
		t.Helper()
		for {
			var msg Outbound
			require.NoError(t, ws.ReadJSON(&msg))
			if msg.Type == typ {
				return msg
			}
		}
	}

	syncMsg := readUntil(TypeSync)
	require.NotNil(t, syncMsg.Snapshot)
	assert.Len(t, syncMsg.Snapshot.Slots, 2)

	require.NoError(t, ws.WriteJSON(Inbound{Type: SignalPing}))
	readUntil(TypePong)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, ws.WriteJSON(Inbound{Type: SignalSlide, Index: 1}))
	play := readUntil(TypeCommand)
	for play.Command != CmdPlay {
		play = readUntil(TypeCommand)
	}
	assert.Equal(t, 1, play.Index)

	require.NoError(t, ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return !s.Info().Connected }, 2*time.Second, time.Millisecond)
}

func TestClientSendAfterClose(t *testing.T) {
	c := &Client{send: make(chan []byte, 1), done: make(chan struct{}), log: zerolog.Nop()}
	assert.True(t, c.Send([]byte("a")))
	assert.False(t, c.Send([]byte("b")), "full buffer drops the client")
	select {
	case <-c.Done():
	default:
		t.Fatal("client should be closed")
	}
	assert.False(t, c.Send([]byte("c")))
}
