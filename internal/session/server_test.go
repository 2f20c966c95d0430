package session

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu          sync.Mutex
	buffers     [][]byte
	connects    []string
	disconnects chan error
}

func newRecorder() *recorder {
	return &recorder{disconnects: make(chan error, 8)}
}

func (r *recorder) handle(buf []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffers = append(r.buffers, append([]byte(nil), buf...))
}

func (r *recorder) snapshot() ([][]byte, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.buffers...), append([]string(nil), r.connects...)
}

func startServer(t *testing.T, cfg Config, r *recorder) (url string, stop func() error) {
	cfg.OnConnect = func(id string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.connects = append(r.connects, id)
	}
	cfg.OnDisconnect = func(id string, err error) {
		r.disconnects <- err
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- NewServer(cfg, r.handle).Serve(ctx, l)
	}()

	return "ws://" + l.Addr().String() + DefaultPath, func() error {
		cancel()
		select {
		case err := <-errc:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
			return nil
		}
	}
}

func waitDisconnect(t *testing.T, r *recorder) error {
	select {
	case err := <-r.disconnects:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("producer did not disconnect")
		return nil
	}
}

func TestDeliversBinaryMessagesInOrder(t *testing.T) {
	r := newRecorder()
	url, stop := startServer(t, Config{}, r)

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("hello")))
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte{4, 5}))
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte{6}))
	require.NoError(t, ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	assert.NoError(t, waitDisconnect(t, r))
	ws.Close()

	buffers, connects := r.snapshot()
	assert.Equal(t, [][]byte{{1, 2, 3}, {4, 5}, {6}}, buffers)
	require.Len(t, connects, 1)
	_, err = uuid.Parse(connects[0])
	assert.NoError(t, err)

	assert.NoError(t, stop())
}

func TestSingleProducer(t *testing.T) {
	r := newRecorder()
	url, stop := startServer(t, Config{}, r)
	defer stop()

	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	dialer := &websocket.Dialer{HandshakeTimeout: 200 * time.Millisecond}
	_, _, err = dialer.Dial(url, nil)
	assert.Error(t, err, "second producer must not be accepted")

	first.Close()
	waitDisconnect(t, r)

	second, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.WriteMessage(websocket.BinaryMessage, []byte{9}))

	assert.Eventually(t, func() bool {
		buffers, _ := r.snapshot()
		return len(buffers) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestOversizedMessageDisconnects(t *testing.T) {
	r := newRecorder()
	url, stop := startServer(t, Config{MaxMessageSize: 16}, r)
	defer stop()

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, make([]byte, 64)))
	assert.Error(t, waitDisconnect(t, r))

	buffers, _ := r.snapshot()
	assert.Empty(t, buffers)
}

func TestShutdownClosesProducer(t *testing.T) {
	r := newRecorder()
	url, stop := startServer(t, Config{}, r)

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	assert.Eventually(t, func() bool {
		_, connects := r.snapshot()
		return len(connects) == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.NoError(t, stop())

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = ws.ReadMessage()
	assert.Error(t, err)
}
