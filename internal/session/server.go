//////////////////////////////////////////////////////////////////////////////
//
// Point-to-point producer session over WebSocket
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package session

import (
	"context"
	stdlog "log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"golang.org/x/net/netutil"

	"github.com/lanikai/avconsumer/internal/logging"
)

var log = logging.DefaultLogger.WithTag("session")

const (
	DefaultAddr = ":8700"
	DefaultPath = "/video"

	// Largest accepted buffer plus an envelope header.
	DefaultMaxMessageSize = 4*1024*1024 + 12
)

// Handler receives each binary message in arrival order. It runs on the
// connection's read goroutine; buf is only valid during the call.
type Handler func(buf []byte)

type Config struct {
	Addr           string
	Path           string
	MaxMessageSize int64

	// Called on the connection goroutine before the first message is
	// delivered, and after the last.
	OnConnect    func(id string)
	OnDisconnect func(id string, err error)
}

// Server accepts a single producer at a time. Each binary WebSocket message
// is one raw buffer.
type Server struct {
	cfg      Config
	handler  Handler
	upgrader websocket.Upgrader

	mu      sync.Mutex
	conn    *websocket.Conn
	closing bool
}

func NewServer(cfg Config, handler Handler) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Server{
		cfg:     cfg,
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   64 * 1024,
			HandshakeTimeout: 5 * time.Second,
		},
	}
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", s.cfg.Addr)
	}
	return s.Serve(ctx, l)
}

// Serve accepts producer connections on l until ctx is done. Only one
// connection is accepted at a time; further producers wait in the listen
// backlog until the current one disconnects.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	router := http.NewServeMux()
	router.HandleFunc(s.cfg.Path, s.handleWebsocket)
	server := &http.Server{
		Handler:  router,
		ErrorLog: stdlog.New(log.Writer(logging.Warn), "", 0),
	}

	log.Info("Listening for producer on ws://%s%s", l.Addr(), s.cfg.Path)

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(netutil.LimitListener(l, 1))
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	// Shutdown does not track hijacked connections.
	s.mu.Lock()
	s.closing = true
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("Shutdown: %v", err)
	}
	<-errc
	return nil
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrade: %v", err)
		return
	}
	defer ws.Close()

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return
	}
	s.conn = ws
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}()

	id := uuid.New().String()
	log.Info("Producer %s connected from %s", id, r.RemoteAddr)
	if s.cfg.OnConnect != nil {
		s.cfg.OnConnect(id)
	}

	n, err := s.readMessages(ws)
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		err = nil
	}
	if err != nil {
		log.Warn("Producer %s: %v", id, err)
	}
	log.Info("Producer %s disconnected after %d buffers", id, n)
	if s.cfg.OnDisconnect != nil {
		s.cfg.OnDisconnect(id, err)
	}
}

func (s *Server) readMessages(ws *websocket.Conn) (n int, err error) {
	ws.SetReadLimit(s.cfg.MaxMessageSize)
	for {
		kind, data, err := ws.ReadMessage()
		if err != nil {
			return n, err
		}
		switch kind {
		case websocket.BinaryMessage:
			n++
			s.handler(data)
		default:
			log.Warn("Ignoring non-binary message (%d bytes)", len(data))
		}
	}
}
