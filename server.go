/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"sync"
)

// Server ties the components together: the registry, the room directory,
// the router, and one lazily created game engine per room. All shared
// state lives here and is handed to session workers by reference.
type Server struct {
	cfg      *Config
	registry *Registry
	rooms    *Directory
	router   *Router

	mu      sync.Mutex
	engines map[string]*Engine
	tracked map[frameConn]struct{}

	listener net.Listener
	stopping chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewServer(cfg *Config) *Server {
	registry := NewRegistry()
	rooms := NewDirectory(cfg.defaultRoom)

	s := &Server{
		cfg:      cfg,
		registry: registry,
		rooms:    rooms,
		router:   NewRouter(cfg, registry, rooms),
		engines:  make(map[string]*Engine),
		tracked:  make(map[frameConn]struct{}),
		stopping: make(chan struct{}),
	}

	s.router.onEvict = s.afterDeparture

	return s
}

// Listen binds the game listener. A bind failure is fatal and surfaces to
// the process entry point.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", net.JoinHostPort(s.cfg.bind, strconv.Itoa(s.cfg.port)))
	if err != nil {
		return err
	}

	s.listener = listener
	return nil
}

// Addr reports the bound listener address, for tests and logs.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until Stop closes the listener. Connections
// over the configured maximum are told the server is full and closed
// without ever being registered.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopping:
				return nil
			default:
				return err
			}
		}

		select {
		case <-s.stopping:
			_ = conn.Close()
			return nil
		default:
		}

		fc := newTCPConn(conn, s.cfg.idleTimeout)

		if !s.admit(fc) {
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(fc)
			s.handleSession(fc)
		}()
	}
}

func (s *Server) untrack(fc frameConn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tracked, fc)
}

// admit enforces the connection cap and, on success, tracks the connection
// in one critical section. The tracked set holds every accepted connection
// from admission to session exit, so sockets that never complete the
// handshake still count against the maximum, and Stop can force-close
// them. Rejected connections receive a server_full frame before the close.
func (s *Server) admit(fc frameConn) bool {
	s.mu.Lock()
	if len(s.tracked) < s.cfg.maxPlayers {
		s.tracked[fc] = struct{}{}
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()

	logf(s.cfg, "FULL: Rejecting connection from %s", fc.RemoteAddr())

	data, err := json.Marshal(ServerFullMessage{
		Type:    "server_full",
		Message: "The server is full.",
	})
	if err == nil {
		_ = fc.WriteFrame(data)
	}
	_ = fc.Close()

	return false
}

// Stop closes the listener, force-closes every live connection to unblock
// its read loop, and waits for all session workers to finish their normal
// cleanup.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopping)

		if s.listener != nil {
			_ = s.listener.Close()
		}

		s.mu.Lock()
		for fc := range s.tracked {
			_ = fc.Close()
		}
		s.mu.Unlock()

		for _, c := range s.registry.All() {
			_ = c.fc.Close()
		}

		s.wg.Wait()
	})
}

// engine returns the room's engine, creating it on first use.
func (s *Server) engine(room string) *Engine {
	s.mu.Lock()
	defer s.mu.Unlock()

	engine, ok := s.engines[room]
	if !ok {
		engine = NewEngine(s.cfg.newDraw())
		s.engines[room] = engine
	}
	return engine
}

func (s *Server) engineIfExists(room string) *Engine {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.engines[room]
}

// Run is the process entry point behind the CLI: it binds the game
// listener, starts the web surface if enabled, and runs until the context
// is done or the accept loop fails.
func Run(ctx context.Context, cfg *Config) error {
	logf(cfg, "START: chamber v%s", releaseVersion)

	s := NewServer(cfg)
	if err := s.Listen(); err != nil {
		return err
	}

	logf(cfg, "SERVE: Game listener on %s", s.Addr())

	if cfg.web {
		stopWeb, err := startWeb(cfg, s)
		if err != nil {
			s.Stop()
			return err
		}
		defer stopWeb()
	}

	errs := make(chan error, 1)
	go func() {
		errs <- s.Serve()
	}()

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errs:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
		return nil
	}
}
