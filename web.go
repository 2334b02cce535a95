package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveVersion(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("chamber v" + releaseVersion + "\n"))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Version page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			r.RemoteAddr,
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// statusReply is the JSON shape of the /status endpoint.
type statusReply struct {
	Players    int                 `json:"players"`
	MaxPlayers int                 `json:"max_players"`
	Rooms      map[string][]string `json:"rooms"`
}

func serveStatus(cfg *Config, s *Server, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		reply := statusReply{
			Players:    s.registry.Count(),
			MaxPlayers: cfg.maxPlayers,
			Rooms:      make(map[string][]string),
		}
		for _, room := range s.rooms.Names() {
			names := []string{}
			for _, m := range s.rooms.Members(room) {
				names = append(names, m.name)
			}
			reply.Rooms[room] = names
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		securityHeaders(cfg, w)

		data, err := json.MarshalIndent(reply, "", "  ")
		if err != nil {
			errs <- err

			return
		}

		written, err := w.Write(append(data, '\n'))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Status page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			r.RemoteAddr,
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// serveJoinQR renders a PNG QR code of the game listener address, so
// players on the same LAN can grab host:port with a camera instead of
// typing it into the login prompt.
func serveJoinQR(cfg *Config, s *Server) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		host := cfg.bind
		if host == "0.0.0.0" || host == "::" {
			if h, _, err := net.SplitHostPort(r.Host); err == nil && h != "" {
				host = h
			}
		}

		_, port, err := net.SplitHostPort(s.Addr().String())
		if err != nil {
			port = strconv.Itoa(cfg.port)
		}

		const qrSize = 320
		png, err := qrcode.Encode(net.JoinHostPort(host, port), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveWS bridges websocket clients into the same session handler the TCP
// listener uses: the first message is the identity handshake, every later
// message is one frame. The connection cap applies here too.
func serveWS(cfg *Config, s *Server) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		fc := newWSConn(conn, cfg.idleTimeout)

		if !s.admit(fc) {
			return
		}

		defer s.untrack(fc)
		s.handleSession(fc)
	}
}

// startWeb brings up the operational web surface and returns its shutdown
// func.
func startWeb(cfg *Config, s *Server) (stop func(), err error) {
	mux := httprouter.New()

	errs := make(chan error, 64)

	mux.GET("/healthz", serveHealthCheck(cfg, errs))

	mux.GET("/version", serveVersion(cfg, errs))

	mux.GET("/status", serveStatus(cfg, s, errs))

	mux.GET("/qr", serveJoinQR(cfg, s))

	mux.GET("/ws", serveWS(cfg, s))

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	go func() {
		for err := range errs {
			logf(cfg, "ERROR: %v", err)
		}
	}()

	listener, err := net.Listen("tcp", net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.webPort)))
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Handler:           mux,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	go func() {
		var err error
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			logf(cfg, "SERVE: Web surface on %s://%s/", cfg.scheme(), listener.Addr())
			err = srv.ServeTLS(listener, cfg.tlsCert, cfg.tlsKey)
		} else {
			logf(cfg, "SERVE: Web surface on %s://%s/", cfg.scheme(), listener.Addr())
			err = srv.Serve(listener)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("%s | ERROR: %v\n", time.Now().Format(logDate), err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}
