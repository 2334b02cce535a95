package main

import (
	"bufio"
	"bytes"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// frameConn is one bidirectional frame transport. The TCP implementation
// delimits frames with newlines; the websocket implementation maps one
// websocket message to one frame.
type frameConn interface {
	// ReadFrame blocks until one frame is available. It returns an error on
	// end-of-stream, read failure, or idle timeout.
	ReadFrame() ([]byte, error)

	// WriteFrame writes one frame. Safe for concurrent use.
	WriteFrame(data []byte) error

	Close() error

	RemoteAddr() string
}

type tcpConn struct {
	conn        net.Conn
	reader      *bufio.Reader
	idleTimeout time.Duration

	writeMu sync.Mutex
}

func newTCPConn(conn net.Conn, idleTimeout time.Duration) *tcpConn {
	return &tcpConn{
		conn:        conn,
		reader:      bufio.NewReader(conn),
		idleTimeout: idleTimeout,
	}
}

func (t *tcpConn) ReadFrame() ([]byte, error) {
	if t.idleTimeout > 0 {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.idleTimeout)); err != nil {
			return nil, err
		}
	}

	line, err := t.reader.ReadBytes('\n')
	if err != nil {
		// A final unterminated line still counts as a frame.
		if len(bytes.TrimSpace(line)) > 0 {
			return bytes.TrimSpace(line), nil
		}
		return nil, err
	}

	return bytes.TrimSpace(line), nil
}

func (t *tcpConn) WriteFrame(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, data...)
	buf = append(buf, '\n')

	_, err := t.conn.Write(buf)
	return err
}

func (t *tcpConn) Close() error {
	return t.conn.Close()
}

func (t *tcpConn) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

// wsConn adapts a websocket connection to the same frame protocol, so
// browser clients from the web surface share the session handler with TCP
// clients.
type wsConn struct {
	conn        *websocket.Conn
	idleTimeout time.Duration

	writeMu sync.Mutex
}

func newWSConn(conn *websocket.Conn, idleTimeout time.Duration) *wsConn {
	return &wsConn{
		conn:        conn,
		idleTimeout: idleTimeout,
	}
}

func (w *wsConn) ReadFrame() ([]byte, error) {
	// Clear any deadline inherited from the HTTP server when no idle
	// timeout is configured.
	deadline := time.Time{}
	if w.idleTimeout > 0 {
		deadline = time.Now().Add(w.idleTimeout)
	}
	if err := w.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	_, data, err := w.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	return bytes.TrimSpace(data), nil
}

func (w *wsConn) WriteFrame(data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

func (w *wsConn) RemoteAddr() string {
	return w.conn.RemoteAddr().String()
}

// Conn is one registered client connection: the frame transport plus the
// identity set at handshake. The display name never changes after
// registration; room membership is tracked by the Directory.
type Conn struct {
	id   uint64
	name string
	fc   frameConn
}

func (c *Conn) Name() string {
	return c.name
}
