package main

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
)

// mockFrameConn implements frameConn for testing, with injectable write
// failures.
type mockFrameConn struct {
	mu       sync.Mutex
	written  [][]byte
	writeErr error
	closed   bool

	readChan chan []byte
}

func newMockFrameConn() *mockFrameConn {
	return &mockFrameConn{
		readChan: make(chan []byte, 10),
	}
}

func (m *mockFrameConn) ReadFrame() ([]byte, error) {
	data, ok := <-m.readChan
	if !ok {
		return nil, io.EOF
	}
	return data, nil
}

func (m *mockFrameConn) WriteFrame(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeErr != nil {
		return m.writeErr
	}
	m.written = append(m.written, data)
	return nil
}

func (m *mockFrameConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

func (m *mockFrameConn) RemoteAddr() string {
	return "mock"
}

func (m *mockFrameConn) writtenFrames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([][]byte, len(m.written))
	copy(result, m.written)
	return result
}

func (m *mockFrameConn) setWriteErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writeErr = err
}

func newTestRouter() (*Router, *Registry, *Directory) {
	cfg := &Config{defaultRoom: "general"}
	registry := NewRegistry()
	rooms := NewDirectory(cfg.defaultRoom)
	return NewRouter(cfg, registry, rooms), registry, rooms
}

func TestSendToDeliversFrame(t *testing.T) {
	router, registry, _ := newTestRouter()

	fc := newMockFrameConn()
	c := registry.Register(fc, "a")

	if err := router.SendTo(c, NoticeMessage{Type: "notice", Message: "hi"}); err != nil {
		t.Fatalf("SendTo: %v", err)
	}

	frames := fc.writtenFrames()
	if len(frames) != 1 {
		t.Fatalf("wrote %d frames, want 1", len(frames))
	}

	var msg NoticeMessage
	if err := json.Unmarshal(frames[0], &msg); err != nil {
		t.Fatalf("decoding written frame: %v", err)
	}
	if msg.Type != "notice" || msg.Message != "hi" {
		t.Errorf("decoded %+v", msg)
	}
}

func TestSendToFailureEvicts(t *testing.T) {
	router, registry, rooms := newTestRouter()

	fc := newMockFrameConn()
	fc.setWriteErr(errors.New("broken pipe"))
	c := registry.Register(fc, "a")
	rooms.Join(c, "general")

	err := router.SendTo(c, NoticeMessage{Type: "notice"})
	if !errors.Is(err, ErrPeerUnreachable) {
		t.Fatalf("SendTo error = %v, want ErrPeerUnreachable", err)
	}

	if _, ok := registry.LookupByName("a"); ok {
		t.Error("failed peer still registered")
	}
	if len(rooms.Members("general")) != 0 {
		t.Error("failed peer still in room")
	}
	if !fc.closed {
		t.Error("failed peer's connection not closed")
	}
}

func TestBroadcastRoomIsolatesFailures(t *testing.T) {
	router, registry, rooms := newTestRouter()

	good1 := newMockFrameConn()
	bad := newMockFrameConn()
	good2 := newMockFrameConn()

	a := registry.Register(good1, "a")
	b := registry.Register(bad, "b")
	c := registry.Register(good2, "c")
	for _, conn := range []*Conn{a, b, c} {
		rooms.Join(conn, "general")
	}

	bad.setWriteErr(errors.New("broken pipe"))

	var evicted []string
	router.onEvict = func(conn *Conn, room string) {
		evicted = append(evicted, conn.name+"/"+room)
	}

	router.BroadcastRoom("general", ChatMessage{Type: "chat", Sender: "a", Text: "hi"}, nil)

	if len(good1.writtenFrames()) != 1 || len(good2.writtenFrames()) != 1 {
		t.Error("surviving members did not all receive the frame")
	}
	if _, ok := registry.LookupByName("b"); ok {
		t.Error("failing member still registered")
	}
	if members := rooms.Members("general"); len(members) != 2 {
		t.Errorf("room has %d members, want 2", len(members))
	}
	if len(evicted) != 1 || evicted[0] != "b/general" {
		t.Errorf("evictions = %v, want [b/general]", evicted)
	}
}

func TestBroadcastRoomExcludesSender(t *testing.T) {
	router, registry, rooms := newTestRouter()

	fcA := newMockFrameConn()
	fcB := newMockFrameConn()
	a := registry.Register(fcA, "a")
	b := registry.Register(fcB, "b")
	rooms.Join(a, "general")
	rooms.Join(b, "general")

	router.BroadcastRoom("general", NoticeMessage{Type: "notice"}, a)

	if len(fcA.writtenFrames()) != 0 {
		t.Error("excluded member received the frame")
	}
	if len(fcB.writtenFrames()) != 1 {
		t.Error("other member did not receive the frame")
	}
}

func TestBroadcastAllReachesEveryRoom(t *testing.T) {
	router, registry, rooms := newTestRouter()

	fcA := newMockFrameConn()
	fcB := newMockFrameConn()
	a := registry.Register(fcA, "a")
	b := registry.Register(fcB, "b")
	rooms.Join(a, "general")
	rooms.Join(b, "lounge")

	router.BroadcastAll(NoticeMessage{Type: "notice"}, nil)

	if len(fcA.writtenFrames()) != 1 || len(fcB.writtenFrames()) != 1 {
		t.Error("broadcast did not reach members of all rooms")
	}
}
