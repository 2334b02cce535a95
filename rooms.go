package main

import (
	"sync"
)

// Directory maps room names to their ordered membership. Member order is
// join order, which doubles as the turn order when a room hosts a round.
//
// Rooms are never deleted: a room whose last member leaves persists as an
// empty entry and still shows up in Names(). Rooms are cheap, and clients
// are free to filter empties for display.
type Directory struct {
	mu      sync.Mutex
	rooms   map[string][]*Conn
	names   []string         // creation order
	current map[*Conn]string // membership index, one room per connection
}

func NewDirectory(defaultRoom string) *Directory {
	d := &Directory{
		rooms:   make(map[string][]*Conn),
		current: make(map[*Conn]string),
	}
	d.EnsureRoom(defaultRoom)
	return d
}

// EnsureRoom creates an empty room if absent.
func (d *Directory) EnsureRoom(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.ensureLocked(name)
}

func (d *Directory) ensureLocked(name string) {
	if _, ok := d.rooms[name]; ok {
		return
	}
	d.rooms[name] = nil
	d.names = append(d.names, name)
}

// Join moves a connection into the named room, creating the room if
// needed. The removal from the previous room and the append to the new one
// happen under one lock, so a connection is never observed in two rooms,
// even against a concurrent disconnect. Returns the previous room, if any.
func (d *Directory) Join(c *Conn, room string) (previous string, moved bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	previous, moved = d.current[c]
	if moved {
		if previous == room {
			return "", false
		}
		d.rooms[previous] = removeMember(d.rooms[previous], c)
	}

	d.ensureLocked(room)
	d.rooms[room] = append(d.rooms[room], c)
	d.current[c] = room

	return previous, moved
}

// Leave removes a connection from whichever room holds it. Connections not
// in any room are a no-op.
func (d *Directory) Leave(c *Conn) (room string, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok = d.current[c]
	if !ok {
		return "", false
	}

	d.rooms[room] = removeMember(d.rooms[room], c)
	delete(d.current, c)

	return room, true
}

// RoomOf reports which room currently holds the connection.
func (d *Directory) RoomOf(c *Conn) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.current[c]
	return room, ok
}

// Members returns a snapshot of the room's membership in join order.
// Unknown rooms yield an empty snapshot.
func (d *Directory) Members(room string) []*Conn {
	d.mu.Lock()
	defer d.mu.Unlock()

	members := d.rooms[room]
	snapshot := make([]*Conn, len(members))
	copy(snapshot, members)
	return snapshot
}

// Names returns all room names in creation order, empty rooms included.
func (d *Directory) Names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	snapshot := make([]string, len(d.names))
	copy(snapshot, d.names)
	return snapshot
}

func removeMember(members []*Conn, c *Conn) []*Conn {
	dst := members[:0]
	for _, m := range members {
		if m == c {
			continue
		}
		dst = append(dst, m)
	}
	return dst
}
