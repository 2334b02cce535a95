package main

import (
	"sync"
)

// Registry owns the set of live connections. It is created per server
// instance and shared by reference with every session worker.
type Registry struct {
	mu     sync.Mutex
	nextID uint64
	conns  map[uint64]*Conn
	byName map[string]*Conn
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[uint64]*Conn),
		byName: make(map[string]*Conn),
	}
}

// Register records a new connection under the given display name and
// returns it with a unique id assigned. Display names are not globally
// unique; when two connections share a name, LookupByName keeps resolving
// to whichever registered first.
func (rg *Registry) Register(fc frameConn, name string) *Conn {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	rg.nextID++
	c := &Conn{
		id:   rg.nextID,
		name: name,
		fc:   fc,
	}

	rg.conns[c.id] = c
	if _, taken := rg.byName[name]; !taken {
		rg.byName[name] = c
	}

	return c
}

// Unregister removes a connection. Unknown ids are a no-op, since a
// disconnect and an eviction may race.
func (rg *Registry) Unregister(id uint64) {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	c, ok := rg.conns[id]
	if !ok {
		return
	}
	delete(rg.conns, id)

	if rg.byName[c.name] == c {
		delete(rg.byName, c.name)
		// Promote another connection with the same name, if any.
		for _, other := range rg.conns {
			if other.name == c.name {
				rg.byName[c.name] = other
				break
			}
		}
	}
}

func (rg *Registry) LookupByName(name string) (*Conn, bool) {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	c, ok := rg.byName[name]
	return c, ok
}

// All returns a defensive copy, so broadcast iteration never races with a
// concurrent Unregister.
func (rg *Registry) All() []*Conn {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	snapshot := make([]*Conn, 0, len(rg.conns))
	for _, c := range rg.conns {
		snapshot = append(snapshot, c)
	}
	return snapshot
}

func (rg *Registry) Count() int {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	return len(rg.conns)
}
