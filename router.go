package main

import (
	"encoding/json"
	"fmt"
)

// Router serializes outbound frames and delivers them to one connection, a
// room, or everyone. Membership is snapshotted under the component locks
// and all writes happen outside them, so a slow or dead peer never blocks
// other deliveries or registry mutations.
type Router struct {
	cfg      *Config
	registry *Registry
	rooms    *Directory

	// onEvict, when set, runs after a dead peer has been removed from the
	// registry and its room. It receives the room the peer occupied.
	onEvict func(c *Conn, room string)
}

func NewRouter(cfg *Config, registry *Registry, rooms *Directory) *Router {
	return &Router{
		cfg:      cfg,
		registry: registry,
		rooms:    rooms,
	}
}

// SendTo writes one frame to a single connection. On write failure the
// connection is evicted from the registry and its room, and the caller
// receives ErrPeerUnreachable so it can stop that connection's read loop.
func (rt *Router) SendTo(c *Conn, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if err := c.fc.WriteFrame(data); err != nil {
		rt.evict(c, err)
		return fmt.Errorf("%w: %v", ErrPeerUnreachable, err)
	}

	return nil
}

// BroadcastRoom delivers a frame to every current member of the room
// except exclude. A failed write evicts that member but does not abort
// delivery to the rest.
func (rt *Router) BroadcastRoom(room string, msg any, exclude *Conn) {
	rt.deliver(rt.rooms.Members(room), msg, exclude)
}

// BroadcastAll delivers a frame to every registered connection except
// exclude, with the same partial-failure semantics as BroadcastRoom.
func (rt *Router) BroadcastAll(msg any, exclude *Conn) {
	rt.deliver(rt.registry.All(), msg, exclude)
}

func (rt *Router) deliver(targets []*Conn, msg any, exclude *Conn) {
	data, err := json.Marshal(msg)
	if err != nil {
		logf(rt.cfg, "ERROR: encoding frame: %v", err)
		return
	}

	for _, c := range targets {
		if c == exclude {
			continue
		}
		if err := c.fc.WriteFrame(data); err != nil {
			rt.evict(c, err)
		}
	}
}

func (rt *Router) evict(c *Conn, cause error) {
	room, wasInRoom := rt.rooms.Leave(c)
	rt.registry.Unregister(c.id)
	_ = c.fc.Close()

	logf(rt.cfg, "PART: Evicted %q (%s): %v", c.name, c.fc.RemoteAddr(), cause)

	if wasInRoom && rt.onEvict != nil {
		rt.onEvict(c, room)
	}
}
