package main

import (
	"errors"
	"fmt"
	"strings"
)

// handleSession runs one connection's worker: the identity handshake, then
// the frame dispatch loop, then cleanup. It returns when the peer
// disconnects, the read times out, or the server force-closes the
// connection during shutdown.
func (s *Server) handleSession(fc frameConn) {
	line, err := fc.ReadFrame()
	if err != nil {
		_ = fc.Close()
		return
	}

	name := strings.TrimSpace(string(line))
	if name == "" {
		_ = fc.Close()
		return
	}

	c := s.registry.Register(fc, name)
	s.rooms.Join(c, s.cfg.defaultRoom)

	logf(s.cfg, "JOIN: %q connected from %s", name, fc.RemoteAddr())

	s.router.BroadcastRoom(s.cfg.defaultRoom, NoticeMessage{
		Type:    "notice",
		Message: fmt.Sprintf("%s has joined %s", name, s.cfg.defaultRoom),
	}, c)
	s.broadcastRoster(s.cfg.defaultRoom)

	for {
		data, err := fc.ReadFrame()
		if err != nil {
			break
		}
		if len(data) == 0 {
			continue
		}

		frame, err := decodeClientFrame(data)
		if err != nil {
			logf(s.cfg, "ERROR: Dropping frame from %q: %v", name, err)
			continue
		}

		s.dispatch(c, frame)
	}

	s.dropConn(c, "disconnected")
}

func (s *Server) dispatch(c *Conn, frame ClientFrame) {
	switch frame.Type {
	case "chat":
		s.handleChat(c, frame)
	case "join_room":
		s.handleJoinRoom(c, frame)
	case "list_rooms":
		_ = s.router.SendTo(c, RoomListMessage{
			Type:  "room_list",
			Rooms: s.rooms.Names(),
		})
	case "direct_message":
		s.handleDirectMessage(c, frame)
	case "start_game":
		s.handleStartGame(c)
	case "fire":
		s.handleFire(c)
	default:
		// ignore unknown types
		logf(s.cfg, "ERROR: Ignoring unknown frame type %q from %q", frame.Type, c.name)
	}
}

func (s *Server) handleChat(c *Conn, frame ClientFrame) {
	room, ok := s.rooms.RoomOf(c)
	if !ok {
		return
	}

	logf(s.cfg, "CHAT: [%s] %s: %s", room, c.name, frame.Text)

	s.router.BroadcastRoom(room, ChatMessage{
		Type:   "chat",
		Sender: c.name,
		Text:   frame.Text,
	}, nil)
}

func (s *Server) handleJoinRoom(c *Conn, frame ClientFrame) {
	room := strings.TrimSpace(frame.Room)
	if room == "" {
		_ = s.router.SendTo(c, NoticeMessage{
			Type:    "notice",
			Message: "Room name must not be empty.",
		})
		return
	}

	previous, moved := s.rooms.Join(c, room)
	if !moved && previous == "" {
		// Already a member; treat as a roster refresh.
		s.sendRosterTo(c, room)
		return
	}

	logf(s.cfg, "JOIN: %q moved from %q to %q", c.name, previous, room)

	if moved {
		s.broadcastRoster(previous)
	}

	s.router.BroadcastRoom(room, NoticeMessage{
		Type:    "notice",
		Message: fmt.Sprintf("%s has joined %s", c.name, room),
	}, c)
	s.broadcastRoster(room)
}

func (s *Server) handleDirectMessage(c *Conn, frame ClientFrame) {
	target, ok := s.registry.LookupByName(frame.Target)
	if !ok {
		// Unknown targets are dropped silently; the sender's session is
		// unaffected.
		logf(s.cfg, "CHAT: Dropping direct message from %q to unknown %q", c.name, frame.Target)
		return
	}

	_ = s.router.SendTo(target, ChatMessage{
		Type:   "chat",
		Sender: c.name,
		Text:   frame.Text,
	})
}

func (s *Server) handleStartGame(c *Conn) {
	room, ok := s.rooms.RoomOf(c)
	if !ok {
		return
	}

	members := s.rooms.Members(room)
	participants := make([]Participant, 0, len(members))
	for _, m := range members {
		participants = append(participants, Participant{Name: m.name, Conn: m})
	}

	engine := s.engine(room)
	if err := engine.StartRound(participants); err != nil {
		message := "A round is already in progress."
		if errors.Is(err, ErrInsufficientPlayers) {
			message = "At least 2 players are needed to start a round."
		}
		_ = s.router.SendTo(c, NoticeMessage{
			Type:    "notice",
			Message: message,
		})
		return
	}

	logf(s.cfg, "GAME: Round started in %q with %d players", room, len(participants))

	current, _ := engine.Current()
	s.router.BroadcastRoom(room, NoticeMessage{
		Type:    "notice",
		Message: fmt.Sprintf("The round has started. %s goes first.", current.Name),
	}, nil)
	s.broadcastRoster(room)
}

func (s *Server) handleFire(c *Conn) {
	room, ok := s.rooms.RoomOf(c)
	if !ok {
		return
	}

	engine := s.engineIfExists(room)
	if engine == nil {
		_ = s.router.SendTo(c, NoticeMessage{
			Type:    "notice",
			Message: "No round is in progress.",
		})
		return
	}

	result, err := engine.FireAs(c.name)
	if errors.Is(err, ErrOutOfTurn) {
		_ = s.router.SendTo(c, NoticeMessage{
			Type:    "notice",
			Message: fmt.Sprintf("It is %s's turn, not yours.", result.Actor),
		})
		return
	}
	if err != nil {
		_ = s.router.SendTo(c, NoticeMessage{
			Type:    "notice",
			Message: "No round is in progress.",
		})
		return
	}

	logf(s.cfg, "GAME: %q pulled the trigger in %q (fired: %t)", result.Actor, room, result.Fired)

	s.router.BroadcastRoom(room, ShotFiredMessage{
		Type:       "shot_fired",
		Player:     result.Actor,
		Fired:      result.Fired,
		Eliminated: result.Eliminated,
		Winner:     result.Winner,
	}, nil)

	if result.Eliminated {
		s.router.BroadcastRoom(room, RosterUpdateMessage{
			Type:    "roster_update",
			Room:    room,
			Players: engine.Remaining(),
		}, nil)
	}

	if result.Winner != "" {
		logf(s.cfg, "GAME: %q won the round in %q", result.Winner, room)
	}
}

// dropConn performs the normal disconnect cleanup path: leave the room,
// unregister, close, and tell the departed room. It is idempotent with
// respect to a concurrent router eviction.
func (s *Server) dropConn(c *Conn, reason string) {
	room, wasInRoom := s.rooms.Leave(c)
	s.registry.Unregister(c.id)
	_ = c.fc.Close()

	if !wasInRoom {
		return
	}

	logf(s.cfg, "PART: %q %s", c.name, reason)

	s.afterDeparture(c, room)
}

// afterDeparture runs once a connection is out of the registry and its
// room: the room's round (if any) loses the participant, and the remaining
// members get a fresh roster.
func (s *Server) afterDeparture(c *Conn, room string) {
	if engine := s.engineIfExists(room); engine != nil {
		if winner, removed := engine.RemoveParticipant(c.name); removed && winner != "" {
			s.router.BroadcastRoom(room, NoticeMessage{
				Type:    "notice",
				Message: fmt.Sprintf("%s wins the round by default.", winner),
			}, nil)
		}
	}

	s.router.BroadcastRoom(room, NoticeMessage{
		Type:    "notice",
		Message: fmt.Sprintf("%s has left %s", c.name, room),
	}, nil)
	s.broadcastRoster(room)
}

func (s *Server) rosterMessage(room string) RosterUpdateMessage {
	members := s.rooms.Members(room)
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.name)
	}

	return RosterUpdateMessage{
		Type:    "roster_update",
		Room:    room,
		Players: names,
	}
}

func (s *Server) broadcastRoster(room string) {
	s.router.BroadcastRoom(room, s.rosterMessage(room), nil)
}

func (s *Server) sendRosterTo(c *Conn, room string) {
	_ = s.router.SendTo(c, s.rosterMessage(room))
}
