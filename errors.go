/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"log"
	"time"
)

var (
	// ErrPeerUnreachable is returned by direct sends when the write to the
	// peer failed. The peer has already been evicted by the time it is seen.
	ErrPeerUnreachable = errors.New("peer unreachable")

	// ErrMalformedFrame is returned when a frame cannot be decoded.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrInvalidState is returned when a game action arrives while no round
	// is in progress.
	ErrInvalidState = errors.New("no round in progress")

	// ErrInsufficientPlayers is returned when a round is started with fewer
	// than two participants.
	ErrInsufficientPlayers = errors.New("not enough players")

	// ErrOutOfTurn is returned when a participant fires while it is someone
	// else's turn.
	ErrOutOfTurn = errors.New("not your turn")
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}
