package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room session has not been initialized.
	ErrRoomNotFound = errors.New("room session not found")
	// ErrParticipantNotFound is returned when a user tries to act before joining.
	ErrParticipantNotFound = errors.New("participant not found in room")
	// ErrDeckNotFound indicates the deck content could not be loaded.
	ErrDeckNotFound = errors.New("deck not found")
	// ErrDeckExhausted indicates a turn was requested past the last question.
	ErrDeckExhausted = errors.New("deck has no more questions")
	// ErrNotRoomCreator indicates a round action reserved for the creator.
	ErrNotRoomCreator = errors.New("action requires the room creator")
	// ErrNoActiveTurn indicates a turn-scoped action outside a question phase.
	ErrNoActiveTurn = errors.New("no active turn")
)
