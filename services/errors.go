package services

import "errors"

// Domain errors the handlers map onto HTTP statuses. Anything else that
// escapes a service is a storage failure: the surrounding transaction
// has been rolled back and the request is safe to retry.
var (
	ErrInvalidTapCount    = errors.New("tap count must be a positive integer")
	ErrContestNotFound    = errors.New("contest not found")
	ErrContestEnded       = errors.New("contest already ended")
	ErrAwaitingTiebreaker = errors.New("contest is awaiting its tiebreaker")
	ErrNoActiveContest    = errors.New("room has no active contest")

	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomNotOpen   = errors.New("room is not open")
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyJoined = errors.New("already joined this room")
	ErrNotCreator    = errors.New("only the room creator can start the match")
)
