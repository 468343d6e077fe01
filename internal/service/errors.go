package service

import "errors"

// Errors reported back to the originating connection. Stale-event
// conditions (late answers, duplicate submissions, events for rooms
// that no longer exist) are not represented here; they are dropped
// silently.
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrGameInProgress    = errors.New("game already in progress")
	ErrRoomFull          = errors.New("room is full")
	ErrNotHost           = errors.New("only the host can start the game")
	ErrNotEnoughPlayers  = errors.New("need at least 1 player to start")
	ErrPlayersNotReady   = errors.New("all players must be ready")
	ErrNoCategories      = errors.New("select at least one category")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrRoomName          = errors.New("room name must be 3-30 characters")
	ErrPlayerName        = errors.New("player name must be 2-20 characters")
	ErrQuestionCount     = errors.New("question count must be between 5 and 30")
	ErrNoQuestions       = errors.New("no questions available")
)
