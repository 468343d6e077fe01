package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/finebank/investquest/internal/models"
	"github.com/finebank/investquest/internal/questions"
	"github.com/finebank/investquest/internal/websocket"
)

// fastTiming keeps transition delays tiny and ticks effectively off,
// so TimeRemaining stays at QuestionSeconds unless a test wants decay.
func fastTiming() Timing {
	return Timing{
		Countdown:       10 * time.Millisecond,
		QuestionSeconds: 10,
		Tick:            time.Hour,
		Reveal:          10 * time.Millisecond,
		Cooldown:        20 * time.Millisecond,
	}
}

// mediumBank builds n medium EPF questions with varying correct
// indexes.
func mediumBank(n int) *questions.Bank {
	qs := make([]models.Question, n)
	for i := range qs {
		qs[i] = models.Question{
			ID:            fmt.Sprintf("epf-m-%d", i),
			Question:      fmt.Sprintf("question %d", i),
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: i % 4,
			Category:      models.CategoryEPF,
			Difficulty:    models.DifficultyMedium,
		}
	}
	return questions.NewBank(qs)
}

type testEnv struct {
	hub         *websocket.Hub
	rooms       *RoomService
	games       *GameService
	leaderboard *LeaderboardService
}

func newTestEnv(bank *questions.Bank, timing Timing) *testEnv {
	hub := websocket.NewHub()
	go hub.Run()

	rooms := NewRoomService(hub)
	leaderboard := NewLeaderboardService(hub)
	games := NewGameService(rooms, bank, leaderboard, nil, hub, timing)
	rooms.SetRoomDeletedHandler(games.CancelGame)

	return &testEnv{
		hub:         hub,
		rooms:       rooms,
		games:       games,
		leaderboard: leaderboard,
	}
}

func (e *testEnv) newClient() *websocket.Client {
	return websocket.NewClient(e.hub, nil, uuid.New().String())
}

// readRoom runs fn under the room lock; reads from tests must go
// through the same serialization point as everything else.
func (e *testEnv) readRoom(roomID string, fn func(room *models.Room)) error {
	return e.rooms.WithRoom(roomID, func(room *models.Room) error {
		fn(room)
		return nil
	})
}

func (e *testEnv) gameStatus(roomID string) models.GameStatus {
	var status models.GameStatus
	e.readRoom(roomID, func(*models.Room) {
		if g := e.games.currentGame(roomID); g != nil {
			status = g.state.GameStatus
		}
	})
	return status
}

func (e *testEnv) questionNumber(roomID string) int {
	n := 0
	e.readRoom(roomID, func(*models.Room) {
		if g := e.games.currentGame(roomID); g != nil {
			n = g.state.QuestionNumber
		}
	})
	return n
}

func (e *testEnv) correctAnswer(roomID string) int {
	answer := -1
	e.readRoom(roomID, func(*models.Room) {
		if g := e.games.currentGame(roomID); g != nil && g.state.CurrentQuestion != nil {
			answer = g.state.CurrentQuestion.CorrectAnswer
		}
	})
	return answer
}

func (e *testEnv) playerState(roomID, playerID string) (p models.Player, ok bool) {
	e.readRoom(roomID, func(room *models.Room) {
		if found := room.FindPlayer(playerID); found != nil {
			p = *found
			ok = true
		}
	})
	return p, ok
}

// inQuestion reports whether the game is accepting answers for the
// given question number.
func (e *testEnv) inQuestion(roomID string, number int) bool {
	return e.gameStatus(roomID) == models.GameQuestion && e.questionNumber(roomID) == number
}
