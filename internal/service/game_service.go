// internal/service/game_service.go

package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/finebank/investquest/internal/models"
	"github.com/finebank/investquest/internal/questions"
	"github.com/finebank/investquest/internal/repository"
	"github.com/finebank/investquest/internal/websocket"
)

// Timing holds every fixed delay in the question cycle. Production
// uses DefaultTiming; tests shrink it.
type Timing struct {
	Countdown       time.Duration // delay before the first question
	QuestionSeconds int           // per-question countdown, in ticks
	Tick            time.Duration // length of one countdown tick
	Reveal          time.Duration // how long the answer stays on screen
	Cooldown        time.Duration // finished -> waiting delay
}

func DefaultTiming() Timing {
	return Timing{
		Countdown:       3 * time.Second,
		QuestionSeconds: 20,
		Tick:            time.Second,
		Reveal:          4 * time.Second,
		Cooldown:        10 * time.Second,
	}
}

// game is the server-side session state for one playing room. The
// drawn question list never leaves the server.
type game struct {
	state     *models.GameState
	questions []models.Question
	startedAt time.Time
}

// GameService drives question progression, countdown, answer
// collection, scoring and end-of-game transitions. Every mutation,
// whether from a client event or a timer callback, re-enters through
// RoomService.WithRoom so state changes for one room are serialized
// and timers firing against deleted rooms degrade to no-ops.
type GameService struct {
	rooms       *RoomService
	bank        *questions.Bank
	leaderboard *LeaderboardService
	history     *repository.HistoryRepository // nil when persistence is unavailable
	hub         *websocket.Hub
	timing      Timing

	mu    sync.Mutex
	games map[string]*game

	// Pending timers per room, so deletion can cancel them
	timerMu   sync.Mutex
	delays    map[string]*time.Timer
	tickStops map[string]chan struct{}
}

func NewGameService(
	rooms *RoomService,
	bank *questions.Bank,
	leaderboard *LeaderboardService,
	history *repository.HistoryRepository,
	hub *websocket.Hub,
	timing Timing,
) *GameService {
	return &GameService{
		rooms:       rooms,
		bank:        bank,
		leaderboard: leaderboard,
		history:     history,
		hub:         hub,
		timing:      timing,
		games:       make(map[string]*game),
		delays:      make(map[string]*time.Timer),
		tickStops:   make(map[string]chan struct{}),
	}
}

// currentGame returns the live game for a room, or nil.
func (s *GameService) currentGame(roomID string) *game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.games[roomID]
}

// isCurrent reports whether g is still the room's live game. Timer
// callbacks scheduled for an older game fail this check and do nothing.
func (s *GameService) isCurrent(roomID string, g *game) bool {
	return s.currentGame(roomID) == g
}

// StartGame checks the start preconditions and, if they hold, resets
// all players, draws the question list and enters the countdown.
func (s *GameService) StartGame(client *websocket.Client) error {
	roomID := client.RoomID
	if roomID == "" {
		return ErrRoomNotFound
	}

	err := s.rooms.WithRoom(roomID, func(room *models.Room) error {
		if room.HostID != client.ID {
			return ErrNotHost
		}
		if room.Status != models.RoomWaiting {
			return ErrGameInProgress
		}
		if len(room.Players) < 1 {
			return ErrNotEnoughPlayers
		}
		if len(room.Players) > 1 {
			for _, p := range room.Players {
				if p.ID != room.HostID && !p.IsReady {
					return ErrPlayersNotReady
				}
			}
		}

		qs := s.bank.Select(room.SelectedCategories, room.Difficulty, room.TotalQuestions)
		if len(qs) == 0 {
			return ErrNoQuestions
		}

		for _, p := range room.Players {
			p.ResetCounters()
		}
		room.Status = models.RoomPlaying
		room.CurrentQuestion = 0

		g := &game{
			state: &models.GameState{
				RoomID:          roomID,
				CurrentQuestion: &qs[0],
				QuestionNumber:  1,
				TotalQuestions:  len(qs),
				TimeRemaining:   s.timing.QuestionSeconds,
				Players:         room.Players,
				Answers:         make(map[string]int),
				GameStatus:      models.GameCountdown,
			},
			questions: qs,
			startedAt: time.Now(),
		}

		s.mu.Lock()
		s.games[roomID] = g
		s.mu.Unlock()

		s.broadcastState(g)
		s.scheduleDelay(roomID, s.timing.Countdown, func() {
			s.beginQuestion(roomID, g)
		})

		slog.Info("game started", "room_id", roomID,
			"questions", len(qs), "requested", room.TotalQuestions)
		return nil
	})
	if err != nil {
		return err
	}

	// The room just left the waiting list.
	s.rooms.BroadcastRoomsList()
	return nil
}

// beginQuestion moves countdown -> question and starts the tick timer.
func (s *GameService) beginQuestion(roomID string, g *game) {
	s.rooms.WithRoom(roomID, func(room *models.Room) error {
		if !s.isCurrent(roomID, g) {
			return nil
		}
		g.state.GameStatus = models.GameQuestion
		g.state.Players = room.Players
		s.broadcastState(g)
		s.startQuestionTimer(roomID, g)
		return nil
	})
}

// startQuestionTimer runs the 1-second countdown for the current
// question. Each tick is applied under the room lock; the goroutine
// exits when the question ends, whichever way it ends.
func (s *GameService) startQuestionTimer(roomID string, g *game) {
	stop := make(chan struct{})

	s.timerMu.Lock()
	s.tickStops[roomID] = stop
	s.timerMu.Unlock()

	go func() {
		ticker := time.NewTicker(s.timing.Tick)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if s.tick(roomID, g) {
					return
				}
			}
		}
	}()
}

// tick decrements the question timer and reports whether the question
// is over.
func (s *GameService) tick(roomID string, g *game) bool {
	done := false
	err := s.rooms.WithRoom(roomID, func(room *models.Room) error {
		if !s.isCurrent(roomID, g) || g.state.GameStatus != models.GameQuestion {
			done = true
			return nil
		}
		g.state.TimeRemaining--
		g.state.Players = room.Players
		if g.state.TimeRemaining <= 0 {
			done = true
			s.clearQuestionTimer(roomID)
			s.reveal(roomID, g, room)
			return nil
		}
		s.broadcastState(g)
		return nil
	})
	if err != nil {
		// Room is gone; the stop channel was already closed by CancelGame.
		return true
	}
	return done
}

// SubmitAnswer records one player's answer for the current question
// and scores it immediately. Submissions outside the question state,
// duplicates, and submissions from players no longer in the room are
// dropped silently: they are expected races against timers, not user
// errors.
func (s *GameService) SubmitAnswer(client *websocket.Client, answer int) {
	roomID := client.RoomID
	if roomID == "" {
		return
	}
	g := s.currentGame(roomID)
	if g == nil {
		return
	}

	s.rooms.WithRoom(roomID, func(room *models.Room) error {
		if !s.isCurrent(roomID, g) {
			return nil
		}
		st := g.state
		if st.GameStatus != models.GameQuestion || st.ShowAnswer {
			return nil
		}
		if _, already := st.Answers[client.ID]; already {
			return nil
		}
		player := room.FindPlayer(client.ID)
		if player == nil {
			return nil
		}

		st.Answers[client.ID] = answer
		player.TotalAnswers++

		if answer == st.CurrentQuestion.CorrectAnswer {
			player.CorrectAnswers++
			player.Streak++
			if player.Streak > player.BestStreak {
				player.BestStreak = player.Streak
			}
			// Time bonus uses the time remaining at the moment of
			// submission, not at reveal.
			base := st.CurrentQuestion.Difficulty.BasePoints()
			timeBonus := st.TimeRemaining * 5
			points := int(float64(base+timeBonus) * models.StreakMultiplier(player.Streak))
			player.Score += points
		} else {
			player.Streak = 0
		}

		st.Players = room.Players
		s.broadcastState(g)

		allAnswered := true
		for _, p := range room.Players {
			if _, ok := st.Answers[p.ID]; !ok {
				allAnswered = false
				break
			}
		}
		if allAnswered {
			s.clearQuestionTimer(roomID)
			s.reveal(roomID, g, room)
		}
		return nil
	})
}

// reveal flips to the answer state and schedules the next transition.
// Caller holds the room lock.
func (s *GameService) reveal(roomID string, g *game, room *models.Room) {
	g.state.ShowAnswer = true
	g.state.GameStatus = models.GameAnswer
	g.state.Players = room.Players
	s.broadcastState(g)

	s.scheduleDelay(roomID, s.timing.Reveal, func() {
		s.nextQuestion(roomID, g)
	})
}

// nextQuestion advances past the reveal: either loads the following
// question or, after the last one, finishes the game.
func (s *GameService) nextQuestion(roomID string, g *game) {
	finished := false
	s.rooms.WithRoom(roomID, func(room *models.Room) error {
		if !s.isCurrent(roomID, g) {
			return nil
		}
		st := g.state

		// The game runs over the questions actually drawn, which may
		// be fewer than the configured count if the bank ran short.
		if st.QuestionNumber >= len(g.questions) {
			finished = true
			s.finishGame(roomID, g, room)
			return nil
		}

		st.QuestionNumber++
		st.CurrentQuestion = &g.questions[st.QuestionNumber-1]
		st.TimeRemaining = s.timing.QuestionSeconds
		st.Answers = make(map[string]int)
		st.ShowAnswer = false
		st.GameStatus = models.GameQuestion
		st.Players = room.Players
		room.CurrentQuestion = st.QuestionNumber

		s.broadcastState(g)
		s.startQuestionTimer(roomID, g)
		return nil
	})
	if finished {
		s.rooms.BroadcastRoomsList()
	}
}

// finishGame records results and schedules the cooldown back to the
// lobby. Caller holds the room lock.
func (s *GameService) finishGame(roomID string, g *game, room *models.Room) {
	g.state.GameStatus = models.GameFinished
	g.state.Players = room.Players
	room.Status = models.RoomFinished

	for _, p := range room.Players {
		s.leaderboard.RecordGameResult(p.ID, p.Name, p.Score, p.CorrectAnswers, p.TotalAnswers, p.BestStreak)
	}
	s.recordHistory(room, g)

	s.broadcastState(g)
	s.scheduleDelay(roomID, s.timing.Cooldown, func() {
		s.resetRoom(roomID, g)
	})

	slog.Info("game finished", "room_id", roomID, "questions_played", len(g.questions))
}

// recordHistory hands completed-game rows to the persistence
// collaborator. Fire-and-forget: a missing or failing store never
// affects game progression.
func (s *GameService) recordHistory(room *models.Room, g *game) {
	if s.history == nil {
		return
	}

	duration := int(time.Since(g.startedAt).Seconds())
	topScore := 0
	for _, p := range room.Players {
		if p.Score > topScore {
			topScore = p.Score
		}
	}

	records := make([]*models.GameHistory, 0, len(room.Players))
	for _, p := range room.Players {
		records = append(records, &models.GameHistory{
			PlayerName:      p.Name,
			Mode:            "multiplayer",
			Score:           p.Score,
			CorrectAnswers:  p.CorrectAnswers,
			TotalQuestions:  p.TotalAnswers,
			BestStreak:      p.BestStreak,
			Difficulty:      string(room.Difficulty),
			Categories:      repository.JoinCategories(room.SelectedCategories),
			DurationSeconds: duration,
			IsWinner:        p.Score == topScore && topScore > 0,
			PlayedAt:        time.Now(),
		})
	}

	go func() {
		for _, rec := range records {
			if err := s.history.RecordCompletedGame(rec); err != nil {
				slog.Warn("failed to record game history", "player", rec.PlayerName, "error", err)
			}
		}
	}()
}

// resetRoom returns a finished room to the waiting state and destroys
// the game.
func (s *GameService) resetRoom(roomID string, g *game) {
	var snapshot *models.Room
	s.rooms.WithRoom(roomID, func(room *models.Room) error {
		if !s.isCurrent(roomID, g) {
			return nil
		}
		room.Status = models.RoomWaiting
		room.CurrentQuestion = 0
		for _, p := range room.Players {
			p.ResetCounters()
		}

		s.mu.Lock()
		delete(s.games, roomID)
		s.mu.Unlock()

		snapshot = room.Snapshot()
		return nil
	})
	if snapshot == nil {
		return
	}

	s.hub.BroadcastToRoom(roomID, websocket.Event{
		Type:    websocket.EventRoomUpdate,
		Payload: map[string]interface{}{"room": snapshot},
	})
	s.rooms.BroadcastRoomsList()
	slog.Info("room reset to waiting", "room_id", roomID)
}

// CancelGame drops the room's game and cancels all pending timers.
// Called when the room is deleted.
func (s *GameService) CancelGame(roomID string) {
	s.timerMu.Lock()
	if t, ok := s.delays[roomID]; ok {
		t.Stop()
		delete(s.delays, roomID)
	}
	if stop, ok := s.tickStops[roomID]; ok {
		close(stop)
		delete(s.tickStops, roomID)
	}
	s.timerMu.Unlock()

	s.mu.Lock()
	delete(s.games, roomID)
	s.mu.Unlock()
}

// scheduleDelay arms the room's single pending transition timer.
func (s *GameService) scheduleDelay(roomID string, d time.Duration, fn func()) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if t, ok := s.delays[roomID]; ok {
		t.Stop()
	}
	s.delays[roomID] = time.AfterFunc(d, fn)
}

// clearQuestionTimer stops the current question's tick goroutine.
func (s *GameService) clearQuestionTimer(roomID string) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if stop, ok := s.tickStops[roomID]; ok {
		close(stop)
		delete(s.tickStops, roomID)
	}
}

// broadcastState sends a snapshot of the game state to the room. The
// snapshot is taken under the room lock so later mutations never leak
// into an in-flight broadcast.
func (s *GameService) broadcastState(g *game) {
	s.hub.BroadcastToRoom(g.state.RoomID, websocket.Event{
		Type:    websocket.EventGameState,
		Payload: g.state.Snapshot(),
	})
}
