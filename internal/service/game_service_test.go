package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finebank/investquest/internal/models"
	"github.com/finebank/investquest/internal/websocket"
)

const (
	waitFor  = 2 * time.Second
	pollTick = 2 * time.Millisecond
)

func createStartedRoom(t *testing.T, env *testEnv, extraPlayers int, totalQuestions int) (string, *websocket.Client, []*websocket.Client) {
	t.Helper()

	host := env.newClient()
	room, _, err := env.rooms.CreateRoom(host, "alice", "test arena",
		[]models.Category{models.CategoryEPF}, models.DifficultyMedium, totalQuestions)
	require.NoError(t, err)

	others := make([]*websocket.Client, extraPlayers)
	for i := range others {
		others[i] = env.newClient()
		_, _, err := env.rooms.JoinRoom(others[i], room.ID, "player"+string(rune('a'+i)))
		require.NoError(t, err)
		env.rooms.ToggleReady(others[i])
	}

	require.NoError(t, env.games.StartGame(host))
	require.Eventually(t, func() bool { return env.inQuestion(room.ID, 1) }, waitFor, pollTick)
	return room.ID, host, others
}

func TestStartGamePreconditions(t *testing.T) {
	env := newTestEnv(mediumBank(30), fastTiming())
	host := env.newClient()
	bob := env.newClient()

	room, _, err := env.rooms.CreateRoom(host, "alice", "strict start",
		[]models.Category{models.CategoryEPF}, models.DifficultyMedium, 5)
	require.NoError(t, err)
	_, _, err = env.rooms.JoinRoom(bob, room.ID, "bob")
	require.NoError(t, err)

	// Only the host can start.
	assert.ErrorIs(t, env.games.StartGame(bob), ErrNotHost)

	// Non-host players must be ready.
	assert.ErrorIs(t, env.games.StartGame(host), ErrPlayersNotReady)

	env.rooms.ToggleReady(bob)
	require.NoError(t, env.games.StartGame(host))

	// A second start finds the game already running.
	assert.ErrorIs(t, env.games.StartGame(host), ErrGameInProgress)

	// Starting removes the room from the waiting list immediately.
	assert.Empty(t, env.rooms.ListWaitingRooms())
}

func TestSinglePlayerStartsWithoutReady(t *testing.T) {
	env := newTestEnv(mediumBank(30), fastTiming())
	host := env.newClient()
	_, _, err := env.rooms.CreateRoom(host, "alice", "solo run",
		[]models.Category{models.CategoryEPF}, models.DifficultyMedium, 5)
	require.NoError(t, err)

	require.NoError(t, env.games.StartGame(host))
}

func TestStartResetsPlayerCounters(t *testing.T) {
	env := newTestEnv(mediumBank(30), fastTiming())
	roomID, host, _ := createStartedRoom(t, env, 0, 5)

	p, ok := env.playerState(roomID, host.ID)
	require.True(t, ok)
	assert.Zero(t, p.Score)
	assert.Zero(t, p.Streak)
	assert.Zero(t, p.BestStreak)
	assert.Zero(t, p.TotalAnswers)
	assert.False(t, p.IsReady)
}

func TestScoringAndStreakProgression(t *testing.T) {
	env := newTestEnv(mediumBank(30), fastTiming())
	roomID, host, _ := createStartedRoom(t, env, 0, 5)

	// Medium questions with no timer decay: 10s remaining at every
	// submission, so (200 + 50) scaled by the streak multiplier.
	wantIncrements := []int{250, 250, 312, 312, 375}

	prevScore := 0
	for i := 0; i < 5; i++ {
		require.Eventually(t, func() bool { return env.inQuestion(roomID, i+1) }, waitFor, pollTick,
			"question %d never became active", i+1)

		env.games.SubmitAnswer(host, env.correctAnswer(roomID))

		p, ok := env.playerState(roomID, host.ID)
		require.True(t, ok)
		assert.Equal(t, wantIncrements[i], p.Score-prevScore, "score increment for question %d", i+1)
		assert.Equal(t, i+1, p.Streak)
		prevScore = p.Score
	}

	require.Eventually(t, func() bool {
		return env.gameStatus(roomID) == models.GameFinished
	}, waitFor, pollTick)

	p, ok := env.playerState(roomID, host.ID)
	require.True(t, ok)
	assert.Equal(t, 5, p.BestStreak)
	assert.Equal(t, 5, p.CorrectAnswers)
	assert.Equal(t, 5, p.TotalAnswers)

	// Cooldown returns the room to the lobby with counters zeroed and
	// the game destroyed.
	require.Eventually(t, func() bool {
		status := models.RoomStatus("")
		env.readRoom(roomID, func(r *models.Room) { status = r.Status })
		return status == models.RoomWaiting
	}, waitFor, pollTick)

	p, _ = env.playerState(roomID, host.ID)
	assert.Zero(t, p.Score)
	assert.Nil(t, env.games.currentGame(roomID))

	// The aggregator saw the completed game.
	entries := env.leaderboard.TopEntries(LeaderboardBroadcastLimit)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].PlayerName)
	assert.Equal(t, 1499, entries[0].TotalScore)
	assert.Equal(t, 5, entries[0].BestStreak)
}

func TestWrongAnswerResetsStreak(t *testing.T) {
	env := newTestEnv(mediumBank(30), fastTiming())
	roomID, host, others := createStartedRoom(t, env, 1, 5)
	bob := others[0]

	env.games.SubmitAnswer(host, env.correctAnswer(roomID))
	env.games.SubmitAnswer(bob, env.correctAnswer(roomID)+1)

	hostState, _ := env.playerState(roomID, host.ID)
	bobState, _ := env.playerState(roomID, bob.ID)

	assert.Equal(t, 1, hostState.Streak)
	assert.Zero(t, bobState.Streak)
	assert.Zero(t, bobState.Score)
	assert.Equal(t, 1, bobState.TotalAnswers)
}

func TestDuplicateSubmissionIgnored(t *testing.T) {
	env := newTestEnv(mediumBank(30), fastTiming())
	roomID, host, _ := createStartedRoom(t, env, 1, 5)

	correct := env.correctAnswer(roomID)
	env.games.SubmitAnswer(host, correct)
	first, _ := env.playerState(roomID, host.ID)

	// A second submission for the same question is a late duplicate,
	// dropped without an error.
	env.games.SubmitAnswer(host, correct)
	env.games.SubmitAnswer(host, correct+1)

	after, _ := env.playerState(roomID, host.ID)
	assert.Equal(t, first.Score, after.Score)
	assert.Equal(t, 1, after.TotalAnswers)
}

func TestSubmissionOutsideQuestionStateIgnored(t *testing.T) {
	timing := fastTiming()
	timing.Countdown = 200 * time.Millisecond
	env := newTestEnv(mediumBank(30), timing)

	host := env.newClient()
	room, _, err := env.rooms.CreateRoom(host, "alice", "patience",
		[]models.Category{models.CategoryEPF}, models.DifficultyMedium, 5)
	require.NoError(t, err)
	require.NoError(t, env.games.StartGame(host))

	// Still in countdown: the submission must vanish without a trace.
	require.Equal(t, models.GameCountdown, env.gameStatus(room.ID))
	env.games.SubmitAnswer(host, 0)

	p, _ := env.playerState(room.ID, host.ID)
	assert.Zero(t, p.TotalAnswers)

	// A stranger's submission is equally invisible.
	require.Eventually(t, func() bool { return env.inQuestion(room.ID, 1) }, waitFor, pollTick)
	stranger := env.newClient()
	stranger.RoomID = room.ID
	env.games.SubmitAnswer(stranger, 0)

	answers := 0
	env.readRoom(room.ID, func(*models.Room) {
		if g := env.games.currentGame(room.ID); g != nil {
			answers = len(g.state.Answers)
		}
	})
	assert.Zero(t, answers)
}

func TestAllAnsweredAdvancesEarly(t *testing.T) {
	timing := fastTiming()
	timing.Reveal = 250 * time.Millisecond
	env := newTestEnv(mediumBank(30), timing)
	roomID, host, others := createStartedRoom(t, env, 1, 5)

	// Ticks are effectively disabled, so only the all-answered path
	// can end the question.
	env.games.SubmitAnswer(host, env.correctAnswer(roomID))
	require.Equal(t, models.GameQuestion, env.gameStatus(roomID))

	env.games.SubmitAnswer(others[0], 0)
	assert.Equal(t, models.GameAnswer, env.gameStatus(roomID))

	require.Eventually(t, func() bool { return env.inQuestion(roomID, 2) }, waitFor, pollTick)
}

func TestTimerExpiryRevealsAnswer(t *testing.T) {
	timing := fastTiming()
	timing.QuestionSeconds = 3
	timing.Tick = 5 * time.Millisecond
	env := newTestEnv(mediumBank(30), timing)
	roomID, host, _ := createStartedRoom(t, env, 0, 5)

	// No submission at all: the countdown runs out and the answer is
	// revealed anyway.
	require.Eventually(t, func() bool {
		return env.gameStatus(roomID) == models.GameAnswer || env.questionNumber(roomID) > 1
	}, waitFor, pollTick)

	p, _ := env.playerState(roomID, host.ID)
	assert.Zero(t, p.TotalAnswers)
}

func TestGameRunsWithFewerQuestionsThanRequested(t *testing.T) {
	// The whole bank holds 7 questions; a request for 10 plays 7.
	env := newTestEnv(mediumBank(7), fastTiming())
	roomID, host, _ := createStartedRoom(t, env, 0, 10)

	total := 0
	env.readRoom(roomID, func(*models.Room) {
		if g := env.games.currentGame(roomID); g != nil {
			total = g.state.TotalQuestions
		}
	})
	require.Equal(t, 7, total)

	for i := 0; i < 7; i++ {
		require.Eventually(t, func() bool { return env.inQuestion(roomID, i+1) }, waitFor, pollTick)
		assert.Equal(t, i+1, env.questionNumber(roomID))
		env.games.SubmitAnswer(host, env.correctAnswer(roomID))
	}

	require.Eventually(t, func() bool {
		return env.gameStatus(roomID) == models.GameFinished
	}, waitFor, pollTick)
}

func TestConcurrentSubmissionsBothLand(t *testing.T) {
	env := newTestEnv(mediumBank(30), fastTiming())
	roomID, host, others := createStartedRoom(t, env, 1, 5)
	bob := others[0]
	correct := env.correctAnswer(roomID)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		env.games.SubmitAnswer(host, correct)
	}()
	go func() {
		defer wg.Done()
		env.games.SubmitAnswer(bob, correct)
	}()
	wg.Wait()

	hostState, _ := env.playerState(roomID, host.ID)
	bobState, _ := env.playerState(roomID, bob.ID)
	assert.Equal(t, 1, hostState.TotalAnswers)
	assert.Equal(t, 1, bobState.TotalAnswers)
	assert.Equal(t, 250, hostState.Score)
	assert.Equal(t, 250, bobState.Score)
}

func TestLeaveDuringGameCancelsSession(t *testing.T) {
	env := newTestEnv(mediumBank(30), fastTiming())
	roomID, host, _ := createStartedRoom(t, env, 0, 5)

	env.rooms.LeaveRoom(host)

	assert.Nil(t, env.games.currentGame(roomID))
	assert.ErrorIs(t, env.rooms.WithRoom(roomID, func(*models.Room) error { return nil }), ErrRoomNotFound)

	// Pending timers fire against the deleted room and must no-op.
	time.Sleep(50 * time.Millisecond)
	assert.Nil(t, env.games.currentGame(roomID))
}

func TestMidGameLeaveKeepsGameRunning(t *testing.T) {
	timing := fastTiming()
	timing.Reveal = 250 * time.Millisecond
	env := newTestEnv(mediumBank(30), timing)
	roomID, host, others := createStartedRoom(t, env, 1, 5)

	env.rooms.LeaveRoom(others[0])

	require.Equal(t, models.GameQuestion, env.gameStatus(roomID))

	// With the second player gone, the host alone satisfies the
	// all-answered condition.
	env.games.SubmitAnswer(host, env.correctAnswer(roomID))
	assert.Equal(t, models.GameAnswer, env.gameStatus(roomID))
}
