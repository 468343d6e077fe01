package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/finebank/investquest/internal/models"
	"github.com/finebank/investquest/internal/websocket"
)

// LeaderboardBroadcastLimit caps how many entries go out in the live
// leaderboard event.
const LeaderboardBroadcastLimit = 20

// LeaderboardService accumulates cross-game totals per display name
// for the lifetime of the process. Keying by name means two people
// sharing a name collide; the durable account-based leaderboard is an
// external collaborator and not this service's problem.
type LeaderboardService struct {
	mu      sync.Mutex
	entries map[string]*models.LeaderboardEntry
	order   []string // insertion order, used as the stable tie-break
	hub     *websocket.Hub
}

func NewLeaderboardService(hub *websocket.Hub) *LeaderboardService {
	return &LeaderboardService{
		entries: make(map[string]*models.LeaderboardEntry),
		hub:     hub,
	}
}

// RecordGameResult folds one completed game into the player's
// cumulative entry, creating it on first sight of the name.
func (s *LeaderboardService) RecordGameResult(playerID, playerName string, score, correct, total, bestStreak int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[playerName]
	if !exists {
		entry = &models.LeaderboardEntry{
			ID:         playerID,
			PlayerName: playerName,
		}
		s.entries[playerName] = entry
		s.order = append(s.order, playerName)
	}

	entry.TotalScore += score
	entry.GamesPlayed++
	entry.CorrectAnswers += correct
	entry.TotalAnswers += total
	if bestStreak > entry.BestStreak {
		entry.BestStreak = bestStreak
	}
	if entry.TotalAnswers > 0 {
		entry.WinRate = float64(entry.CorrectAnswers) / float64(entry.TotalAnswers)
	} else {
		entry.WinRate = 0
	}
	entry.LastPlayed = time.Now().UnixMilli()

	slog.Info("leaderboard updated", "player", playerName,
		"total_score", entry.TotalScore, "games_played", entry.GamesPlayed)
}

// TopEntries returns up to n entries sorted by cumulative score
// descending, ties broken by insertion order.
func (s *LeaderboardService) TopEntries(n int) []models.LeaderboardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.LeaderboardEntry, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, *s.entries[name])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalScore > out[j].TotalScore
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// SendLeaderboard answers a single connection's leaderboard poll.
func (s *LeaderboardService) SendLeaderboard(client *websocket.Client) {
	s.hub.SendToClient(client, websocket.Event{
		Type:    websocket.EventLeaderboard,
		Payload: s.TopEntries(LeaderboardBroadcastLimit),
	})
}
