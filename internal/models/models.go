package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category identifies one of the fixed investment topics in the bank.
type Category string

const (
	CategoryUnitTrusts    Category = "unit_trusts"
	CategoryASBASN        Category = "asb_asn"
	CategoryEPF           Category = "epf"
	CategoryStocksBursa   Category = "stocks_bursa"
	CategoryREITs         Category = "reits"
	CategoryFixedDeposits Category = "fixed_deposits"
	CategorySukukBonds    Category = "sukuk_bonds"
	CategoryPRS           Category = "prs"
)

// CategoryLabels maps category ids to display names.
var CategoryLabels = map[Category]string{
	CategoryUnitTrusts:    "Unit Trusts",
	CategoryASBASN:        "ASB/ASN",
	CategoryEPF:           "EPF/KWSP",
	CategoryStocksBursa:   "Stocks (Bursa Malaysia)",
	CategoryREITs:         "REITs",
	CategoryFixedDeposits: "Fixed Deposits",
	CategorySukukBonds:    "Sukuk/Bonds",
	CategoryPRS:           "Private Retirement Scheme",
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := CategoryLabels[c]
	return ok
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var DifficultyLabels = map[Difficulty]string{
	DifficultyEasy:   "Easy",
	DifficultyMedium: "Medium",
	DifficultyHard:   "Hard",
}

func (d Difficulty) Valid() bool {
	_, ok := DifficultyLabels[d]
	return ok
}

// BasePoints returns the base score for a correct answer at this difficulty.
func (d Difficulty) BasePoints() int {
	switch d {
	case DifficultyMedium:
		return 200
	case DifficultyHard:
		return 300
	default:
		return 100
	}
}

// StreakMultiplier returns the score multiplier for a player's current streak.
func StreakMultiplier(streak int) float64 {
	switch {
	case streak >= 10:
		return 2.0
	case streak >= 7:
		return 1.75
	case streak >= 5:
		return 1.5
	case streak >= 3:
		return 1.25
	default:
		return 1.0
	}
}

// Question is one record of the static question bank. Options are
// presented in their stored order; CorrectAnswer indexes into them.
type Question struct {
	ID            string     `json:"id"`
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer int        `json:"correctAnswer"`
	Category      Category   `json:"category"`
	Difficulty    Difficulty `json:"difficulty"`
	Explanation   string     `json:"explanation"`
}

type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomPlaying  RoomStatus = "playing"
	RoomFinished RoomStatus = "finished"
)

// Player holds per-session state for one connected participant. A
// player belongs to exactly one room and is destroyed on leave or
// disconnect.
type Player struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Score          int    `json:"score"`
	Streak         int    `json:"streak"`
	BestStreak     int    `json:"bestStreak"`
	CorrectAnswers int    `json:"correctAnswers"`
	TotalAnswers   int    `json:"totalAnswers"`
	IsReady        bool   `json:"isReady"`
}

// ResetCounters zeroes all per-game state.
func (p *Player) ResetCounters() {
	p.Score = 0
	p.Streak = 0
	p.BestStreak = 0
	p.CorrectAnswers = 0
	p.TotalAnswers = 0
	p.IsReady = false
}

// Room is a lobby of up to six players. Players keeps join order;
// HostID always references one of them.
type Room struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	HostID             string     `json:"hostId"`
	Players            []*Player  `json:"players"`
	Status             RoomStatus `json:"status"`
	CurrentQuestion    int        `json:"currentQuestion"`
	TotalQuestions     int        `json:"totalQuestions"`
	SelectedCategories []Category `json:"selectedCategories"`
	Difficulty         Difficulty `json:"difficulty"`
	CreatedAt          int64      `json:"createdAt"`
}

// FindPlayer returns the member with the given id, or nil.
func (r *Room) FindPlayer(playerID string) *Player {
	for _, p := range r.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// Snapshot returns a copy safe to hand to the broadcaster while the
// original keeps being mutated under the room lock.
func (r *Room) Snapshot() *Room {
	cp := *r
	cp.Players = make([]*Player, len(r.Players))
	for i, p := range r.Players {
		pc := *p
		cp.Players[i] = &pc
	}
	cp.SelectedCategories = append([]Category(nil), r.SelectedCategories...)
	return &cp
}

// RoomSummary is the public listing shape for waiting rooms. It never
// exposes the roster or internal player ids.
type RoomSummary struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	PlayerCount int        `json:"playerCount"`
	MaxPlayers  int        `json:"maxPlayers"`
	Difficulty  Difficulty `json:"difficulty"`
	Categories  []Category `json:"categories"`
}

type GameStatus string

const (
	GameCountdown GameStatus = "countdown"
	GameQuestion  GameStatus = "question"
	GameAnswer    GameStatus = "answer"
	GameFinished  GameStatus = "finished"
)

// GameState is the live progression data for one room's session. The
// drawn question list itself stays server-side; clients only see the
// current question and the total count.
type GameState struct {
	RoomID          string         `json:"roomId"`
	CurrentQuestion *Question      `json:"currentQuestion"`
	QuestionNumber  int            `json:"questionNumber"`
	TotalQuestions  int            `json:"totalQuestions"`
	TimeRemaining   int            `json:"timeRemaining"`
	Players         []*Player      `json:"players"`
	Answers         map[string]int `json:"answers"`
	ShowAnswer      bool           `json:"showAnswer"`
	GameStatus      GameStatus     `json:"gameStatus"`
}

// Snapshot deep-copies the state for broadcasting.
func (g *GameState) Snapshot() *GameState {
	cp := *g
	cp.Players = make([]*Player, len(g.Players))
	for i, p := range g.Players {
		pc := *p
		cp.Players[i] = &pc
	}
	cp.Answers = make(map[string]int, len(g.Answers))
	for k, v := range g.Answers {
		cp.Answers[k] = v
	}
	if g.CurrentQuestion != nil {
		q := *g.CurrentQuestion
		cp.CurrentQuestion = &q
	}
	return &cp
}

// LeaderboardEntry is a cross-game cumulative total, keyed by display
// name for the process lifetime. Two people sharing a name collide;
// the durable account-based leaderboard lives outside this core.
type LeaderboardEntry struct {
	ID             string  `json:"id"`
	PlayerName     string  `json:"playerName"`
	TotalScore     int     `json:"totalScore"`
	GamesPlayed    int     `json:"gamesPlayed"`
	CorrectAnswers int     `json:"correctAnswers"`
	TotalAnswers   int     `json:"totalAnswers"`
	BestStreak     int     `json:"bestStreak"`
	WinRate        float64 `json:"winRate"`
	LastPlayed     int64   `json:"lastPlayed"`
}

// GameHistory is the durable record written once per player per
// completed game. Persistence is fire-and-forget from the session
// manager's point of view.
type GameHistory struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	PlayerName      string    `gorm:"not null" json:"playerName"`
	Mode            string    `gorm:"not null" json:"mode"`
	Score           int       `gorm:"default:0" json:"score"`
	CorrectAnswers  int       `gorm:"default:0" json:"correctAnswers"`
	TotalQuestions  int       `gorm:"default:0" json:"totalQuestions"`
	BestStreak      int       `gorm:"default:0" json:"bestStreak"`
	Difficulty      string    `gorm:"not null" json:"difficulty"`
	Categories      string    `gorm:"not null" json:"categories"`
	DurationSeconds int       `gorm:"default:0" json:"durationSeconds"`
	IsWinner        bool      `gorm:"default:false" json:"isWinner"`
	PlayedAt        time.Time `json:"playedAt"`
}

func (h *GameHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
