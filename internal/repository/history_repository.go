package repository

import (
	"strings"

	"github.com/finebank/investquest/internal/models"
)

// HistoryRepository persists one row per player per completed game.
// Callers treat it as fire-and-forget; a write failure never reaches
// game progression.
type HistoryRepository struct {
	db *Database
}

func NewHistoryRepository(db *Database) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) RecordCompletedGame(record *models.GameHistory) error {
	return r.db.Create(record).Error
}

func (r *HistoryRepository) RecentGames(playerName string, limit int) ([]models.GameHistory, error) {
	var games []models.GameHistory
	err := r.db.Where("player_name = ?", playerName).
		Order("played_at desc").
		Limit(limit).
		Find(&games).Error
	if err != nil {
		return nil, err
	}
	return games, nil
}

// JoinCategories flattens a category list into the stored column form.
func JoinCategories(categories []models.Category) string {
	parts := make([]string, len(categories))
	for i, c := range categories {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}
