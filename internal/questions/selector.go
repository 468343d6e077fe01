package questions

import (
	"math/rand"

	"github.com/finebank/investquest/internal/models"
)

// difficultyMatches implements cumulative downward matching: an easy
// game draws only easy questions, medium draws easy and medium, hard
// draws everything.
func difficultyMatches(game, question models.Difficulty) bool {
	switch game {
	case models.DifficultyEasy:
		return question == models.DifficultyEasy
	case models.DifficultyMedium:
		return question == models.DifficultyEasy || question == models.DifficultyMedium
	default:
		return true
	}
}

// PoolSize returns how many bank questions a game with the given
// settings can draw from, before any widening.
func (b *Bank) PoolSize(categories []models.Category, difficulty models.Difficulty) int {
	return len(b.filter(categories, difficulty, true))
}

func (b *Bank) filter(categories []models.Category, difficulty models.Difficulty, matchDifficulty bool) []models.Question {
	inCategory := make(map[models.Category]bool, len(categories))
	for _, c := range categories {
		inCategory[c] = true
	}
	var out []models.Question
	for _, q := range b.questions {
		if !inCategory[q.Category] {
			continue
		}
		if matchDifficulty && !difficultyMatches(difficulty, q.Difficulty) {
			continue
		}
		out = append(out, q)
	}
	return out
}

// Select draws up to count shuffled questions for the given settings.
// If the category+difficulty pool runs short it widens to all
// difficulties within the categories, then to the whole bank. If even
// the whole bank is smaller than count the result is simply shorter;
// the game runs with what exists.
func (b *Bank) Select(categories []models.Category, difficulty models.Difficulty, count int) []models.Question {
	filtered := b.filter(categories, difficulty, true)

	if len(filtered) < count {
		filtered = b.filter(categories, difficulty, false)
	}

	if len(filtered) < count {
		filtered = append([]models.Question(nil), b.questions...)
	}

	rand.Shuffle(len(filtered), func(i, j int) {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	})

	if len(filtered) > count {
		filtered = filtered[:count]
	}
	return filtered
}
