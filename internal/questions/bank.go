// Package questions holds the static trivia bank and the selection
// policy used when a game starts. The bank is embedded at build time
// and never mutated.
package questions

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/finebank/investquest/internal/models"
)

//go:embed bank.json
var bankJSON []byte

// Bank is the read-only question set loaded once at startup.
type Bank struct {
	questions []models.Question
}

// Load parses and validates the embedded bank.
func Load() (*Bank, error) {
	var qs []models.Question
	if err := json.Unmarshal(bankJSON, &qs); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	for i, q := range qs {
		if len(q.Options) != 4 {
			return nil, fmt.Errorf("question %s: expected 4 options, got %d", q.ID, len(q.Options))
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return nil, fmt.Errorf("question %s: correct answer index %d out of range", q.ID, q.CorrectAnswer)
		}
		if !q.Category.Valid() {
			return nil, fmt.Errorf("question %s: unknown category %q", q.ID, q.Category)
		}
		if !q.Difficulty.Valid() {
			return nil, fmt.Errorf("question %s: unknown difficulty %q", q.ID, q.Difficulty)
		}
		qs[i] = q
	}
	return &Bank{questions: qs}, nil
}

// NewBank builds a bank from an explicit question list. Used by tests.
func NewBank(qs []models.Question) *Bank {
	return &Bank{questions: qs}
}

// Len returns the total number of questions in the bank.
func (b *Bank) Len() int {
	return len(b.questions)
}

// CountByCategory returns how many questions belong to the category.
func (b *Bank) CountByCategory(c models.Category) int {
	n := 0
	for _, q := range b.questions {
		if q.Category == c {
			n++
		}
	}
	return n
}

// CountByDifficulty returns how many questions carry the difficulty.
func (b *Bank) CountByDifficulty(d models.Difficulty) int {
	n := 0
	for _, q := range b.questions {
		if q.Difficulty == d {
			n++
		}
	}
	return n
}
