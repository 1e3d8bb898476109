package domain

import "fmt"

// OptionCount is the number of options every question carries.
const OptionCount = 4

// Question is the full record, answer key included. It never leaves the server.
type Question struct {
	ID            int      `json:"id" yaml:"id"`
	Text          string   `json:"text" yaml:"text"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer int      `json:"correctAnswer" yaml:"correctAnswer"`
	Image         *string  `json:"image,omitempty" yaml:"image,omitempty"`
}

// Public strips the answer key.
func (q Question) Public() PublicQuestion {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return PublicQuestion{
		ID:      q.ID,
		Text:    q.Text,
		Options: options,
		Image:   q.Image,
	}
}

// Validate checks the per-question invariants.
func (q Question) Validate() error {
	if q.ID <= 0 {
		return fmt.Errorf("question %d: id must be positive", q.ID)
	}
	if len(q.Options) != OptionCount {
		return fmt.Errorf("question %d: expected %d options, got %d", q.ID, OptionCount, len(q.Options))
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= OptionCount {
		return fmt.Errorf("question %d: correct answer %d out of range", q.ID, q.CorrectAnswer)
	}
	return nil
}

// PublicQuestion is the only question shape sent to players.
type PublicQuestion struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Image   *string  `json:"image"`
}

// CheckResult is the oracle verdict. CorrectAnswer is only set when the guess was wrong.
type CheckResult struct {
	IsCorrect     bool `json:"isCorrect"`
	CorrectAnswer *int `json:"correctAnswer"`
}
