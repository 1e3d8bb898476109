package file

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"staar-quiz-service/internal/domain"
)

// QuestionFile loads questions from a YAML (or JSON) list of question records.
type QuestionFile struct {
	path string
}

func NewQuestionFile(path string) *QuestionFile {
	return &QuestionFile{path: path}
}

func (f *QuestionFile) Load(_ context.Context) ([]domain.Question, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read question file: %w", err)
	}
	var questions []domain.Question
	if err := yaml.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("decode question file %s: %w", f.path, err)
	}
	for i := range questions {
		if img := questions[i].Image; img != nil && strings.TrimSpace(*img) == "" {
			questions[i].Image = nil
		}
	}
	return questions, nil
}
