package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"staar-quiz-service/internal/domain"
)

// ImagePrefix is prepended to image cells that are not absolute URLs.
const ImagePrefix = "/quiz-images/"

var answerLetters = map[string]int{"A": 0, "B": 1, "C": 2, "D": 3}

// SheetSource loads questions from the first sheet of a workbook. The header row names the
// columns Question, A, B, C, D, Answer and optionally Image; each data row is a question whose
// id is its 1-based row ordinal.
type SheetSource struct {
	path string
}

func NewSheetSource(path string) *SheetSource {
	return &SheetSource{path: path}
}

func (s *SheetSource) Load(ctx context.Context) ([]domain.Question, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook %s has no sheets", s.path)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return []domain.Question{}, nil
	}

	columns := headerIndex(rows[0])
	if _, ok := columns["question"]; !ok {
		return nil, fmt.Errorf("sheet %s: missing Question column", sheet)
	}

	questions := make([]domain.Question, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		id := len(questions) + 1
		cell := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return row[idx]
		}

		letter := strings.ToUpper(strings.TrimSpace(cell("answer")))
		correct, ok := answerLetters[letter]
		if !ok {
			slog.WarnContext(ctx, "xlsx: unknown answer letter, defaulting to A", "row", i+2, "answer", letter)
		}

		questions = append(questions, domain.Question{
			ID:            id,
			Text:          cell("question"),
			Options:       []string{cell("a"), cell("b"), cell("c"), cell("d")},
			CorrectAnswer: correct,
			Image:         imageRef(cell("image")),
		})
	}
	return questions, nil
}

func headerIndex(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return columns
}

func imageRef(raw string) *string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	if !strings.HasPrefix(value, "http") {
		value = ImagePrefix + value
	}
	return &value
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
