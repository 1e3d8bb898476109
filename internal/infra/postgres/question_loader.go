package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"staar-quiz-service/internal/domain"
)

// QuestionLoader loads the question table in canonical (position, id) order.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) Load(ctx context.Context) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, text, options, correct_answer, image FROM questions ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	questions := []domain.Question{}
	for rows.Next() {
		var (
			q       domain.Question
			correct int16
		)
		if err := rows.Scan(&q.ID, &q.Text, &q.Options, &correct, &q.Image); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.CorrectAnswer = int(correct)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	return questions, nil
}

// ReplaceQuestions swaps the whole table for questions inside one transaction.
func (l *QuestionLoader) ReplaceQuestions(ctx context.Context, questions []domain.Question) (err error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM questions`); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}

	batch := &pgx.Batch{}
	for i, q := range questions {
		batch.Queue(`INSERT INTO questions (id, position, text, options, correct_answer, image) VALUES ($1, $2, $3, $4, $5, $6)`,
			q.ID, i, q.Text, q.Options, int16(q.CorrectAnswer), q.Image)
	}
	results := tx.SendBatch(ctx, batch)
	for range questions {
		if _, err = results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("insert question: %w", err)
		}
	}
	if err = results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	return tx.Commit(ctx)
}
