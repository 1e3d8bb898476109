package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"staar-quiz-service/internal/domain"
	"staar-quiz-service/internal/telemetry"
)

const reloadRetryBackoff = 30 * time.Second

// QuestionSource supplies full question records (static list, file, spreadsheet, database).
type QuestionSource interface {
	Load(ctx context.Context) ([]domain.Question, error)
}

// QuestionStore is the sole holder of the answer key. Callers only ever see it through
// ListPublicQuestions and CheckAnswer.
type QuestionStore struct {
	source QuestionSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	set       *questionSet
	expiresAt time.Time
}

type questionSet struct {
	ordered []domain.Question
	byID    map[int]domain.Question
}

// NewQuestionStore builds a store over source. A zero ttl loads the source once and keeps the
// set for the lifetime of the store; a positive ttl reloads it after ttl (plus jitter).
func NewQuestionStore(source QuestionSource, ttl time.Duration) *QuestionStore {
	return &QuestionStore{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ListPublicQuestions returns the active set in canonical order without answers. When the
// source cannot be loaded it returns an empty slice together with ErrStoreUnavailable.
func (s *QuestionStore) ListPublicQuestions(ctx context.Context) ([]domain.PublicQuestion, error) {
	set, err := s.activeSet(ctx)
	if err != nil {
		return []domain.PublicQuestion{}, err
	}
	out := make([]domain.PublicQuestion, 0, len(set.ordered))
	for _, q := range set.ordered {
		out = append(out, q.Public())
	}
	return out, nil
}

// CheckAnswer reports whether selectedOption is the correct index for the question. The
// correct index is revealed only for a wrong guess.
func (s *QuestionStore) CheckAnswer(ctx context.Context, questionID, selectedOption int) (domain.CheckResult, error) {
	set, err := s.activeSet(ctx)
	if err != nil {
		return domain.CheckResult{}, err
	}
	question, ok := set.byID[questionID]
	if !ok {
		telemetry.AnswerChecks.WithLabelValues(telemetry.ResultNotFound).Inc()
		return domain.CheckResult{}, domain.ErrQuestionNotFound
	}
	if question.CorrectAnswer == selectedOption {
		telemetry.AnswerChecks.WithLabelValues(telemetry.ResultCorrect).Inc()
		return domain.CheckResult{IsCorrect: true}, nil
	}
	telemetry.AnswerChecks.WithLabelValues(telemetry.ResultIncorrect).Inc()
	correct := question.CorrectAnswer
	return domain.CheckResult{IsCorrect: false, CorrectAnswer: &correct}, nil
}

func (s *QuestionStore) activeSet(ctx context.Context) (*questionSet, error) {
	now := s.clock()

	s.mu.RLock()
	if s.set != nil && (s.ttl <= 0 || s.expiresAt.After(now)) {
		set := s.set
		s.mu.RUnlock()
		return set, nil
	}
	s.mu.RUnlock()

	result, err, _ := s.sf.Do("questions", func() (interface{}, error) {
		now := s.clock()
		s.mu.RLock()
		if s.set != nil && (s.ttl <= 0 || s.expiresAt.After(now)) {
			set := s.set
			s.mu.RUnlock()
			return set, nil
		}
		stale := s.set
		s.mu.RUnlock()

		set, err := s.load(ctx)
		if err != nil {
			telemetry.QuestionLoads.WithLabelValues(telemetry.ResultError).Inc()
			if stale != nil {
				slog.WarnContext(ctx, "question store: reload failed, serving previous set", "error", err)
				s.mu.Lock()
				s.expiresAt = now.Add(s.retryBackoff())
				s.mu.Unlock()
				return stale, nil
			}
			return nil, err
		}
		telemetry.QuestionLoads.WithLabelValues(telemetry.ResultOK).Inc()

		s.mu.Lock()
		s.set = set
		s.expiresAt = now.Add(s.ttlWithJitter())
		s.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*questionSet), nil
}

func (s *QuestionStore) load(ctx context.Context) (*questionSet, error) {
	questions, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	set, err := newQuestionSet(questions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return set, nil
}

func newQuestionSet(questions []domain.Question) (*questionSet, error) {
	set := &questionSet{
		ordered: make([]domain.Question, 0, len(questions)),
		byID:    make(map[int]domain.Question, len(questions)),
	}
	var errs []error
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := set.byID[q.ID]; dup {
			errs = append(errs, fmt.Errorf("question %d: duplicate id", q.ID))
			continue
		}
		set.byID[q.ID] = q
		set.ordered = append(set.ordered, q)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return set, nil
}

// ValidateQuestions applies the checks a question set must pass before a store will serve it.
func ValidateQuestions(questions []domain.Question) error {
	_, err := newQuestionSet(questions)
	return err
}

// retryBackoff is how long a stale set is served before the source is tried again.
func (s *QuestionStore) retryBackoff() time.Duration {
	if s.ttl < reloadRetryBackoff {
		return s.ttl
	}
	return reloadRetryBackoff
}

func (s *QuestionStore) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread reloads across instances
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
