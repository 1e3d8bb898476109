package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"staar-quiz-service/internal/app"
	"staar-quiz-service/internal/domain"
	"staar-quiz-service/internal/infra/memory"
)

func TestSessionScenarios(t *testing.T) {
	tests := map[string]struct {
		answer        int
		wantCorrect   bool
		wantReveal    *int
		wantScore     int
		wantHighScore bool
	}{
		"correct answer scores and flags a high score": {
			answer:        2,
			wantCorrect:   true,
			wantScore:     1,
			wantHighScore: true,
		},
		"wrong answer reveals the correct index": {
			answer:     0,
			wantReveal: intPtr(2),
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, _ := newTestSession(t, oneQuestion())
			require.NoError(t, s.StartQuiz(context.Background(), 20))

			snap := s.Snapshot()
			require.Equal(t, app.StatePlaying, snap.State)
			require.Equal(t, 1, snap.Total)
			require.Equal(t, 1, snap.Question.ID)
			require.Equal(t, 20, snap.TimeLeft)

			res, err := s.SubmitAnswer(context.Background(), tt.answer)
			require.NoError(t, err)
			require.Equal(t, tt.wantCorrect, res.IsCorrect)
			require.Equal(t, tt.wantReveal, res.CorrectAnswer)

			snap = s.Snapshot()
			require.Equal(t, app.StateFeedback, snap.State)
			require.Equal(t, tt.wantScore, snap.Score)
			require.Equal(t, tt.wantReveal, snap.CorrectAnswerIndex)
			require.Equal(t, intPtr(tt.answer), snap.SelectedOption)

			require.NoError(t, s.Advance())
			snap = s.Snapshot()
			require.Equal(t, app.StateFinished, snap.State)
			require.Equal(t, tt.wantScore, snap.Score)
			require.Equal(t, tt.wantHighScore, snap.HighScore)
		})
	}
}

func TestStartWithEmptyStoreStaysInStart(t *testing.T) {
	s, _ := newTestSession(t, []domain.Question{})

	err := s.StartQuiz(context.Background(), 20)
	require.ErrorIs(t, err, domain.ErrNoQuestions)

	snap := s.Snapshot()
	require.Equal(t, app.StateStart, snap.State)
	require.False(t, snap.Loading)
	require.NotEmpty(t, snap.Error)
}

func TestStartWithUnavailableStoreStaysInStart(t *testing.T) {
	s := app.NewSession(app.NewQuestionStore(failingSource{}, 0), app.WithTicker(newManualClock().NewTicker))

	err := s.StartQuiz(context.Background(), 20)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	require.Equal(t, app.StateStart, s.Snapshot().State)
	require.False(t, s.Snapshot().Loading)
}

func TestStartRejectsInvalidTimer(t *testing.T) {
	s, _ := newTestSession(t, oneQuestion())
	require.ErrorIs(t, s.StartQuiz(context.Background(), 0), domain.ErrInvalidTimer)
	require.Equal(t, app.StateStart, s.Snapshot().State)
}

func TestTransitionsOutsideTheirStateFail(t *testing.T) {
	s, _ := newTestSession(t, oneQuestion())

	_, err := s.SubmitAnswer(context.Background(), 0)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	require.ErrorIs(t, s.Advance(), domain.ErrInvalidTransition)

	require.NoError(t, s.StartQuiz(context.Background(), 20))
	require.ErrorIs(t, s.StartQuiz(context.Background(), 20), domain.ErrInvalidTransition)
	require.ErrorIs(t, s.Advance(), domain.ErrInvalidTransition)
}

func TestScoreAccumulatesAcrossQuestions(t *testing.T) {
	questions := memory.DefaultQuestions()[:4]
	s, _ := newTestSession(t, questions)
	require.NoError(t, s.StartQuiz(context.Background(), 30))

	// correct, wrong, correct, correct
	answers := []int{
		questions[0].CorrectAnswer,
		(questions[1].CorrectAnswer + 1) % domain.OptionCount,
		questions[2].CorrectAnswer,
		questions[3].CorrectAnswer,
	}
	for i, answer := range answers {
		snap := s.Snapshot()
		require.Equal(t, i, snap.CurrentIndex)
		require.Equal(t, 30, snap.TimeLeft, "timer reset for question %d", i)
		require.Nil(t, snap.IsCorrect, "feedback cleared for question %d", i)

		_, err := s.SubmitAnswer(context.Background(), answer)
		require.NoError(t, err)
		require.NoError(t, s.Advance())
	}

	snap := s.Snapshot()
	require.Equal(t, app.StateFinished, snap.State)
	require.Equal(t, 3, snap.Score)
	require.Equal(t, 75, snap.Accuracy)
	require.True(t, snap.HighScore)
}

func TestQuestionLimitTruncatesQuiz(t *testing.T) {
	store := app.NewQuestionStore(memory.NewStaticSource(memory.DefaultQuestions()), 0)
	s := app.NewSession(store, app.WithTicker(newManualClock().NewTicker), app.WithQuestionLimit(5))
	t.Cleanup(s.Close)

	require.NoError(t, s.StartQuiz(context.Background(), 20))
	require.Equal(t, 5, s.Snapshot().Total)
}

func TestCountdownTimesOutAsWrongAnswer(t *testing.T) {
	s, clock := newTestSession(t, oneQuestion())
	require.NoError(t, s.StartQuiz(context.Background(), 3))

	clock.Tick(t)
	require.Eventually(t, func() bool { return s.Snapshot().TimeLeft == 2 }, time.Second, 5*time.Millisecond)
	clock.Tick(t)
	clock.Tick(t)
	require.Eventually(t, func() bool { return s.Snapshot().State == app.StateFeedback }, time.Second, 5*time.Millisecond)

	snap := s.Snapshot()
	require.Equal(t, 0, snap.TimeLeft)
	require.Equal(t, 0, snap.Score)
	require.True(t, snap.TimedOut)
	require.NotNil(t, snap.IsCorrect)
	require.False(t, *snap.IsCorrect)
	require.Nil(t, snap.CorrectAnswerIndex, "answer stays withheld on timeout")
	require.Equal(t, 1, clock.Created(), "exactly one countdown for one question")
}

func TestRevealOnTimeout(t *testing.T) {
	clock := newManualClock()
	store := app.NewQuestionStore(memory.NewStaticSource(oneQuestion()), 0)
	s := app.NewSession(store, app.WithTicker(clock.NewTicker), app.WithRevealOnTimeout(true))
	t.Cleanup(s.Close)

	require.NoError(t, s.StartQuiz(context.Background(), 1))
	clock.Tick(t)

	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.State == app.StateFeedback && snap.CorrectAnswerIndex != nil
	}, time.Second, 5*time.Millisecond)
	snap := s.Snapshot()
	require.Equal(t, 2, *snap.CorrectAnswerIndex)
	require.Equal(t, 0, snap.Score)
}

func TestSubmitCancelsCountdown(t *testing.T) {
	s, clock := newTestSession(t, memory.DefaultQuestions()[:2])
	require.NoError(t, s.StartQuiz(context.Background(), 5))
	first := clock.Latest()

	_, err := s.SubmitAnswer(context.Background(), 0)
	require.NoError(t, err)
	require.True(t, first.Stopped(), "countdown stopped on submit")
	first.Send()
	require.Never(t, func() bool { return s.Snapshot().TimeLeft != 5 }, 50*time.Millisecond, 5*time.Millisecond,
		"a stale tick must not reach the session")

	require.NoError(t, s.Advance())
	require.Equal(t, 2, clock.Created())
	second := clock.Latest()
	require.False(t, second.Stopped())

	clock.Tick(t)
	require.Eventually(t, func() bool { return s.Snapshot().TimeLeft == 4 }, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, s.Snapshot().CurrentIndex)
}

func TestFailedCheckKeepsPlaying(t *testing.T) {
	tests := map[string]struct {
		backend *scriptedBackend
		wantErr error
	}{
		"question not found": {
			backend: &scriptedBackend{checkErr: domain.ErrQuestionNotFound},
			wantErr: domain.ErrQuestionNotFound,
		},
		"transport failure": {
			backend: &scriptedBackend{checkErr: errors.New("connection refused")},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			clock := newManualClock()
			tt.backend.questions = []domain.PublicQuestion{{ID: 7, Text: "q", Options: []string{"a", "b", "c", "d"}}}
			s := app.NewSession(tt.backend, app.WithTicker(clock.NewTicker))
			t.Cleanup(s.Close)
			require.NoError(t, s.StartQuiz(context.Background(), 10))

			_, err := s.SubmitAnswer(context.Background(), 1)
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}

			snap := s.Snapshot()
			require.Equal(t, app.StatePlaying, snap.State)
			require.Equal(t, 0, snap.Score)
			require.False(t, snap.Loading)
			require.Nil(t, snap.SelectedOption)
			require.NotEmpty(t, snap.Error)
			require.Equal(t, 2, clock.Created(), "countdown resumed")

			// safe to retry once the store recovers
			tt.backend.setCheckErr(nil)
			res, err := s.SubmitAnswer(context.Background(), 1)
			require.NoError(t, err)
			require.True(t, res.IsCorrect)
			require.Equal(t, 1, s.Snapshot().Score)
		})
	}
}

func TestSubmitWhileCheckInFlightIsBusy(t *testing.T) {
	release := make(chan struct{})
	backend := &scriptedBackend{
		questions: []domain.PublicQuestion{{ID: 1, Text: "q", Options: []string{"a", "b", "c", "d"}}},
		block:     release,
	}
	s := app.NewSession(backend, app.WithTicker(newManualClock().NewTicker))
	t.Cleanup(s.Close)
	require.NoError(t, s.StartQuiz(context.Background(), 10))

	done := make(chan error, 1)
	go func() {
		_, err := s.SubmitAnswer(context.Background(), 1)
		done <- err
	}()
	require.Eventually(t, func() bool { return s.Snapshot().Loading }, time.Second, 5*time.Millisecond)

	_, err := s.SubmitAnswer(context.Background(), 1)
	require.ErrorIs(t, err, domain.ErrBusy)

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, 1, s.Snapshot().Score)
}

func TestRestartDiscardsInFlightCheck(t *testing.T) {
	release := make(chan struct{})
	backend := &scriptedBackend{
		questions: []domain.PublicQuestion{{ID: 1, Text: "q", Options: []string{"a", "b", "c", "d"}}},
		block:     release,
	}
	s := app.NewSession(backend, app.WithTicker(newManualClock().NewTicker))
	t.Cleanup(s.Close)
	require.NoError(t, s.StartQuiz(context.Background(), 10))

	done := make(chan error, 1)
	go func() {
		_, err := s.SubmitAnswer(context.Background(), 1)
		done <- err
	}()
	require.Eventually(t, func() bool { return s.Snapshot().Loading }, time.Second, 5*time.Millisecond)

	s.Restart()
	close(release)
	require.ErrorIs(t, <-done, domain.ErrInvalidTransition)

	snap := s.Snapshot()
	require.Equal(t, app.StateStart, snap.State)
	require.Equal(t, 0, snap.Score)
	require.Equal(t, 0, snap.Total)
}

func TestRestartClearsSession(t *testing.T) {
	s, clock := newTestSession(t, oneQuestion())
	require.NoError(t, s.StartQuiz(context.Background(), 20))
	_, err := s.SubmitAnswer(context.Background(), 2)
	require.NoError(t, err)
	require.NoError(t, s.Advance())

	s.Restart()
	snap := s.Snapshot()
	require.Equal(t, app.StateStart, snap.State)
	require.Equal(t, 0, snap.Score)
	require.Equal(t, 0, snap.Total)
	require.Nil(t, snap.Question)
	require.Nil(t, snap.IsCorrect)
	require.False(t, snap.HighScore)

	require.NoError(t, s.StartQuiz(context.Background(), 10))
	require.Equal(t, 10, s.Snapshot().TimeLeft)
	require.False(t, clock.Latest().Stopped())

	s.Restart()
	require.True(t, clock.Latest().Stopped(), "restart from playing cancels the countdown")
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	s, clock := newTestSession(t, oneQuestion())
	ch, cancel := s.Subscribe()
	defer cancel()

	initial := <-ch
	require.Equal(t, app.StateStart, initial.State)

	require.NoError(t, s.StartQuiz(context.Background(), 20))
	clock.Tick(t)

	require.Eventually(t, func() bool {
		for {
			select {
			case snap := <-ch:
				if snap.State == app.StatePlaying && snap.TimeLeft == 19 {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond)
}

func TestHighScoreThreshold(t *testing.T) {
	require.False(t, app.HighScore(14, 20, 0.7), "exactly 70% is not above the threshold")
	require.True(t, app.HighScore(15, 20, 0.7))
	require.False(t, app.HighScore(0, 0, 0.7))
}

func newTestSession(t *testing.T, questions []domain.Question) (*app.Session, *manualClock) {
	t.Helper()
	clock := newManualClock()
	store := app.NewQuestionStore(memory.NewStaticSource(questions), 0)
	s := app.NewSession(store, app.WithTicker(clock.NewTicker))
	t.Cleanup(s.Close)
	return s, clock
}

func intPtr(v int) *int { return &v }

// manualClock hands out tickers that only fire when the test says so.
type manualClock struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func newManualClock() *manualClock {
	return &manualClock{}
}

func (c *manualClock) NewTicker(time.Duration) app.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	tk := &manualTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, tk)
	return tk
}

func (c *manualClock) Created() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

func (c *manualClock) Latest() *manualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickers[len(c.tickers)-1]
}

// Tick fires the live ticker once.
func (c *manualClock) Tick(t *testing.T) {
	t.Helper()
	if !c.Latest().Send() {
		t.Fatalf("tick was not consumed")
	}
}

type manualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (tk *manualTicker) C() <-chan time.Time { return tk.ch }

func (tk *manualTicker) Stop() {
	tk.mu.Lock()
	tk.stopped = true
	tk.mu.Unlock()
}

func (tk *manualTicker) Stopped() bool {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	return tk.stopped
}

// Send delivers a tick and reports whether a countdown received it.
func (tk *manualTicker) Send() bool {
	select {
	case tk.ch <- time.Now():
		return true
	case <-time.After(100 * time.Millisecond):
		return false
	}
}

type scriptedBackend struct {
	questions []domain.PublicQuestion
	block     chan struct{}

	mu       sync.Mutex
	checkErr error
}

func (b *scriptedBackend) ListPublicQuestions(context.Context) ([]domain.PublicQuestion, error) {
	return b.questions, nil
}

func (b *scriptedBackend) CheckAnswer(_ context.Context, _, selectedOption int) (domain.CheckResult, error) {
	if b.block != nil {
		<-b.block
	}
	b.mu.Lock()
	err := b.checkErr
	b.mu.Unlock()
	if err != nil {
		return domain.CheckResult{}, err
	}
	return domain.CheckResult{IsCorrect: selectedOption == 1}, nil
}

func (b *scriptedBackend) setCheckErr(err error) {
	b.mu.Lock()
	b.checkErr = err
	b.mu.Unlock()
}
