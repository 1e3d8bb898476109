package app

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"staar-quiz-service/internal/domain"
)

// State is a quiz session state.
type State string

const (
	StateStart    State = "start"
	StatePlaying  State = "playing"
	StateFeedback State = "feedback"
	StateFinished State = "finished"
)

const (
	// DefaultQuestionTimer is the per-question countdown in seconds.
	DefaultQuestionTimer = 20
	// DefaultHighScoreThreshold is the score ratio that must be exceeded to flag a high score.
	DefaultHighScoreThreshold = 0.7

	// timedOutOption never matches a correct index, so checking it reveals the answer.
	timedOutOption = -1
	revealTimeout  = 5 * time.Second
)

// QuestionBackend is what a session needs from the question store. Both the in-process
// QuestionStore and the HTTP client satisfy it.
type QuestionBackend interface {
	ListPublicQuestions(ctx context.Context) ([]domain.PublicQuestion, error)
	CheckAnswer(ctx context.Context, questionID, selectedOption int) (domain.CheckResult, error)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithTicker replaces the countdown ticker (tests use a manual one).
func WithTicker(fn TickerFunc) SessionOption {
	return func(s *Session) { s.newTicker = fn }
}

// WithQuestionLimit caps the quiz length; zero keeps every question.
func WithQuestionLimit(n int) SessionOption {
	return func(s *Session) { s.limit = n }
}

// WithHighScoreThreshold sets the ratio a final score must exceed to count as a high score.
func WithHighScoreThreshold(threshold float64) SessionOption {
	return func(s *Session) { s.threshold = threshold }
}

// WithRevealOnTimeout makes a timed-out question ask the store for the correct answer.
func WithRevealOnTimeout(reveal bool) SessionOption {
	return func(s *Session) { s.revealOnTimeout = reveal }
}

// Snapshot is a read-only view of a session, suitable for rendering.
type Snapshot struct {
	State              State                  `json:"state"`
	Question           *domain.PublicQuestion `json:"question,omitempty"`
	CurrentIndex       int                    `json:"currentIndex"`
	Total              int                    `json:"total"`
	Score              int                    `json:"score"`
	TimeLeft           int                    `json:"timeLeft"`
	QuestionTimer      int                    `json:"questionTimer"`
	SelectedOption     *int                   `json:"selectedOption"`
	IsCorrect          *bool                  `json:"isCorrect"`
	CorrectAnswerIndex *int                   `json:"correctAnswerIndex"`
	TimedOut           bool                   `json:"timedOut"`
	HighScore          bool                   `json:"highScore"`
	Accuracy           int                    `json:"accuracy"`
	Loading            bool                   `json:"loading"`
	Error              string                 `json:"error,omitempty"`
}

// Session drives one quiz attempt: start -> playing -> feedback -> (playing | finished).
// All methods are safe to call from multiple goroutines; the countdown runs on its own.
type Session struct {
	backend         QuestionBackend
	newTicker       TickerFunc
	limit           int
	threshold       float64
	revealOnTimeout bool

	mu sync.Mutex
	// attempt changes on every start and restart so late store responses can be discarded.
	attempt            uint64
	state              State
	questions          []domain.PublicQuestion
	currentIndex       int
	score              int
	timeLeft           int
	questionTimer      int
	selectedOption     *int
	isCorrect          *bool
	correctAnswerIndex *int
	timedOut           bool
	highScore          bool
	loading            bool
	lastError          string
	countdown          *countdown
	closed             bool
	subscribers        map[chan Snapshot]struct{}
}

// NewSession creates a session in the start state.
func NewSession(backend QuestionBackend, opts ...SessionOption) *Session {
	s := &Session{
		backend:     backend,
		newTicker:   NewTicker,
		threshold:   DefaultHighScoreThreshold,
		state:       StateStart,
		subscribers: make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartQuiz fetches the public questions and enters playing. An empty question list keeps
// the session in start and returns ErrNoQuestions.
func (s *Session) StartQuiz(ctx context.Context, questionTimer int) error {
	if questionTimer <= 0 {
		return domain.ErrInvalidTimer
	}

	s.mu.Lock()
	if s.state != StateStart {
		s.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	if s.loading {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	s.loading = true
	s.lastError = ""
	attempt := s.attempt
	s.broadcastLocked()
	s.mu.Unlock()

	questions, err := s.backend.ListPublicQuestions(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt != attempt || s.closed {
		return domain.ErrInvalidTransition
	}
	s.loading = false
	if err != nil {
		s.lastError = err.Error()
		s.broadcastLocked()
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		s.lastError = domain.ErrNoQuestions.Error()
		s.broadcastLocked()
		return domain.ErrNoQuestions
	}
	if s.limit > 0 && len(questions) > s.limit {
		questions = questions[:s.limit]
	}

	s.attempt++
	s.questions = questions
	s.currentIndex = 0
	s.score = 0
	s.questionTimer = questionTimer
	s.timeLeft = questionTimer
	s.highScore = false
	s.clearFeedbackLocked()
	s.state = StatePlaying
	s.startCountdownLocked()
	s.broadcastLocked()
	return nil
}

// SubmitAnswer checks index for the current question and enters feedback. Store failures
// leave the session playing with the countdown resumed.
func (s *Session) SubmitAnswer(ctx context.Context, index int) (domain.CheckResult, error) {
	s.mu.Lock()
	if s.state != StatePlaying {
		s.mu.Unlock()
		return domain.CheckResult{}, domain.ErrInvalidTransition
	}
	if s.loading {
		s.mu.Unlock()
		return domain.CheckResult{}, domain.ErrBusy
	}
	s.stopCountdownLocked()
	s.loading = true
	s.lastError = ""
	s.selectedOption = intPtr(index)
	attempt := s.attempt
	questionIndex := s.currentIndex
	questionID := s.questions[questionIndex].ID
	s.broadcastLocked()
	s.mu.Unlock()

	result, err := s.backend.CheckAnswer(ctx, questionID, index)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt != attempt || s.closed || s.state != StatePlaying || s.currentIndex != questionIndex {
		return domain.CheckResult{}, domain.ErrInvalidTransition
	}
	s.loading = false
	if err != nil {
		s.selectedOption = nil
		s.lastError = err.Error()
		s.startCountdownLocked()
		s.broadcastLocked()
		return domain.CheckResult{}, fmt.Errorf("check answer: %w", err)
	}

	s.isCorrect = boolPtr(result.IsCorrect)
	if result.IsCorrect {
		s.score++
	} else if result.CorrectAnswer != nil {
		s.correctAnswerIndex = intPtr(*result.CorrectAnswer)
	}
	s.state = StateFeedback
	s.broadcastLocked()
	return result, nil
}

// Advance moves from feedback to the next question, or to finished after the last one.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateFeedback {
		return domain.ErrInvalidTransition
	}

	if s.currentIndex >= len(s.questions)-1 {
		s.state = StateFinished
		s.highScore = HighScore(s.score, len(s.questions), s.threshold)
		s.broadcastLocked()
		return nil
	}

	s.currentIndex++
	s.timeLeft = s.questionTimer
	s.clearFeedbackLocked()
	s.state = StatePlaying
	s.startCountdownLocked()
	s.broadcastLocked()
	return nil
}

// Restart discards the attempt from any state and returns to start.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.broadcastLocked()
}

// Close stops the countdown and closes every subscription. The session is unusable afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.resetLocked()
	s.closed = true
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel that receives a snapshot after every change, countdown ticks
// included. The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// HighScore reports whether score/total exceeds threshold.
func HighScore(score, total int, threshold float64) bool {
	if total <= 0 {
		return false
	}
	return float64(score)/float64(total) > threshold
}

func (s *Session) resetLocked() {
	s.stopCountdownLocked()
	s.attempt++
	s.state = StateStart
	s.questions = nil
	s.currentIndex = 0
	s.score = 0
	s.timeLeft = 0
	s.highScore = false
	s.loading = false
	s.lastError = ""
	s.clearFeedbackLocked()
}

func (s *Session) clearFeedbackLocked() {
	s.selectedOption = nil
	s.isCorrect = nil
	s.correctAnswerIndex = nil
	s.timedOut = false
}

// startCountdownLocked replaces any live countdown with a fresh one.
func (s *Session) startCountdownLocked() {
	s.stopCountdownLocked()
	c := newCountdown(s.newTicker)
	s.countdown = c
	go c.run(s.tick)
}

func (s *Session) stopCountdownLocked() {
	if s.countdown != nil {
		s.countdown.cancel()
		s.countdown = nil
	}
}

// tick handles one elapsed second and reports whether the countdown is done.
func (s *Session) tick(c *countdown) bool {
	s.mu.Lock()
	if s.countdown != c || s.state != StatePlaying {
		s.mu.Unlock()
		return true
	}

	s.timeLeft--
	if s.timeLeft > 0 {
		s.broadcastLocked()
		s.mu.Unlock()
		return false
	}

	// Out of time: forced wrong, no points.
	s.timeLeft = 0
	s.stopCountdownLocked()
	s.isCorrect = boolPtr(false)
	s.timedOut = true
	s.state = StateFeedback
	reveal := s.revealOnTimeout
	attempt := s.attempt
	questionIndex := s.currentIndex
	questionID := s.questions[questionIndex].ID
	s.broadcastLocked()
	s.mu.Unlock()

	if reveal {
		s.revealAnswer(attempt, questionIndex, questionID)
	}
	return true
}

func (s *Session) revealAnswer(attempt uint64, questionIndex, questionID int) {
	ctx, cancel := context.WithTimeout(context.Background(), revealTimeout)
	defer cancel()

	result, err := s.backend.CheckAnswer(ctx, questionID, timedOutOption)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt != attempt || s.closed || s.state != StateFeedback || s.currentIndex != questionIndex {
		return
	}
	if err != nil {
		s.lastError = err.Error()
	} else if result.CorrectAnswer != nil {
		s.correctAnswerIndex = intPtr(*result.CorrectAnswer)
	}
	s.broadcastLocked()
}

func (s *Session) broadcastLocked() {
	if s.closed {
		return
	}
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// slow subscriber: drop the oldest snapshot, the newest one wins
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:              s.state,
		CurrentIndex:       s.currentIndex,
		Total:              len(s.questions),
		Score:              s.score,
		TimeLeft:           s.timeLeft,
		QuestionTimer:      s.questionTimer,
		SelectedOption:     copyInt(s.selectedOption),
		IsCorrect:          copyBool(s.isCorrect),
		CorrectAnswerIndex: copyInt(s.correctAnswerIndex),
		TimedOut:           s.timedOut,
		HighScore:          s.highScore,
		Loading:            s.loading,
		Error:              s.lastError,
	}
	if s.currentIndex < len(s.questions) {
		q := s.questions[s.currentIndex]
		snap.Question = &q
	}
	if len(s.questions) > 0 {
		snap.Accuracy = int(math.Round(float64(s.score) / float64(len(s.questions)) * 100))
	}
	return snap
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	return intPtr(*p)
}

func copyBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	return boolPtr(*p)
}
