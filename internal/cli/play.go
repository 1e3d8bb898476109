package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"staar-quiz-service/internal/app"
	"staar-quiz-service/internal/config"
	"staar-quiz-service/internal/domain"
	transport "staar-quiz-service/internal/transport/http"
)

// NewPlayCmd plays the quiz in the terminal, against the configured source or a remote server.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		serverURL string
		timer     int
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var qb app.QuestionBackend
			if serverURL != "" {
				qb = transport.NewClient(serverURL, nil)
			} else {
				b, err := newBackend(ctx, cfg)
				if err != nil {
					return err
				}
				defer b.Close()
				qb = b.store
			}
			if timer <= 0 {
				timer = cfg.Quiz.QuestionTimer
			}

			session := app.NewSession(qb, sessionOptions(cfg.Quiz)...)
			return runPlay(ctx, session, timer, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "play against a running quiz server, e.g. http://localhost:8080")
	cmd.Flags().IntVar(&timer, "timer", 0, "seconds per question (10, 20, 30 or 60; defaults to quiz.question_timer)")
	return cmd
}

func runPlay(ctx context.Context, session *app.Session, timer int, in io.Reader, out io.Writer) error {
	defer session.Close()
	updates, cancel := session.Subscribe()
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	r := &renderer{out: out, timer: timer}
	// drain renders snapshots already published; session calls broadcast before returning.
	drain := func() {
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				r.render(snap)
			default:
				return
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			r.render(snap)
		case line, ok := <-lines:
			if !ok || line == "q" {
				drain()
				return nil
			}
			drain()
			if err := handleInput(ctx, session, timer, line); err != nil {
				fmt.Fprintf(out, "! %v\n", err)
			}
		}
	}
}

func handleInput(ctx context.Context, session *app.Session, timer int, line string) error {
	if line == "r" {
		session.Restart()
		return nil
	}

	switch session.Snapshot().State {
	case app.StateStart:
		err := session.StartQuiz(ctx, timer)
		if errors.Is(err, domain.ErrNoQuestions) {
			return errors.New("no questions available, try again later")
		}
		return err
	case app.StatePlaying:
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > domain.OptionCount {
			return fmt.Errorf("choose an option between 1 and %d", domain.OptionCount)
		}
		_, err = session.SubmitAnswer(ctx, n-1)
		return err
	case app.StateFeedback:
		if line == "" || line == "n" {
			return session.Advance()
		}
		return errors.New("press n for the next question")
	default:
		return errors.New("press r to play again or q to quit")
	}
}

type renderer struct {
	out     io.Writer
	timer   int
	lastKey string
	lastTic int
}

func (r *renderer) render(snap app.Snapshot) {
	if snap.Loading {
		return
	}
	key := fmt.Sprintf("%s/%d/%t/%t/%s", snap.State, snap.CurrentIndex, snap.IsCorrect != nil, snap.CorrectAnswerIndex != nil, snap.Error)
	if key == r.lastKey {
		if snap.State == app.StatePlaying && snap.TimeLeft <= 5 && snap.TimeLeft > 0 && snap.TimeLeft != r.lastTic {
			r.lastTic = snap.TimeLeft
			fmt.Fprintf(r.out, "  %ds left\n", snap.TimeLeft)
		}
		return
	}
	r.lastKey = key
	r.lastTic = 0

	switch snap.State {
	case app.StateStart:
		fmt.Fprintln(r.out, "STAAR Math Quiz")
		fmt.Fprintf(r.out, "Press Enter to start (%d seconds per question), q to quit.\n", r.timer)
	case app.StatePlaying:
		if snap.Question == nil {
			return
		}
		q := snap.Question
		fmt.Fprintf(r.out, "\nQuestion %d/%d (score %d, %ds)\n%s\n", snap.CurrentIndex+1, snap.Total, snap.Score, snap.TimeLeft, q.Text)
		if q.Image != nil {
			fmt.Fprintf(r.out, "  [image: %s]\n", *q.Image)
		}
		for i, opt := range q.Options {
			fmt.Fprintf(r.out, "  %d) %s\n", i+1, opt)
		}
		fmt.Fprintf(r.out, "Answer 1-%d:\n", len(q.Options))
	case app.StateFeedback:
		switch {
		case snap.IsCorrect != nil && *snap.IsCorrect:
			fmt.Fprintln(r.out, "Correct!")
		case snap.TimedOut:
			fmt.Fprintln(r.out, "Time's up!")
		default:
			fmt.Fprintln(r.out, "Wrong.")
		}
		if snap.CorrectAnswerIndex != nil && snap.Question != nil {
			idx := *snap.CorrectAnswerIndex
			if idx >= 0 && idx < len(snap.Question.Options) {
				fmt.Fprintf(r.out, "The answer was %d) %s\n", idx+1, snap.Question.Options[idx])
			}
		}
		fmt.Fprintln(r.out, "Press n for the next question.")
	case app.StateFinished:
		fmt.Fprintf(r.out, "\nQuiz complete! Score: %d/%d (%d%%)\n", snap.Score, snap.Total, snap.Accuracy)
		if snap.HighScore {
			fmt.Fprintln(r.out, "High score!")
		}
		fmt.Fprintln(r.out, "r to play again, q to quit.")
	}
}
