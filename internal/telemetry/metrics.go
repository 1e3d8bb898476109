package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultCorrect   = "correct"
	ResultIncorrect = "incorrect"
	ResultNotFound  = "not_found"
	ResultOK        = "ok"
	ResultError     = "error"
)

var (
	// AnswerChecks counts oracle calls by verdict.
	AnswerChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quiz",
		Name:      "answer_checks_total",
		Help:      "Answer checks by result.",
	}, []string{"result"})

	// QuestionLoads counts question source loads by outcome.
	QuestionLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quiz",
		Name:      "question_loads_total",
		Help:      "Question source loads by result.",
	}, []string{"result"})

	// PlaySessions tracks live websocket play sessions.
	PlaySessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "quiz",
		Name:      "play_sessions",
		Help:      "Live websocket play sessions.",
	})
)
