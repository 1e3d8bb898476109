package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"staar-quiz-service/internal/app"
	"staar-quiz-service/internal/telemetry"
)

// SessionRegistry tracks live play sessions by connection id.
type SessionRegistry interface {
	Register(id string, session *app.Session)
	Remove(id string)
}

// sessionToucher is implemented by registries whose entries expire without activity.
type sessionToucher interface {
	Touch(id string)
}

// WSHandler hosts one quiz Session per websocket connection.
type WSHandler struct {
	backend       app.QuestionBackend
	registry      SessionRegistry
	questionTimer int
	opts          []app.SessionOption
	upgrader      websocket.Upgrader
}

// NewWSHandler builds the play endpoint. questionTimer is used when a start message omits one.
func NewWSHandler(backend app.QuestionBackend, registry SessionRegistry, questionTimer int, opts ...app.SessionOption) *WSHandler {
	if questionTimer <= 0 {
		questionTimer = app.DefaultQuestionTimer
	}
	return &WSHandler{
		backend:       backend,
		registry:      registry,
		questionTimer: questionTimer,
		opts:          opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	QuestionTimer int `json:"questionTimer"`
}

type answerPayload struct {
	Option *int `json:"option"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and plays a quiz over the connection until it closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	session := app.NewSession(h.backend, h.opts...)
	h.registry.Register(id, session)
	telemetry.PlaySessions.Inc()
	defer telemetry.PlaySessions.Dec()
	defer h.registry.Remove(id)
	slog.InfoContext(r.Context(), "play session opened", "session_id", id)

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine touches conn for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				slog.Debug("ws write failed", "session_id", id, "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: "state", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	ctx := r.Context()
	sendErr := func(msg string) {
		select {
		case send <- outboundMessage{Type: "error", Payload: errorPayload{Message: msg}}:
		case <-writerDone:
		}
	}

	toucher, _ := h.registry.(sessionToucher)
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if toucher != nil {
			toucher.Touch(id)
		}
		if err := h.dispatch(ctx, session, inbound); err != nil {
			sendErr(err.Error())
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
	slog.InfoContext(ctx, "play session closed", "session_id", id)
}

type protocolError string

func (e protocolError) Error() string { return string(e) }

func (h *WSHandler) dispatch(ctx context.Context, session *app.Session, msg inboundMessage) error {
	switch msg.Type {
	case "start":
		var payload startPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				return protocolError("invalid start payload")
			}
		}
		timer := payload.QuestionTimer
		if timer == 0 {
			timer = h.questionTimer
		}
		return session.StartQuiz(ctx, timer)
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Option == nil {
			return protocolError("invalid answer payload")
		}
		_, err := session.SubmitAnswer(ctx, *payload.Option)
		return err
	case "next":
		return session.Advance()
	case "restart":
		session.Restart()
		return nil
	default:
		return protocolError("unsupported message type")
	}
}
