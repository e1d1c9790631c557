package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"studyhub/internal/app"
	"studyhub/internal/domain"
)

// Authenticator resolves the caller of a request. A nil identity with a nil
// error is an anonymous caller.
type Authenticator interface {
	Authenticate(r *http.Request) (*domain.Identity, error)
}

type WSHandler struct {
	service  *app.QuizService
	auth     Authenticator
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, auth Authenticator, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		auth:    auth,
		logger:  logger,
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

type answerPayload struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

type bookmarkPayload struct {
	QuestionID string `json:"questionId"`
}

// navigatePayload moves by direction ("next" or "prev") or jumps to Index.
type navigatePayload struct {
	Direction string `json:"direction"`
	Index     *int   `json:"index"`
}

type keyPayload struct {
	Key string `json:"key"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and drives one quiz session per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}
	var identity *domain.Identity
	if h.auth != nil {
		id, err := h.auth.Authenticate(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		identity = id
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	session, err := h.service.StartSession(r.Context(), quizID, identity)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.EndSession(session.ID())

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", zap.String("session_id", session.ID()), zap.Error(err))
				return
			}
		}
	}()

	// Views arrive from user actions and from the countdown alike, so the
	// result is announced here exactly once whichever trigger completed it.
	go func() {
		defer close(updatesDone)
		resultSent := false
		for {
			select {
			case view, ok := <-updates:
				if !ok {
					return
				}
				msgs := []outboundMessage[any]{{Type: "state", Payload: view}}
				if view.Result != nil && !resultSent {
					resultSent = true
					msgs = append(msgs, outboundMessage[any]{Type: "result", Payload: view.Result})
				}
				for _, msg := range msgs {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(session, inbound); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

var errInvalidPayload = errors.New("invalid payload")

func (h *WSHandler) dispatch(session *app.Session, inbound inboundMessage) error {
	switch inbound.Type {
	case "requestStart":
		return session.RequestStart()
	case "confirmStart":
		return session.ConfirmStart()
	case "cancelStart":
		session.CancelStart()
		return nil
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		return session.SelectAnswer(payload.QuestionID, payload.OptionID)
	case "bookmark":
		var payload bookmarkPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		return session.ToggleBookmark(payload.QuestionID)
	case "toggleBookmarkedOnly":
		return session.ToggleBookmarkedOnly()
	case "navigate":
		var payload navigatePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		switch {
		case payload.Index != nil:
			return session.GoTo(*payload.Index)
		case payload.Direction == "next":
			return session.Next()
		case payload.Direction == "prev":
			return session.Prev()
		}
		return errInvalidPayload
	case "key":
		var payload keyPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		return session.HandleKey(payload.Key)
	case "requestSubmit":
		return session.RequestSubmit()
	case "cancelSubmit":
		session.CancelSubmit()
		return nil
	case "confirmSubmit":
		_, err := session.ConfirmSubmit()
		return err
	case "submit":
		_, err := session.Submit()
		return err
	case "exit":
		session.Exit()
		return nil
	default:
		return errors.New("unsupported message type")
	}
}
