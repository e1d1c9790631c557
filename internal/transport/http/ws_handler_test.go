package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"studyhub/internal/app"
	"studyhub/internal/auth"
	"studyhub/internal/domain"
	"studyhub/internal/infra/memory"
)

func newTestService(quizzes map[string]domain.Quiz) (*app.QuizService, *memory.ResultStore) {
	results := memory.NewResultStore()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(quizzes), time.Minute)
	return app.NewQuizService(memory.NewSessionStore(), quizRepo, results), results
}

func TestWebSocketSubmitFlow(t *testing.T) {
	service, _ := newTestService(sampleQuizzes())
	wsHandler := NewWSHandler(service, auth.NewAuthenticator("secret"), nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := dial(t, server, "/ws?quizId=quiz-1")
	defer conn.Close()

	// Expect the initial state first.
	msg := readNext(conn, t, "state")
	if msg.Payload["state"] != string(app.StateNotStarted) {
		t.Fatalf("expected not_started, got %v", msg.Payload["state"])
	}

	send(t, conn, "requestStart", nil)
	readUntil(t, conn, func(m wsMessage) bool { return m.Payload["dialog"] == string(app.DialogStart) })
	send(t, conn, "confirmStart", nil)
	readUntil(t, conn, func(m wsMessage) bool { return m.Payload["state"] == string(app.StateInProgress) })

	send(t, conn, "answer", map[string]any{"questionId": "q1", "optionId": "o2"})
	readUntil(t, conn, func(m wsMessage) bool { return m.Type == "state" && m.Payload["answered"] == float64(1) })

	send(t, conn, "submit", nil)
	result := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "result" })
	if result.Payload["score"] != float64(1) || result.Payload["percentage"] != float64(100) {
		t.Fatalf("unexpected result payload %+v", result.Payload)
	}
	if result.Payload["reason"] != string(domain.CompletionSubmitted) {
		t.Fatalf("unexpected reason %v", result.Payload["reason"])
	}
}

func TestWebSocketReportsActionErrors(t *testing.T) {
	service, _ := newTestService(sampleQuizzes())
	server := httptest.NewServer(http.HandlerFunc(NewWSHandler(service, nil, nil).ServeWS))
	defer server.Close()

	conn := dial(t, server, "/?quizId=quiz-1")
	defer conn.Close()
	readNext(conn, t, "state")

	send(t, conn, "answer", map[string]any{"questionId": "q1", "optionId": "o2"})
	msg := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "error" })
	if msg.Payload["message"] != domain.ErrNotStarted.Error() {
		t.Fatalf("unexpected error %v", msg.Payload["message"])
	}

	send(t, conn, "dance", nil)
	msg = readUntil(t, conn, func(m wsMessage) bool { return m.Type == "error" })
	if msg.Payload["message"] != "unsupported message type" {
		t.Fatalf("unexpected error %v", msg.Payload["message"])
	}
}

func TestWebSocketAudienceDenied(t *testing.T) {
	quizzes := sampleQuizzes()
	members := quizzes["quiz-1"]
	members.ID = "members"
	members.TargetAudience = domain.AudienceAuthenticated
	quizzes["members"] = members
	service, _ := newTestService(quizzes)
	server := httptest.NewServer(http.HandlerFunc(NewWSHandler(service, auth.NewAuthenticator("secret"), nil).ServeWS))
	defer server.Close()

	conn := dial(t, server, "/?quizId=members")
	defer conn.Close()
	msg := readNext(conn, t, "error")
	if msg.Payload["message"] != domain.ErrAudienceDenied.Error() {
		t.Fatalf("unexpected error %v", msg.Payload["message"])
	}
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	service, _ := newTestService(sampleQuizzes())
	server := httptest.NewServer(http.HandlerFunc(NewWSHandler(service, auth.NewAuthenticator("secret"), nil).ServeWS))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/?quizId=quiz-1&token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

type wsMessage struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func dial(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) wsMessage {
	t.Helper()
	var msg wsMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if expect != "" && msg.Type != expect {
		raw, _ := json.Marshal(msg)
		t.Fatalf("expected %s, got %s", expect, raw)
	}
	return msg
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(wsMessage) bool) wsMessage {
	t.Helper()
	for i := 0; i < 20; i++ {
		msg := readNext(conn, t, "")
		if match(msg) {
			return msg
		}
	}
	t.Fatalf("expected message not received")
	return wsMessage{}
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:             "quiz-1",
			Title:          "Arithmetic",
			TargetAudience: domain.AudienceAll,
			Questions: []domain.Question{
				{
					ID:           "q1",
					QuestionText: "What is 2 + 2?",
					Options: []domain.Option{
						{ID: "o1", Text: "3"},
						{ID: "o2", Text: "4", IsCorrect: true},
						{ID: "o3", Text: "5"},
					},
					Marks: 1,
				},
			},
		},
	}
}
