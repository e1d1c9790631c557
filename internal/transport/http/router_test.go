package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"studyhub/internal/app"
	"studyhub/internal/auth"
	"studyhub/internal/content"
	"studyhub/internal/domain"
	"studyhub/internal/gpa"
	"studyhub/internal/infra/memory"
	"studyhub/internal/metrics"
)

type apiFixture struct {
	server  *httptest.Server
	service *app.QuizService
	auth    *auth.Authenticator
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	catalog, err := gpa.DefaultCatalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	authenticator := auth.NewAuthenticator("secret")
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	service := app.NewQuizService(memory.NewSessionStore(), quizRepo, memory.NewResultStore(),
		app.WithExplainer(memory.NewExplanationCache(), content.NewMockClient()))

	server := httptest.NewServer(NewRouter(RouterConfig{
		Service: service,
		Catalog: catalog,
		Auth:    authenticator,
		Metrics: metrics.New(prometheus.NewRegistry()),
	}))
	t.Cleanup(server.Close)
	return &apiFixture{server: server, service: service, auth: authenticator}
}

func (f *apiFixture) token(t *testing.T, userID string, role domain.Role) string {
	t.Helper()
	token, err := f.auth.Issue(userID, role, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, f.server.URL+path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestGPAEndpoint(t *testing.T) {
	api := newAPI(t)
	grades := map[string]gpa.Grades{}
	for _, code := range []string{"0031", "0011", "0051", "1011", "3011", "0071"} {
		grades[code] = gpa.Grades{Theory: "A+", Practical: "A+"}
	}

	resp, body := api.do(t, "POST", "/api/v1/gpa", "", map[string]any{
		"level": "11", "stream": "science", "group": "physical", "grades": grades,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body=%v", resp.StatusCode, body)
	}
	if body["gpa"] != float64(4) || body["division"] != string(gpa.Distinction) {
		t.Fatalf("unexpected report %+v", body)
	}
}

func TestGPAEndpointIncomplete(t *testing.T) {
	api := newAPI(t)
	resp, body := api.do(t, "POST", "/api/v1/gpa", "", map[string]any{
		"level": "11", "stream": "science", "group": "physical",
		"grades": map[string]gpa.Grades{"0031": {Theory: "A", Practical: "A"}},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	missing, _ := body["missing"].([]any)
	if len(missing) != 5 {
		t.Fatalf("expected five missing subjects, got %v", body["missing"])
	}

	resp, body = api.do(t, "POST", "/api/v1/gpa", "", map[string]any{
		"level": "11", "stream": "science", "group": "physical", "partial": true,
		"grades": map[string]gpa.Grades{"0031": {Theory: "A", Practical: "A"}},
	})
	if resp.StatusCode != http.StatusOK || body["gpa"] != 3.6 {
		t.Fatalf("partial computation failed: %d %+v", resp.StatusCode, body)
	}
}

func TestGPAEndpointValidation(t *testing.T) {
	api := newAPI(t)
	resp, body := api.do(t, "POST", "/api/v1/gpa", "", map[string]any{"stream": "science"})
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(body["error"].(string), "Level") {
		t.Fatalf("expected validation error, got %d %+v", resp.StatusCode, body)
	}
	resp, _ = api.do(t, "POST", "/api/v1/gpa", "", map[string]any{
		"level": "13", "stream": "science", "grades": map[string]any{},
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown level should be 404, got %d", resp.StatusCode)
	}
	resp, _ = api.do(t, "POST", "/api/v1/gpa", "", map[string]any{
		"level": "11", "stream": "science", "group": "physical", "remove": []string{"0031"}, "grades": map[string]any{},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("removing a compulsory subject should be 400, got %d", resp.StatusCode)
	}
}

func TestCurriculumEndpoint(t *testing.T) {
	api := newAPI(t)
	resp, body := api.do(t, "GET", "/api/v1/curriculum/11?stream=science&group=computing", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	optional, _ := body["optional"].([]any)
	compulsory, _ := body["compulsory"].([]any)
	if len(optional)+len(compulsory) != 6 {
		t.Fatalf("expected six subjects, got %d", len(optional)+len(compulsory))
	}

	resp, body = api.do(t, "GET", "/api/v1/catalog/12", "", nil)
	if resp.StatusCode != http.StatusOK || body["level"] != "12" {
		t.Fatalf("catalog level failed: %d %+v", resp.StatusCode, body)
	}
}

func TestQuizEndpoints(t *testing.T) {
	api := newAPI(t)
	admin := api.token(t, "admin-1", domain.RoleAdmin)
	student := api.token(t, "student-1", domain.RoleStudent)

	quiz := map[string]any{
		"id":    "quiz-2",
		"title": "Capitals",
		"questions": []map[string]any{{
			"questionText": "Capital of Nepal?",
			"options": []map[string]any{
				{"text": "Kathmandu", "isCorrect": true},
				{"text": "Pokhara"},
			},
		}},
	}
	resp, _ := api.do(t, "POST", "/api/v1/quizzes", student, quiz)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("student save should be forbidden, got %d", resp.StatusCode)
	}
	resp, _ = api.do(t, "POST", "/api/v1/quizzes", "", quiz)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous save should be unauthorized, got %d", resp.StatusCode)
	}
	resp, body := api.do(t, "POST", "/api/v1/quizzes", admin, quiz)
	if resp.StatusCode != http.StatusCreated || body["totalMarks"] != float64(1) {
		t.Fatalf("admin save failed: %d %+v", resp.StatusCode, body)
	}

	resp, body = api.do(t, "GET", "/api/v1/quizzes/quiz-2", student, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get quiz: %d", resp.StatusCode)
	}
	if _, leaked := body["questions"]; leaked {
		t.Fatalf("students must not receive answers")
	}
	resp, body = api.do(t, "GET", "/api/v1/quizzes/quiz-2", admin, nil)
	if resp.StatusCode != http.StatusOK || body["questions"] == nil {
		t.Fatalf("admin should receive full quiz")
	}
	resp, _ = api.do(t, "GET", "/api/v1/quizzes/missing", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing quiz should be 404, got %d", resp.StatusCode)
	}
}

func TestExplainAndResultsEndpoints(t *testing.T) {
	api := newAPI(t)
	student := api.token(t, "student-1", domain.RoleStudent)
	identity := &domain.Identity{UserID: "student-1", Role: domain.RoleStudent}

	session, err := api.service.StartSession(context.Background(), "quiz-1", identity)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	_ = session.RequestStart()
	_ = session.ConfirmStart()

	path := "/api/v1/sessions/" + session.ID() + "/explanations/q1"
	resp, _ := api.do(t, "POST", path, student, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unbookmarked explain should be 400, got %d", resp.StatusCode)
	}
	_ = session.ToggleBookmark("q1")
	resp, _ = api.do(t, "POST", path, "", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("other caller should be forbidden, got %d", resp.StatusCode)
	}
	resp, body := api.do(t, "POST", path, student, nil)
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(body["explanation"].(string), "[Mock]") {
		t.Fatalf("explain failed: %d %+v", resp.StatusCode, body)
	}

	_ = session.SelectAnswer("q1", "o2")
	if _, err := session.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	api.service.Close()

	resp, _ = api.do(t, "GET", "/api/v1/results", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous results should be 401, got %d", resp.StatusCode)
	}
	req, _ := http.NewRequest("GET", api.server.URL+"/api/v1/results", nil)
	req.Header.Set("Authorization", "Bearer "+student)
	raw, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	defer raw.Body.Close()
	var results []domain.QuizResult
	if err := json.NewDecoder(raw.Body).Decode(&results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(results) != 1 || results[0].Percentage != 100 {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	api := newAPI(t)
	resp, err := http.Get(api.server.URL + "/healthz")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %v %v", resp, err)
	}
	resp.Body.Close()

	resp, err = http.Get(api.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if !strings.Contains(buf.String(), `http_requests_total{endpoint="/healthz",method="GET",status="200"} 1`) {
		t.Fatalf("expected healthz request counted:\n%s", buf.String())
	}
}
