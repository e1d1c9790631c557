package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"studyhub/internal/app"
	"studyhub/internal/domain"
	"studyhub/internal/gpa"
	"studyhub/internal/metrics"
)

const maxQuizBody = 1 << 20

// Handler serves the REST API.
type Handler struct {
	service  *app.QuizService
	catalog  *gpa.Catalog
	engine   *gpa.Engine
	auth     Authenticator
	metrics  *metrics.Metrics
	logger   *zap.Logger
	validate *validator.Validate
}

type errorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

type gpaRequest struct {
	Level   string                `json:"level" validate:"required"`
	Stream  string                `json:"stream" validate:"required"`
	Group   string                `json:"group"`
	Remove  []string              `json:"remove" validate:"dive,required"`
	Add     []string              `json:"add" validate:"dive,required"`
	Grades  map[string]gpa.Grades `json:"grades" validate:"required"`
	Partial bool                  `json:"partial"`
}

type gpaResponse struct {
	gpa.Report
	Subjects []domain.SubjectDetail `json:"subjects"`
}

type levelResponse struct {
	Level      string                 `json:"level"`
	Compulsory []domain.SubjectDetail `json:"compulsory"`
	Optional   []domain.SubjectDetail `json:"optional"`
	Scale      []domain.GradePoint    `json:"scale"`
}

// quizSummary describes a quiz without its answers.
type quizSummary struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	TimeLimit      int             `json:"timeLimit"`
	TargetAudience domain.Audience `json:"targetAudience"`
	QuestionCount  int             `json:"questionCount"`
	TotalMarks     float64         `json:"totalMarks"`
}

func summarize(quiz domain.Quiz) quizSummary {
	return quizSummary{
		ID:             quiz.ID,
		Title:          quiz.Title,
		TimeLimit:      quiz.TimeLimit,
		TargetAudience: quiz.TargetAudience,
		QuestionCount:  len(quiz.Questions),
		TotalMarks:     quiz.TotalMarks(),
	}
}

func (h *Handler) Levels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"levels": h.catalog.LevelNames(),
		"scale":  h.catalog.GradeScale(),
	})
}

func (h *Handler) CatalogLevel(w http.ResponseWriter, r *http.Request) {
	level := mux.Vars(r)["level"]
	compulsory, optional, err := h.catalog.Subjects(level)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, levelResponse{
		Level:      level,
		Compulsory: compulsory,
		Optional:   optional,
		Scale:      h.catalog.GradeScale(),
	})
}

func (h *Handler) Curriculum(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	selection, err := h.catalog.Select(mux.Vars(r)["level"], query.Get("stream"), query.Get("group"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selection)
}

// CalculateGPA builds the subject list from the request and computes its GPA.
// Unless partial is set every required grade must be chosen.
func (h *Handler) CalculateGPA(w http.ResponseWriter, r *http.Request) {
	var req gpaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationMessage(err)})
		return
	}

	selection, err := h.catalog.Select(req.Level, req.Stream, req.Group)
	if err != nil {
		h.writeError(w, err)
		return
	}
	for _, code := range req.Remove {
		if err := selection.Remove(code); err != nil {
			h.writeError(w, err)
			return
		}
	}
	for _, code := range req.Add {
		if err := selection.Add(code); err != nil {
			h.writeError(w, err)
			return
		}
	}

	inputs := selection.Inputs(req.Grades)
	if !req.Partial {
		if err := gpa.ValidateComplete(inputs); err != nil {
			h.writeError(w, err)
			return
		}
	}
	report := h.engine.Evaluate(inputs)
	h.metrics.GPAComputed(string(report.Division))
	writeJSON(w, http.StatusOK, gpaResponse{Report: report, Subjects: selection.Subjects()})
}

func (h *Handler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identify(w, r)
	if !ok {
		return
	}
	quizzes, err := h.service.ListQuizzes(r.Context(), identity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]quizSummary, 0, len(quizzes))
	for _, quiz := range quizzes {
		out = append(out, summarize(quiz))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetQuiz returns the full quiz to administrators and a summary otherwise.
func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identify(w, r)
	if !ok {
		return
	}
	quiz, err := h.service.GetQuiz(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	if identity.IsAdmin() {
		writeJSON(w, http.StatusOK, quiz)
		return
	}
	if !quiz.TargetAudience.Admits(identity) {
		h.writeError(w, domain.ErrAudienceDenied)
		return
	}
	writeJSON(w, http.StatusOK, summarize(quiz))
}

func (h *Handler) SaveQuiz(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identify(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxQuizBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	quiz, err := domain.DecodeQuiz(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := h.service.SaveQuiz(r.Context(), identity, quiz); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summarize(quiz))
}

// Explain returns the explanation of a bookmarked question. Only the caller
// who owns the session may ask.
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identify(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	session, err := h.service.Session(vars["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	if owner := session.Identity(); owner != nil && (identity == nil || identity.UserID != owner.UserID) {
		h.writeError(w, domain.ErrForbidden)
		return
	}
	text, err := h.service.Explain(r.Context(), session.ID(), vars["questionId"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"questionId": vars["questionId"], "explanation": text})
}

func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identify(w, r)
	if !ok {
		return
	}
	results, err := h.service.Results(r.Context(), identity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) identify(w http.ResponseWriter, r *http.Request) (*domain.Identity, bool) {
	if h.auth == nil {
		return nil, true
	}
	identity, err := h.auth.Authenticate(r)
	if err != nil {
		h.writeError(w, domain.ErrUnauthenticated)
		return nil, false
	}
	return identity, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var incomplete *gpa.IncompleteError
	if errors.As(err, &incomplete) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Missing: incomplete.Codes})
		return
	}
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrUnknownLevel),
		errors.Is(err, domain.ErrUnknownStream):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrAudienceDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidQuiz),
		errors.Is(err, domain.ErrUnknownSubject),
		errors.Is(err, domain.ErrCompulsorySubject),
		errors.Is(err, domain.ErrNotBookmarked):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return ve[0].Field() + " failed on " + ve[0].Tag()
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
