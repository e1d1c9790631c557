package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Stored quiz documents are loosely typed; every field is optional here and
// defaults are applied explicitly in DecodeQuiz.
type quizDocument struct {
	ID             *string            `json:"id"`
	Title          *string            `json:"title"`
	TimeLimit      *float64           `json:"timeLimit"`
	Questions      []questionDocument `json:"questions"`
	TargetAudience *string            `json:"targetAudience"`
}

type questionDocument struct {
	ID           *string          `json:"id"`
	QuestionText *string          `json:"questionText"`
	ImageLink    *string          `json:"imageLink"`
	Options      []optionDocument `json:"options"`
	Marks        *float64         `json:"marks"`
}

type optionDocument struct {
	ID        *string `json:"id"`
	Text      *string `json:"text"`
	IsCorrect *bool   `json:"isCorrect"`
}

// DecodeQuiz coerces a stored quiz document into a Quiz. Missing marks default
// to 1, a missing image link is empty, unknown audiences mean all, negative
// time limits mean untimed, and missing ids are derived from position.
func DecodeQuiz(data []byte) (Quiz, error) {
	var doc quizDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Quiz{}, fmt.Errorf("decode quiz document: %w", err)
	}

	quiz := Quiz{
		ID:             deref(doc.ID),
		Title:          strings.TrimSpace(deref(doc.Title)),
		TargetAudience: AudienceAll,
		Questions:      make([]Question, 0, len(doc.Questions)),
	}
	if doc.TimeLimit != nil && *doc.TimeLimit > 0 {
		quiz.TimeLimit = int(*doc.TimeLimit)
	}
	if doc.TargetAudience != nil {
		if audience := Audience(*doc.TargetAudience); audience.Valid() && audience != "" {
			quiz.TargetAudience = audience
		}
	}

	for i, qd := range doc.Questions {
		question := Question{
			ID:           deref(qd.ID),
			QuestionText: deref(qd.QuestionText),
			ImageLink:    deref(qd.ImageLink),
			Marks:        1,
			Options:      make([]Option, 0, len(qd.Options)),
		}
		if question.ID == "" {
			question.ID = "q" + strconv.Itoa(i+1)
		}
		if qd.Marks != nil {
			question.Marks = *qd.Marks
		}
		for j, od := range qd.Options {
			option := Option{ID: deref(od.ID), Text: deref(od.Text)}
			if option.ID == "" {
				option.ID = question.ID + "-o" + strconv.Itoa(j+1)
			}
			if od.IsCorrect != nil {
				option.IsCorrect = *od.IsCorrect
			}
			question.Options = append(question.Options, option)
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz, nil
}

// ValidateQuiz checks authored quiz content before it is stored.
func ValidateQuiz(quiz Quiz) error {
	if strings.TrimSpace(quiz.ID) == "" || strings.TrimSpace(quiz.Title) == "" {
		return fmt.Errorf("%w: id and title are required", ErrInvalidQuiz)
	}
	if quiz.TimeLimit < 0 {
		return fmt.Errorf("%w: negative time limit", ErrInvalidQuiz)
	}
	if !quiz.TargetAudience.Valid() {
		return fmt.Errorf("%w: unknown audience %q", ErrInvalidQuiz, quiz.TargetAudience)
	}
	if len(quiz.Questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidQuiz)
	}
	seen := make(map[string]struct{}, len(quiz.Questions))
	for _, q := range quiz.Questions {
		if q.ID == "" {
			return fmt.Errorf("%w: question without id", ErrInvalidQuiz)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvalidQuiz, q.ID)
		}
		seen[q.ID] = struct{}{}
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %q needs at least two options", ErrInvalidQuiz, q.ID)
		}
		if q.Marks < 0 {
			return fmt.Errorf("%w: question %q has negative marks", ErrInvalidQuiz, q.ID)
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
