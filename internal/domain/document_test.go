package domain

import (
	"errors"
	"testing"
)

func TestDecodeQuizAppliesDefaults(t *testing.T) {
	raw := []byte(`{
		"id": "quiz-1",
		"title": "  Physics  ",
		"timeLimit": -5,
		"targetAudience": "everyone",
		"questions": [
			{"questionText": "Unit of force?", "options": [{"text": "Newton", "isCorrect": true}, {"id": "b", "text": "Joule"}]},
			{"id": "q-two", "marks": 2, "imageLink": "https://img/x.png", "options": []}
		]
	}`)

	quiz, err := DecodeQuiz(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if quiz.Title != "Physics" || quiz.TimeLimit != 0 || quiz.TargetAudience != AudienceAll {
		t.Fatalf("unexpected quiz header: %+v", quiz)
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(quiz.Questions))
	}
	first := quiz.Questions[0]
	if first.ID != "q1" || first.Marks != 1 || first.ImageLink != "" {
		t.Fatalf("unexpected first question: %+v", first)
	}
	if first.Options[0].ID != "q1-o1" || !first.Options[0].IsCorrect || first.Options[1].IsCorrect {
		t.Fatalf("unexpected options: %+v", first.Options)
	}
	if quiz.Questions[1].Marks != 2 || quiz.Questions[1].ImageLink == "" {
		t.Fatalf("unexpected second question: %+v", quiz.Questions[1])
	}
}

func TestDecodeQuizRejectsMalformedJSON(t *testing.T) {
	if _, err := DecodeQuiz([]byte(`{"id":`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestValidateQuiz(t *testing.T) {
	valid := Quiz{
		ID:    "quiz-1",
		Title: "Math",
		Questions: []Question{
			{ID: "q1", Marks: 1, Options: []Option{{ID: "a"}, {ID: "b", IsCorrect: true}}},
		},
	}
	if err := ValidateQuiz(valid); err != nil {
		t.Fatalf("expected valid quiz, got %v", err)
	}

	dup := valid
	dup.Questions = append([]Question{}, valid.Questions...)
	dup.Questions = append(dup.Questions, valid.Questions[0])
	if err := ValidateQuiz(dup); !errors.Is(err, ErrInvalidQuiz) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}

	badAudience := valid
	badAudience.TargetAudience = "staff"
	if err := ValidateQuiz(badAudience); !errors.Is(err, ErrInvalidQuiz) {
		t.Fatalf("expected audience error, got %v", err)
	}
}

func TestAudienceAdmits(t *testing.T) {
	user := &Identity{UserID: "u1"}
	cases := []struct {
		audience Audience
		identity *Identity
		want     bool
	}{
		{AudienceAll, nil, true},
		{AudienceAll, user, true},
		{"", nil, true},
		{AudienceAuthenticated, nil, false},
		{AudienceAuthenticated, user, true},
		{AudienceNonAuthenticated, nil, true},
		{AudienceNonAuthenticated, user, false},
	}
	for _, tc := range cases {
		if got := tc.audience.Admits(tc.identity); got != tc.want {
			t.Fatalf("%q admits %v: got %v want %v", tc.audience, tc.identity, got, tc.want)
		}
	}
}
