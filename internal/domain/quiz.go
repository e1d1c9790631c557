package domain

import "time"

// Audience restricts which authentication state may start a quiz.
type Audience string

const (
	AudienceAll              Audience = "all"
	AudienceAuthenticated    Audience = "authenticated"
	AudienceNonAuthenticated Audience = "non-authenticated"
)

// Admits reports whether a caller with the given identity may start a quiz
// targeting this audience. A nil identity is an anonymous caller.
func (a Audience) Admits(id *Identity) bool {
	switch a {
	case AudienceAuthenticated:
		return id != nil
	case AudienceNonAuthenticated:
		return id == nil
	default:
		return true
	}
}

// Valid reports whether a is a known audience value. Empty means all.
func (a Audience) Valid() bool {
	switch a {
	case "", AudienceAll, AudienceAuthenticated, AudienceNonAuthenticated:
		return true
	}
	return false
}

// Option represents a possible answer for a question.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question models a multiple-choice question. Exactly one correct option is
// expected but scoring tolerates zero or several.
type Question struct {
	ID           string   `json:"id"`
	QuestionText string   `json:"questionText"`
	ImageLink    string   `json:"imageLink,omitempty"`
	Options      []Option `json:"options"`
	Marks        float64  `json:"marks"`
}

// Option returns the option with the given id.
func (q Question) Option(optionID string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return Option{}, false
}

// Quiz is an ordered collection of questions with an optional time limit in minutes.
type Quiz struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	TimeLimit      int        `json:"timeLimit"`
	Questions      []Question `json:"questions"`
	TargetAudience Audience   `json:"targetAudience,omitempty"`
}

// Question returns the question with the given id.
func (q Quiz) Question(questionID string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == questionID {
			return question, true
		}
	}
	return Question{}, false
}

// TotalMarks sums the marks of every question.
func (q Quiz) TotalMarks() float64 {
	total := 0.0
	for _, question := range q.Questions {
		total += question.Marks
	}
	return total
}

// QuizFilter narrows a quiz listing to what a caller may start.
type QuizFilter struct {
	Identity *Identity
	// All disables the audience check, for administrators.
	All bool
}

// Matches reports whether quiz belongs in the filtered listing.
func (f QuizFilter) Matches(quiz Quiz) bool {
	return f.All || quiz.TargetAudience.Admits(f.Identity)
}

// CompletionReason records which trigger completed a session.
type CompletionReason string

const (
	CompletionSubmitted CompletionReason = "submitted"
	CompletionTimeout   CompletionReason = "timeout"
)

// AnsweredQuestion is the finalized answer for one question of a result.
// SelectedOptionID and IsCorrect are nil for unanswered questions.
type AnsweredQuestion struct {
	QuestionID       string  `json:"questionId"`
	SelectedOptionID *string `json:"selectedOptionId"`
	IsCorrect        *bool   `json:"isCorrect"`
	Marks            float64 `json:"marks"`
}

// QuizResult is the immutable outcome of a completed session.
type QuizResult struct {
	ID                 string             `json:"id"`
	SessionID          string             `json:"sessionId"`
	UserID             string             `json:"userId,omitempty"`
	Quiz               Quiz               `json:"quiz"`
	Answers            []AnsweredQuestion `json:"answers"`
	Score              float64            `json:"score"`
	TotalQuestions     int                `json:"totalQuestions"`
	TotalPossibleMarks float64            `json:"totalPossibleMarks"`
	Percentage         int                `json:"percentage"`
	TimeSpentSeconds   int                `json:"timeSpentSeconds"`
	Reason             CompletionReason   `json:"reason"`
	CompletedAt        time.Time          `json:"completedAt"`
}

// Role distinguishes administrators (quiz authors) from students.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Identity is a signed-in caller. Anonymous callers are represented by a nil *Identity.
type Identity struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// IsAdmin reports whether the identity may author quizzes.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}
