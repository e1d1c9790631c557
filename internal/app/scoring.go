package app

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"studyhub/internal/domain"
)

// wrongAnswerPenalty is deducted for every incorrect answer regardless of the
// question's marks.
var wrongAnswerPenalty = decimal.New(-1, -1)

// scoreAttempt scores answers against every question of the quiz.
// Unanswered questions score 0, correct ones their marks and incorrect ones
// the fixed penalty. The percentage floors negative scores at 0.
func scoreAttempt(quiz domain.Quiz, answers map[string]string, startedAt, completedAt time.Time) domain.QuizResult {
	score := decimal.Zero
	total := decimal.Zero
	answered := make([]domain.AnsweredQuestion, 0, len(quiz.Questions))

	for _, q := range quiz.Questions {
		marks := marksOf(q)
		total = total.Add(marks)

		selected, ok := answers[q.ID]
		if !ok {
			answered = append(answered, domain.AnsweredQuestion{QuestionID: q.ID})
			continue
		}

		option, found := q.Option(selected)
		correct := found && option.IsCorrect
		awarded := wrongAnswerPenalty
		if correct {
			awarded = marks
		}
		score = score.Add(awarded)

		optionID := selected
		value, _ := awarded.Float64()
		answered = append(answered, domain.AnsweredQuestion{
			QuestionID:       q.ID,
			SelectedOptionID: &optionID,
			IsCorrect:        &correct,
			Marks:            value,
		})
	}

	percentage := 0
	if total.IsPositive() {
		floored := decimal.Max(score, decimal.Zero)
		percentage = int(floored.Div(total).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
	}

	spent := completedAt.Sub(startedAt)
	if spent < 0 || startedAt.IsZero() {
		spent = 0
	}

	scoreValue, _ := score.Float64()
	totalValue, _ := total.Float64()
	return domain.QuizResult{
		ID:                 uuid.NewString(),
		Quiz:               quiz,
		Answers:            answered,
		Score:              scoreValue,
		TotalQuestions:     len(quiz.Questions),
		TotalPossibleMarks: totalValue,
		Percentage:         percentage,
		TimeSpentSeconds:   int(spent / time.Second),
		CompletedAt:        completedAt,
	}
}

func marksOf(q domain.Question) decimal.Decimal {
	if math.IsNaN(q.Marks) || math.IsInf(q.Marks, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(q.Marks)
}
