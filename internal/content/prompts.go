package content

import (
	"fmt"
	"strings"

	"studyhub/internal/domain"
)

// ExplanationPrompt renders a question, its options and the correct
// option(s) as the user prompt for an explanation.
func ExplanationPrompt(q domain.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", strings.TrimSpace(q.QuestionText))
	if q.ImageLink != "" {
		fmt.Fprintf(&b, "Figure: %s\n", q.ImageLink)
	}
	b.WriteString("Options:\n")
	var correct []string
	for i, opt := range q.Options {
		label := optionLabel(i)
		fmt.Fprintf(&b, "%s. %s\n", label, strings.TrimSpace(opt.Text))
		if opt.IsCorrect {
			correct = append(correct, label)
		}
	}
	switch len(correct) {
	case 0:
		b.WriteString("No option is marked correct; explain which one should be and why.\n")
	case 1:
		fmt.Fprintf(&b, "Correct option: %s\n", correct[0])
	default:
		fmt.Fprintf(&b, "Options marked correct: %s\n", strings.Join(correct, ", "))
	}
	b.WriteString("Explain the reasoning step by step in under 200 words.")
	return b.String()
}

func optionLabel(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("%d", i+1)
}
