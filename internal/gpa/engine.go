// Package gpa computes credit-weighted grade point averages and the
// curriculum selections they are computed over.
package gpa

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"studyhub/internal/domain"
)

// MaxGPA is the ceiling of the grade scale.
const MaxGPA = 4.0

// Division is a transcript band derived from a GPA.
type Division string

const (
	Distinction    Division = "Distinction"
	FirstDivision  Division = "First Division"
	SecondDivision Division = "Second Division"
	ThirdDivision  Division = "Third Division"
	Fail           Division = "Fail"
)

// Color is the display token of a division band, green-most for the highest band.
type Color string

const (
	ColorGreen  Color = "green"
	ColorLime   Color = "lime"
	ColorYellow Color = "yellow"
	ColorOrange Color = "orange"
	ColorRed    Color = "red"
)

// bands are ordered highest first; each lower bound is inclusive.
var bands = []struct {
	min      float64
	division Division
	color    Color
}{
	{3.6, Distinction, ColorGreen},
	{3.2, FirstDivision, ColorLime},
	{2.8, SecondDivision, ColorYellow},
	{1.6, ThirdDivision, ColorOrange},
}

// DivisionFor returns the division band of gpa.
func DivisionFor(gpa float64) Division {
	for _, b := range bands {
		if gpa >= b.min {
			return b.division
		}
	}
	return Fail
}

// ColorFor returns the color token of gpa's band.
func ColorFor(gpa float64) Color {
	for _, b := range bands {
		if gpa >= b.min {
			return b.color
		}
	}
	return ColorRed
}

// Report is a computed GPA with its derived classifications.
type Report struct {
	GPA              float64  `json:"gpa"`
	Division         Division `json:"division"`
	Color            Color    `json:"color"`
	EffectiveCredits float64  `json:"effectiveCredits"`
}

// Engine computes GPAs against a fixed grade scale.
type Engine struct {
	points map[string]float64
}

// NewEngine builds an engine from a grade scale. Entries with a non-finite
// point are dropped so they never resolve.
func NewEngine(scale []domain.GradePoint) *Engine {
	points := make(map[string]float64, len(scale))
	for _, entry := range scale {
		if !finite(entry.GradePoint) {
			continue
		}
		points[entry.Grade] = entry.GradePoint
	}
	return &Engine{points: points}
}

// Point resolves a grade label.
func (e *Engine) Point(grade string) (float64, bool) {
	p, ok := e.points[grade]
	return p, ok
}

// Calculate returns the credit-weighted GPA of inputs rounded to two decimals
// and clamped to [0, MaxGPA]. Components that are unselected, carry no
// positive credit, or use an unknown grade count in neither sum. It returns 0
// when nothing is gradable.
func (e *Engine) Calculate(inputs []domain.GradeInput) float64 {
	gpa, _ := e.calculate(inputs)
	return gpa
}

// Evaluate is Calculate plus the derived division and color.
func (e *Engine) Evaluate(inputs []domain.GradeInput) Report {
	gpa, credits := e.calculate(inputs)
	return Report{
		GPA:              gpa,
		Division:         DivisionFor(gpa),
		Color:            ColorFor(gpa),
		EffectiveCredits: credits,
	}
}

func (e *Engine) calculate(inputs []domain.GradeInput) (float64, float64) {
	weighted := decimal.Zero
	credits := decimal.Zero
	for _, in := range inputs {
		weighted, credits = e.accumulate(in.TheoryGrade, in.Subject.TheoryCredit, weighted, credits)
		weighted, credits = e.accumulate(in.PracticalGrade, in.Subject.InternalCredit, weighted, credits)
	}
	effective, _ := credits.Float64()
	if credits.IsZero() {
		return 0, effective
	}

	gpa := weighted.Div(credits).Round(2)
	if gpa.GreaterThan(decimal.NewFromFloat(MaxGPA)) {
		gpa = decimal.NewFromFloat(MaxGPA)
	}
	if gpa.IsNegative() {
		gpa = decimal.Zero
	}
	out, _ := gpa.Float64()
	return out, effective
}

func (e *Engine) accumulate(grade string, credit float64, weighted, credits decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if !domain.IsSelected(grade) || !finite(credit) || credit <= 0 {
		return weighted, credits
	}
	point, ok := e.points[grade]
	if !ok {
		return weighted, credits
	}
	c := decimal.NewFromFloat(credit)
	return weighted.Add(decimal.NewFromFloat(point).Mul(c)), credits.Add(c)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// IncompleteError lists subjects whose required grades are still unselected.
type IncompleteError struct {
	Codes []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("grades missing for: %s", strings.Join(e.Codes, ", "))
}

// ValidateComplete reports subjects with a positive theory credit and no
// theory grade, or a positive internal credit and no practical grade.
func ValidateComplete(inputs []domain.GradeInput) error {
	var missing []string
	for _, in := range inputs {
		theoryMissing := in.Subject.TheoryCredit > 0 && !domain.IsSelected(in.TheoryGrade)
		practicalMissing := in.Subject.InternalCredit > 0 && !domain.IsSelected(in.PracticalGrade)
		if theoryMissing || practicalMissing {
			missing = append(missing, in.Subject.Code)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &IncompleteError{Codes: missing}
}
