package domain

// Unselected is the grade label shown before a student picks a grade.
const Unselected = "Please select"

// SubjectDetail is a catalog entry. A zero InternalCredit means the subject has
// no practical component.
type SubjectDetail struct {
	Code           string  `json:"code" yaml:"code"`
	Name           string  `json:"name" yaml:"name"`
	TheoryCredit   float64 `json:"theoryCredit" yaml:"theoryCredit"`
	InternalCredit float64 `json:"internalCredit" yaml:"internalCredit"`
}

// TotalCredits is display-only.
func (s SubjectDetail) TotalCredits() float64 {
	return s.TheoryCredit + s.InternalCredit
}

// GradePoint maps a grade label to its numeric point.
type GradePoint struct {
	Grade      string  `json:"grade" yaml:"grade"`
	GradePoint float64 `json:"gradePoint" yaml:"gradePoint"`
}

// GradeInput is the grade a student picked for one subject.
type GradeInput struct {
	Subject        SubjectDetail `json:"subject"`
	TheoryGrade    string        `json:"theoryGrade"`
	PracticalGrade string        `json:"practicalGrade,omitempty"`
}

// IsSelected reports whether a grade label was actually chosen.
func IsSelected(label string) bool {
	return label != "" && label != Unselected
}
