package gpa

import (
	"errors"
	"testing"

	"studyhub/internal/domain"
)

func codes(subjects []domain.SubjectDetail) []string {
	out := make([]string, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, s.Code)
	}
	return out
}

func equalCodes(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestDefaultCatalogLoads(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if got := catalog.LevelNames(); !equalCodes(got, []string{"11", "12"}) {
		t.Fatalf("unexpected levels: %v", got)
	}
	engine := NewEngine(catalog.GradeScale())
	if p, ok := engine.Point("A"); !ok || p != 3.6 {
		t.Fatalf("expected A=3.6, got %v %v", p, ok)
	}
	if _, _, err := catalog.Subjects("10"); !errors.Is(err, domain.ErrUnknownLevel) {
		t.Fatalf("expected unknown level, got %v", err)
	}
}

func TestSelectScienceGroupsYieldSixSubjects(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	cases := []struct {
		group    string
		optional []string
	}{
		{"physical", []string{"1011", "3011", "0071"}},
		{"biology", []string{"1011", "3011", "2011"}},
		// short group is padded in catalog order
		{"computing", []string{"1011", "4271", "3011"}},
	}
	for _, tc := range cases {
		sel, err := catalog.Select("11", "science", tc.group)
		if err != nil {
			t.Fatalf("select %s: %v", tc.group, err)
		}
		if len(sel.Subjects()) != 6 {
			t.Fatalf("%s: expected 6 subjects, got %v", tc.group, codes(sel.Subjects()))
		}
		if got := codes(sel.Optional); !equalCodes(got, tc.optional) {
			t.Fatalf("%s: optional %v, want %v", tc.group, got, tc.optional)
		}
	}
}

func TestSelectTruncatesToStreamTotal(t *testing.T) {
	catalog, err := LoadCatalog([]byte(`
scale: [{grade: "A", gradePoint: 3.6}]
levels:
  "11":
    compulsory:
      - {code: "C1", name: "One", theoryCredit: 4}
      - {code: "C2", name: "Two", theoryCredit: 4}
    optional:
      - {code: "O1", name: "O1", theoryCredit: 4}
      - {code: "O2", name: "O2", theoryCredit: 4}
      - {code: "O3", name: "O3", theoryCredit: 4}
    streams:
      wide:
        total: 3
        optional: ["O3", "O1", "O2"]
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sel, err := catalog.Select("11", "wide", "")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got := codes(sel.Subjects()); !equalCodes(got, []string{"C1", "C2", "O3"}) {
		t.Fatalf("unexpected subjects %v", got)
	}
}

func TestSelectIsDeterministic(t *testing.T) {
	catalog, _ := DefaultCatalog()
	first, _ := catalog.Select("12", "management", "")
	second, _ := catalog.Select("12", "management", "")
	if !equalCodes(codes(first.Subjects()), codes(second.Subjects())) {
		t.Fatalf("selection differs between calls")
	}
}

func TestSelectUnknownStreamOrGroup(t *testing.T) {
	catalog, _ := DefaultCatalog()
	if _, err := catalog.Select("11", "arts", ""); !errors.Is(err, domain.ErrUnknownStream) {
		t.Fatalf("expected unknown stream, got %v", err)
	}
	if _, err := catalog.Select("11", "science", "chemistry"); !errors.Is(err, domain.ErrUnknownStream) {
		t.Fatalf("expected unknown group, got %v", err)
	}
	if _, err := catalog.Select("13", "science", "physical"); !errors.Is(err, domain.ErrUnknownLevel) {
		t.Fatalf("expected unknown level, got %v", err)
	}
}

func TestSelectionKeepsCompulsorySubjects(t *testing.T) {
	catalog, _ := DefaultCatalog()
	sel, _ := catalog.Select("11", "management", "")
	if err := sel.Remove("0031"); !errors.Is(err, domain.ErrCompulsorySubject) {
		t.Fatalf("expected compulsory error, got %v", err)
	}
	if err := sel.Remove("4271"); err != nil {
		t.Fatalf("remove optional: %v", err)
	}
	if err := sel.Remove("4271"); !errors.Is(err, domain.ErrUnknownSubject) {
		t.Fatalf("expected unknown subject on second removal, got %v", err)
	}
	if err := sel.Add("0071"); err != nil {
		t.Fatalf("add optional: %v", err)
	}
	if err := sel.Add("9999"); !errors.Is(err, domain.ErrUnknownSubject) {
		t.Fatalf("expected unknown subject, got %v", err)
	}
	if len(sel.Compulsory) != 3 {
		t.Fatalf("compulsory subjects changed: %v", codes(sel.Compulsory))
	}
}

func TestSelectionInputsDefaultToUnselected(t *testing.T) {
	catalog, _ := DefaultCatalog()
	sel, _ := catalog.Select("11", "science", "physical")
	inputs := sel.Inputs(map[string]Grades{
		"0031": {Theory: "A+", Practical: "A+"},
	})
	if len(inputs) != 6 {
		t.Fatalf("expected 6 inputs, got %d", len(inputs))
	}
	if inputs[1].TheoryGrade != domain.Unselected {
		t.Fatalf("expected unselected default, got %q", inputs[1].TheoryGrade)
	}
	engine := NewEngine(catalog.GradeScale())
	if got := engine.Calculate(inputs); got != 4.0 {
		t.Fatalf("expected 4.00 from the only graded subject, got %v", got)
	}
}

func TestLoadCatalogRejectsUnknownGroupCode(t *testing.T) {
	_, err := LoadCatalog([]byte(`
scale: [{grade: "A", gradePoint: 3.6}]
levels:
  "11":
    optional: [{code: "O1", name: "O1", theoryCredit: 4}]
    streams:
      s: {groups: {g: ["O9"]}}
`))
	if !errors.Is(err, domain.ErrUnknownSubject) {
		t.Fatalf("expected unknown subject error, got %v", err)
	}
}
