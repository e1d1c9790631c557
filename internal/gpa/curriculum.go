package gpa

import (
	"fmt"

	"studyhub/internal/domain"
)

// Grades is the theory and practical grade a student picked for one subject.
type Grades struct {
	Theory    string `json:"theory" yaml:"theory"`
	Practical string `json:"practical,omitempty" yaml:"practical"`
}

// Selection is the subject list of one student for a level. Compulsory
// subjects cannot be removed.
type Selection struct {
	Level      string                 `json:"level"`
	Stream     string                 `json:"stream"`
	Group      string                 `json:"group,omitempty"`
	Compulsory []domain.SubjectDetail `json:"compulsory"`
	Optional   []domain.SubjectDetail `json:"optional"`

	offered []domain.SubjectDetail
}

// Select assembles the subjects of a stream and group at a level: every
// compulsory subject, then the group's optional codes in listed order. When
// the stream fixes a total, the optional list is truncated, or padded with the
// remaining optional subjects in catalog order.
func (c *Catalog) Select(level, stream, group string) (*Selection, error) {
	l, ok := c.Levels[level]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownLevel, level)
	}
	s, ok := l.Streams[stream]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownStream, stream)
	}

	codes := s.Optional
	if len(s.Groups) > 0 {
		groupCodes, ok := s.Groups[group]
		if !ok {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrUnknownStream, stream, group)
		}
		codes = groupCodes
	}

	byCode := make(map[string]domain.SubjectDetail, len(l.Optional))
	for _, subject := range l.Optional {
		byCode[subject.Code] = subject
	}

	chosen := make(map[string]bool, len(codes))
	optional := make([]domain.SubjectDetail, 0, len(codes))
	for _, code := range codes {
		subject, ok := byCode[code]
		if !ok || chosen[code] {
			continue
		}
		chosen[code] = true
		optional = append(optional, subject)
	}

	if s.Total > 0 {
		want := s.Total - len(l.Compulsory)
		if want < 0 {
			want = 0
		}
		if len(optional) > want {
			optional = optional[:want]
		}
		for _, subject := range l.Optional {
			if len(optional) >= want {
				break
			}
			if chosen[subject.Code] {
				continue
			}
			chosen[subject.Code] = true
			optional = append(optional, subject)
		}
	}

	return &Selection{
		Level:      level,
		Stream:     stream,
		Group:      group,
		Compulsory: append([]domain.SubjectDetail(nil), l.Compulsory...),
		Optional:   optional,
		offered:    l.Optional,
	}, nil
}

// Subjects returns compulsory then optional subjects.
func (s *Selection) Subjects() []domain.SubjectDetail {
	out := make([]domain.SubjectDetail, 0, len(s.Compulsory)+len(s.Optional))
	out = append(out, s.Compulsory...)
	return append(out, s.Optional...)
}

// Remove drops an optional subject.
func (s *Selection) Remove(code string) error {
	for _, subject := range s.Compulsory {
		if subject.Code == code {
			return fmt.Errorf("%w: %s", domain.ErrCompulsorySubject, code)
		}
	}
	for i, subject := range s.Optional {
		if subject.Code == code {
			s.Optional = append(s.Optional[:i:i], s.Optional[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrUnknownSubject, code)
}

// Add appends an optional subject offered at the selection's level. Adding a
// subject already selected is a no-op.
func (s *Selection) Add(code string) error {
	for _, subject := range s.Subjects() {
		if subject.Code == code {
			return nil
		}
	}
	for _, subject := range s.offered {
		if subject.Code == code {
			s.Optional = append(s.Optional, subject)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrUnknownSubject, code)
}

// Inputs pairs every selected subject with its picked grades. Subjects
// without an entry stay unselected.
func (s *Selection) Inputs(grades map[string]Grades) []domain.GradeInput {
	subjects := s.Subjects()
	inputs := make([]domain.GradeInput, 0, len(subjects))
	for _, subject := range subjects {
		g, ok := grades[subject.Code]
		if !ok {
			g = Grades{Theory: domain.Unselected, Practical: domain.Unselected}
		}
		if subject.InternalCredit <= 0 {
			g.Practical = ""
		}
		inputs = append(inputs, domain.GradeInput{
			Subject:        subject,
			TheoryGrade:    g.Theory,
			PracticalGrade: g.Practical,
		})
	}
	return inputs
}
