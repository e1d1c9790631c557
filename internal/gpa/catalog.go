package gpa

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"studyhub/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Catalog is the static subject and grade-scale reference data.
type Catalog struct {
	Scale  []domain.GradePoint `yaml:"scale"`
	Levels map[string]Level    `yaml:"levels"`
}

// Level holds the subjects offered at one grade level.
type Level struct {
	Compulsory []domain.SubjectDetail `yaml:"compulsory"`
	Optional   []domain.SubjectDetail `yaml:"optional"`
	Streams    map[string]Stream      `yaml:"streams"`
}

// Stream names the optional subject codes of a stream, either directly or per
// group. A positive Total fixes the number of subjects a selection yields.
type Stream struct {
	Total    int                 `yaml:"total"`
	Optional []string            `yaml:"optional"`
	Groups   map[string][]string `yaml:"groups"`
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(defaultCatalogYAML)
}

// LoadCatalog parses and checks a YAML catalog.
func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) check() error {
	if len(c.Scale) == 0 {
		return fmt.Errorf("catalog: empty grade scale")
	}
	for name, level := range c.Levels {
		codes := make(map[string]bool)
		for _, s := range level.Compulsory {
			if codes[s.Code] {
				return fmt.Errorf("catalog level %s: duplicate subject %s", name, s.Code)
			}
			codes[s.Code] = true
		}
		optional := make(map[string]bool)
		for _, s := range level.Optional {
			if codes[s.Code] || optional[s.Code] {
				return fmt.Errorf("catalog level %s: duplicate subject %s", name, s.Code)
			}
			optional[s.Code] = true
		}
		for streamName, stream := range level.Streams {
			lists := [][]string{stream.Optional}
			for _, g := range stream.Groups {
				lists = append(lists, g)
			}
			for _, list := range lists {
				for _, code := range list {
					if !optional[code] {
						return fmt.Errorf("catalog level %s stream %s: %w %s", name, streamName, domain.ErrUnknownSubject, code)
					}
				}
			}
		}
	}
	return nil
}

// GradeScale returns the grade-label to point mappings in catalog order.
func (c *Catalog) GradeScale() []domain.GradePoint {
	return append([]domain.GradePoint(nil), c.Scale...)
}

// LevelNames lists the known grade levels in sorted order.
func (c *Catalog) LevelNames() []string {
	names := make([]string, 0, len(c.Levels))
	for name := range c.Levels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Subjects returns the compulsory and optional subjects of a level.
func (c *Catalog) Subjects(level string) ([]domain.SubjectDetail, []domain.SubjectDetail, error) {
	l, ok := c.Levels[level]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrUnknownLevel, level)
	}
	return append([]domain.SubjectDetail(nil), l.Compulsory...),
		append([]domain.SubjectDetail(nil), l.Optional...), nil
}
