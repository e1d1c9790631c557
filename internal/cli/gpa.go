package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"studyhub/internal/gpa"
)

type gpaOptions struct {
	level   string
	stream  string
	group   string
	grades  []string
	remove  []string
	add     []string
	partial bool
}

// NewGPACmd computes a GPA from the command line.
func NewGPACmd() *cobra.Command {
	opts := &gpaOptions{}
	cmd := &cobra.Command{
		Use:   "gpa",
		Short: "Calculate a GPA for a stream and group",
		Example: `  studyhub gpa --level 11 --stream science --group physical \
    --grade 0031=A+/A --grade 0011=A --grade 0051=B+/A ...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGPA(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.level, "level", "11", "grade level")
	cmd.Flags().StringVar(&opts.stream, "stream", "", "stream name")
	cmd.Flags().StringVar(&opts.group, "group", "", "group within the stream")
	cmd.Flags().StringArrayVar(&opts.grades, "grade", nil, "subject grade as CODE=THEORY[/PRACTICAL]")
	cmd.Flags().StringArrayVar(&opts.remove, "remove", nil, "optional subject code to drop")
	cmd.Flags().StringArrayVar(&opts.add, "add", nil, "optional subject code to add")
	cmd.Flags().BoolVar(&opts.partial, "partial", false, "compute even when grades are missing")
	_ = cmd.MarkFlagRequired("stream")
	return cmd
}

func runGPA(out io.Writer, opts *gpaOptions) error {
	catalog, err := gpa.DefaultCatalog()
	if err != nil {
		return err
	}
	selection, err := catalog.Select(opts.level, opts.stream, opts.group)
	if err != nil {
		return err
	}
	for _, code := range opts.remove {
		if err := selection.Remove(code); err != nil {
			return err
		}
	}
	for _, code := range opts.add {
		if err := selection.Add(code); err != nil {
			return err
		}
	}

	grades, err := parseGrades(opts.grades)
	if err != nil {
		return err
	}
	inputs := selection.Inputs(grades)
	if !opts.partial {
		if err := gpa.ValidateComplete(inputs); err != nil {
			return err
		}
	}

	engine := gpa.NewEngine(catalog.GradeScale())
	for _, in := range inputs {
		fmt.Fprintf(out, "%-6s %-34s %-4s %s\n", in.Subject.Code, in.Subject.Name, in.TheoryGrade, in.PracticalGrade)
	}
	report := engine.Evaluate(inputs)
	fmt.Fprintf(out, "GPA %.2f  %s (%s)\n", report.GPA, report.Division, report.Color)
	return nil
}

// parseGrades reads CODE=THEORY[/PRACTICAL] pairs.
func parseGrades(raw []string) (map[string]gpa.Grades, error) {
	grades := make(map[string]gpa.Grades, len(raw))
	for _, item := range raw {
		code, value, ok := strings.Cut(item, "=")
		code = strings.TrimSpace(code)
		if !ok || code == "" || value == "" {
			return nil, fmt.Errorf("invalid grade %q, want CODE=THEORY[/PRACTICAL]", item)
		}
		theory, practical, hasPractical := strings.Cut(value, "/")
		g := gpa.Grades{Theory: strings.TrimSpace(theory)}
		if hasPractical {
			g.Practical = strings.TrimSpace(practical)
		} else {
			g.Practical = g.Theory
		}
		grades[code] = g
	}
	return grades, nil
}
