package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rohankatakam/prhelper/internal/heuristics"
	"github.com/rohankatakam/prhelper/internal/models"
	"gopkg.in/yaml.v3"
)

// Report is one ranking run as presented to the user
type Report struct {
	Project          string                      `json:"project" yaml:"project"`
	MaxFileConflicts int                         `json:"max_file_conflicts" yaml:"max_file_conflicts"`
	GeneratedAt      time.Time                   `json:"generated_at" yaml:"generated_at"`
	TotalPRs         int                         `json:"total_prs" yaml:"total_prs"`
	Entries          []models.RankedEntry        `json:"entries" yaml:"entries"`
	Conflicts        []heuristics.ConflictReport `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
}

// Formatter defines output formatting interface
type Formatter interface {
	Format(report *Report, w io.Writer) error
}

// Format names
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// NewFormatter creates the formatter for name
func NewFormatter(name string) (Formatter, error) {
	switch name {
	case "", FormatText:
		return &TextFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", name)
	}
}

// TextFormatter prints a short header and one line per ranked PR
type TextFormatter struct{}

func (f *TextFormatter) Format(report *Report, w io.Writer) error {
	fmt.Fprintf(w, "Max mutual file name based conflicts in between PRs: %d\n", report.MaxFileConflicts)
	fmt.Fprintf(w, "\nNow showing least complex PRs first:\n")
	for _, e := range report.Entries {
		if _, err := fmt.Fprintln(w, EntryLine(e)); err != nil {
			return err
		}
	}

	if len(report.Conflicts) > 0 {
		fmt.Fprintf(w, "\nFile name based conflicts:\n")
		for _, c := range report.Conflicts {
			if len(c.ConflictsWith) == 0 {
				continue
			}
			fmt.Fprintf(w, "PR #%d conflicts with %s\n", c.Number, joinNumbers(c.ConflictsWith))
		}
	}
	return nil
}

// EntryLine renders one ranked PR
func EntryLine(e models.RankedEntry) string {
	return fmt.Sprintf("PR #%d: %s (%d modified files, complexity score: %d)",
		e.Number, e.Title, e.ModifiedFiles, e.Complexity)
}

func joinNumbers(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = fmt.Sprintf("#%d", n)
	}
	return strings.Join(parts, ", ")
}

// JSONFormatter writes the report as indented JSON
type JSONFormatter struct{}

func (f *JSONFormatter) Format(report *Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(withEntries(report))
}

// YAMLFormatter writes the report as YAML
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(report *Report, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(withEntries(report)); err != nil {
		return err
	}
	return enc.Close()
}

// withEntries keeps "entries" an empty list rather than null
func withEntries(report *Report) *Report {
	if report.Entries != nil {
		return report
	}
	r := *report
	r.Entries = []models.RankedEntry{}
	return &r
}
