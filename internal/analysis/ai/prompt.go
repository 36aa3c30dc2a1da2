package ai

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/cuongbtq/resume-analyzer/internal/analysis/domain"
)

//go:embed prompt.md
var promptSource string

var promptTemplate = template.Must(template.New("prompt").Parse(promptSource))

// JobText flattens a job posting into the text the model evaluates against.
func JobText(job *domain.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", strings.TrimSpace(job.Title))
	if job.Description.Valid {
		fmt.Fprintf(&b, "\nDescription:\n%s\n", strings.TrimSpace(job.Description.String))
	}
	if job.Requirements.Valid && strings.TrimSpace(job.Requirements.String) != "" {
		fmt.Fprintf(&b, "\nRequirements:\n%s\n", strings.TrimSpace(job.Requirements.String))
	}
	return strings.TrimSpace(b.String())
}

// BuildPrompt renders the analysis prompt, cutting the job text at maxRunes (0 keeps all of it).
func BuildPrompt(jobText string, maxRunes int) (string, error) {
	var b strings.Builder
	err := promptTemplate.Execute(&b, struct{ JobText string }{
		JobText: TruncateRunes(strings.TrimSpace(jobText), maxRunes),
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}

// TruncateRunes shortens s to at most limit runes. A non-positive limit returns s unchanged.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// truncateForLog keeps log lines short
func truncateForLog(s string) string {
	const max = 300
	if r := []rune(s); len(r) > max {
		return string(r[:max]) + "..."
	}
	return s
}
