package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cuongbtq/resume-analyzer/internal/analysis/domain"
)

// ErrInvalidStructure marks a model response that does not satisfy the analysis schema
var ErrInvalidStructure = errors.New("invalid analysis structure")

// ParseAnalysis extracts and validates the analysis object from raw model output.
func ParseAnalysis(raw string) (*domain.AnalysisResult, error) {
	cleaned := cleanJSON(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidStructure)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStructure, err)
	}

	score, ok := fields["score"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: score is not a number", ErrInvalidStructure)
	}
	if score < 0 || score > 100 {
		return nil, fmt.Errorf("%w: score %v out of range", ErrInvalidStructure, score)
	}

	summary, ok := fields["summary"].(string)
	if !ok || strings.TrimSpace(summary) == "" {
		return nil, fmt.Errorf("%w: summary is missing", ErrInvalidStructure)
	}

	rawStrengths, ok := fields["strengths"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: strengths is not a list", ErrInvalidStructure)
	}
	strengths, err := stringList(rawStrengths)
	if err != nil {
		return nil, fmt.Errorf("%w: strengths: %v", ErrInvalidStructure, err)
	}

	weaknesses := []string{}
	if rawWeaknesses, ok := fields["weaknesses"].([]any); ok {
		if weaknesses, err = stringList(rawWeaknesses); err != nil {
			return nil, fmt.Errorf("%w: weaknesses: %v", ErrInvalidStructure, err)
		}
	}

	recommendation := ""
	if r, ok := fields["recommendation"].(string); ok {
		r = strings.ToUpper(strings.TrimSpace(r))
		if domain.ValidRecommendation(r) {
			recommendation = r
		}
	}

	return &domain.AnalysisResult{
		Score:          score,
		Summary:        strings.TrimSpace(summary),
		Strengths:      strengths,
		Weaknesses:     weaknesses,
		Recommendation: recommendation,
	}, nil
}

func stringList(items []any) ([]string, error) {
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("item %d is not a string", i)
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// cleanJSON strips markdown fences and any prose around the outermost object.
func cleanJSON(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end > start {
		content = content[start : end+1]
	}
	return strings.TrimSpace(content)
}
