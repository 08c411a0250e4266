package analysis

import (
	"fmt"
	"regexp"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/nao1215/sitescribe/internal/model"
)

// Project count bounds for a model reply.
const (
	MinProjects = 3
	MaxProjects = 5
)

var codeFence = regexp.MustCompile("```(?:json|JSON)?")

// wireResult is the JSON object requested from the model.
type wireResult struct {
	Summary     string   `json:"summary"`
	Projects    []string `json:"buildable_projects"`
	KeyConcepts []string `json:"key_concepts"`
}

// ParseResponse extracts an analysis from a model reply.
//
// Markdown code fences are removed and the text between the first "{" and
// the last "}" is parsed as JSON5, which tolerates trailing commas and
// comments. The reply is malformed when the summary or the key concepts
// are missing or when fewer than three projects are given. More than five
// projects are cut to five.
func ParseResponse(text string) (*model.AnalysisResult, error) {
	text = codeFence.ReplaceAllString(text, "")
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrMalformedResponse)
	}

	var wire wireResult
	if err := json5.Unmarshal([]byte(text[start:end+1]), &wire); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	result := &model.AnalysisResult{
		Summary:     strings.TrimSpace(wire.Summary),
		Projects:    compact(wire.Projects),
		KeyConcepts: compact(wire.KeyConcepts),
	}
	switch {
	case result.Summary == "":
		return nil, fmt.Errorf("%w: empty summary", ErrMalformedResponse)
	case len(result.KeyConcepts) == 0:
		return nil, fmt.Errorf("%w: no key concepts", ErrMalformedResponse)
	case len(result.Projects) < MinProjects:
		return nil, fmt.Errorf("%w: %d buildable projects, want at least %d",
			ErrMalformedResponse, len(result.Projects), MinProjects)
	}
	if len(result.Projects) > MaxProjects {
		result.Projects = result.Projects[:MaxProjects]
	}
	return result, nil
}

// compact trims items and drops empty ones.
func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
