package model

// Analysis sources.
const (
	SourceBasic     = "basic"
	SourceAnthropic = "anthropic"
	SourceOpenAI    = "openai"
)

// AnalysisResult is the analysis of one module.
type AnalysisResult struct {
	// Summary describes what the module covers.
	Summary string `json:"summary"`

	// Projects are 3 to 5 things a reader could build with the material.
	Projects []string `json:"buildable_projects"`

	// KeyConcepts are the main topics of the module.
	KeyConcepts []string `json:"key_concepts"`

	// Source names the analyzer that produced the result.
	Source string `json:"source"`

	// FallbackReason explains why the basic analyzer was used instead of
	// the configured language model. Empty when no fallback happened.
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// FellBack reports whether the result came from a fallback.
func (a *AnalysisResult) FellBack() bool {
	return a.FallbackReason != ""
}
