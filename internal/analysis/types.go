package analysis

import (
	"fmt"
	"sort"
)

// EffectPattern is a recurring library-usage pattern observed in the
// community transcript, with the message ids that evidence it.
type EffectPattern struct {
	Pattern           string   `json:"pattern"`
	Description       string   `json:"description"`
	ExampleMessageIDs []string `json:"exampleMessageIds"`
}

// CodeExample is a representative snippet pulled from the conversation.
type CodeExample struct {
	Pattern string `json:"pattern"`
	Code    string `json:"code"`
	Context string `json:"context"`
}

// PartialAnalysis is the structured output of analyzing one chunk.
type PartialAnalysis struct {
	ChunkID         int             `json:"chunkId"`
	MessageCount    int             `json:"messageCount"`
	CommonQuestions []string        `json:"commonQuestions"`
	EffectPatterns  []EffectPattern `json:"effectPatterns"`
	PainPoints      []string        `json:"painPoints"`
	BestPractices   []string        `json:"bestPractices"`
	CodeExamples    []CodeExample   `json:"codeExamples"`
}

// FinalAnalysis is the terminal artifact: the synthesized report plus
// bookkeeping over all partials, sorted ascending by chunk id.
type FinalAnalysis struct {
	TotalChunks     int               `json:"totalChunks"`
	TotalMessages   int               `json:"totalMessages"`
	PartialAnalyses []PartialAnalysis `json:"partialAnalyses"`
	FinalReport     string            `json:"finalReport"`
}

// NewFinalAnalysis assembles the terminal artifact. Partials are copied and
// sorted by chunk id so the result never depends on completion order.
func NewFinalAnalysis(partials []PartialAnalysis, report string) *FinalAnalysis {
	sorted := make([]PartialAnalysis, len(partials))
	copy(sorted, partials)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ChunkID < sorted[j].ChunkID })

	total := 0
	for _, p := range sorted {
		total += p.MessageCount
	}

	return &FinalAnalysis{
		TotalChunks:     len(sorted),
		TotalMessages:   total,
		PartialAnalyses: sorted,
		FinalReport:     report,
	}
}

// AnalysisError reports a terminal analysis-stage failure: a malformed
// model response or a non-retryable (or retry-exhausted) provider error.
// ChunkID is -1 for failures not scoped to a single chunk.
type AnalysisError struct {
	Stage   string
	ChunkID int
	Err     error
}

func (e *AnalysisError) Error() string {
	if e.ChunkID >= 0 {
		return fmt.Sprintf("%s chunk %d: %v", e.Stage, e.ChunkID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }
