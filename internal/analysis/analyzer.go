// Package analysis runs the per-chunk extraction and the final synthesis
// calls against the injected LLM capability.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/digest/internal/chunker"
	"github.com/MikeSquared-Agency/digest/internal/llm"
)

const analyzeMaxTokens = 4096

// Analyzer produces one PartialAnalysis per chunk.
type Analyzer struct {
	llm    llm.Client
	policy RetryPolicy
	logger *slog.Logger
}

func NewAnalyzer(client llm.Client, policy RetryPolicy, logger *slog.Logger) *Analyzer {
	return &Analyzer{llm: client, policy: policy, logger: logger}
}

// chunkPayload is the JSON shape the model returns for one chunk.
type chunkPayload struct {
	CommonQuestions []string        `json:"commonQuestions"`
	EffectPatterns  []EffectPattern `json:"effectPatterns"`
	PainPoints      []string        `json:"painPoints"`
	BestPractices   []string        `json:"bestPractices"`
	CodeExamples    []CodeExample   `json:"codeExamples"`
}

// Analyze renders the chunk, calls the model with classified retry, and
// parses the response. A malformed response after a successful call is not
// retried.
func (a *Analyzer) Analyze(ctx context.Context, c chunker.Chunk) (*PartialAnalysis, error) {
	prompt := fmt.Sprintf(chunkUserPrompt, chunker.Render(c))
	messages := []llm.Message{{Role: "user", Content: prompt}}

	a.logger.Info("analyzing chunk",
		"chunk_id", c.ID,
		"messages", c.MessageCount(),
	)

	label := fmt.Sprintf("analyze-chunk-%d", c.ID)
	raw, err := callWithRetry(ctx, a.logger, label, a.policy, func(ctx context.Context) (string, error) {
		return a.llm.Complete(ctx, chunkSystemPrompt, messages, analyzeMaxTokens)
	})
	if err != nil {
		return nil, &AnalysisError{Stage: "analyze", ChunkID: c.ID, Err: err}
	}

	var payload chunkPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		a.logger.Error("failed to parse chunk analysis",
			"chunk_id", c.ID,
			"error", err,
			"raw", raw,
		)
		return nil, &AnalysisError{Stage: "analyze", ChunkID: c.ID, Err: fmt.Errorf("parse response: %w", err)}
	}

	a.logger.Info("chunk analyzed",
		"chunk_id", c.ID,
		"questions", len(payload.CommonQuestions),
		"patterns", len(payload.EffectPatterns),
		"examples", len(payload.CodeExamples),
	)

	return &PartialAnalysis{
		ChunkID:         c.ID,
		MessageCount:    c.MessageCount(),
		CommonQuestions: payload.CommonQuestions,
		EffectPatterns:  payload.EffectPatterns,
		PainPoints:      payload.PainPoints,
		BestPractices:   payload.BestPractices,
		CodeExamples:    payload.CodeExamples,
	}, nil
}
