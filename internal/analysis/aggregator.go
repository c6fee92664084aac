package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/MikeSquared-Agency/digest/internal/llm"
)

const aggregateMaxTokens = 8192

// Aggregator synthesizes all partial analyses into one markdown report with
// a second model call, under the same retry policy as the analyzer.
type Aggregator struct {
	llm    llm.Client
	policy RetryPolicy
	logger *slog.Logger
}

func NewAggregator(client llm.Client, policy RetryPolicy, logger *slog.Logger) *Aggregator {
	return &Aggregator{llm: client, policy: policy, logger: logger}
}

// Aggregate returns the synthesized markdown report. Partials must be
// sorted ascending by chunk id; the synthesis narrative assumes
// chronological order.
func (g *Aggregator) Aggregate(ctx context.Context, partials []PartialAnalysis) (string, error) {
	if len(partials) == 0 {
		return "", &AnalysisError{Stage: "aggregate", ChunkID: -1, Err: fmt.Errorf("no partial analyses to aggregate")}
	}
	if !sort.SliceIsSorted(partials, func(i, j int) bool { return partials[i].ChunkID < partials[j].ChunkID }) {
		return "", &AnalysisError{Stage: "aggregate", ChunkID: -1, Err: fmt.Errorf("partial analyses not sorted by chunk id")}
	}

	encoded, err := json.MarshalIndent(partials, "", "  ")
	if err != nil {
		return "", &AnalysisError{Stage: "aggregate", ChunkID: -1, Err: fmt.Errorf("marshal partials: %w", err)}
	}

	total := 0
	for _, p := range partials {
		total += p.MessageCount
	}

	prompt := fmt.Sprintf(aggregateUserPrompt, len(partials), total, encoded)
	messages := []llm.Message{{Role: "user", Content: prompt}}

	g.logger.Info("aggregating partial analyses",
		"partials", len(partials),
		"total_messages", total,
	)

	report, err := callWithRetry(ctx, g.logger, "aggregate", g.policy, func(ctx context.Context) (string, error) {
		return g.llm.Complete(ctx, aggregateSystemPrompt, messages, aggregateMaxTokens)
	})
	if err != nil {
		return "", &AnalysisError{Stage: "aggregate", ChunkID: -1, Err: err}
	}

	if strings.TrimSpace(report) == "" {
		return "", &AnalysisError{Stage: "aggregate", ChunkID: -1, Err: fmt.Errorf("empty report from model")}
	}

	g.logger.Info("aggregation complete", "report_len", len(report))

	return report, nil
}
