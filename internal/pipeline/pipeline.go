// Package pipeline orchestrates the chunked analysis run: load, split,
// bounded fan-out analysis, barrier, aggregate, persist.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/digest/internal/analysis"
	"github.com/MikeSquared-Agency/digest/internal/chunker"
	"github.com/MikeSquared-Agency/digest/internal/report"
	"github.com/MikeSquared-Agency/digest/internal/transcript"
)

const (
	defaultChunkSize   = 20
	defaultConcurrency = 3
)

// Config bounds one run.
type Config struct {
	// ChunkSize is the number of messages per analysis chunk.
	ChunkSize int
	// Concurrency is the maximum number of chunk analyses in flight.
	Concurrency int
}

func (c Config) normalized() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = defaultChunkSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	return c
}

// Error is the structured failure surfaced by Run. It names the stage that
// failed; chunk-scoped detail lives in the wrapped analysis error.
type Error struct {
	Stage State
	RunID uuid.UUID
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pipeline %s (run %s): %v", e.Stage, e.RunID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Notifier receives run lifecycle callbacks. Implementations must be safe
// for concurrent use; a nil Notifier disables notifications.
type Notifier interface {
	RunStarted(runID uuid.UUID, inputRef string)
	ChunkAnalyzed(runID uuid.UUID, chunkID, messageCount int)
	RunCompleted(runID uuid.UUID, final *analysis.FinalAnalysis, outputRef string)
	RunFailed(runID uuid.UUID, stage string, err error)
}

// Archiver persists completed runs. A nil Archiver disables archiving;
// archive failures are logged, never fatal to the run.
type Archiver interface {
	SaveRun(ctx context.Context, rec RunRecord) error
}

// RunRecord is the archived summary of a completed run.
type RunRecord struct {
	RunID         uuid.UUID
	InputRef      string
	OutputRef     string
	TotalChunks   int
	TotalMessages int
	FinalReport   string
	Partials      []analysis.PartialAnalysis
	StartedAt     time.Time
	DurationMS    int64
}

// Status is the inspectable snapshot served by the HTTP API.
type Status struct {
	State         State     `json:"state"`
	RunID         string    `json:"run_id,omitempty"`
	InputRef      string    `json:"input_ref,omitempty"`
	OutputRef     string    `json:"output_ref,omitempty"`
	TotalChunks   int       `json:"total_chunks"`
	ChunksDone    int       `json:"chunks_done"`
	TotalMessages int       `json:"total_messages"`
	StartedAt     time.Time `json:"started_at,omitzero"`
	Error         string    `json:"error,omitempty"`
}

// Pipeline sequences one analysis run at a time.
type Pipeline struct {
	analyzer   *analysis.Analyzer
	aggregator *analysis.Aggregator
	cfg        Config
	notifier   Notifier
	archive    Archiver
	logger     *slog.Logger

	// Injected read/write capabilities; overridable in tests.
	loadTranscript func(inputRef string) (*transcript.Transcript, error)
	writeReport    func(outputRef, content string) error

	mu     sync.Mutex
	status Status
}

// New builds a pipeline. notifier and archive may be nil.
func New(an *analysis.Analyzer, ag *analysis.Aggregator, cfg Config, notifier Notifier, archive Archiver, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		analyzer:       an,
		aggregator:     ag,
		cfg:            cfg.normalized(),
		notifier:       notifier,
		archive:        archive,
		logger:         logger,
		loadTranscript: transcript.LoadFile,
		writeReport:    report.Write,
		status:         Status{State: StateIdle},
	}
}

// Status returns a snapshot of the current (or last) run.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// State returns the current stage.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.State
}

// begin reserves the pipeline for a new run. Only one run may be in flight.
func (p *Pipeline) begin(runID uuid.UUID, inputRef, outputRef string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.status.State.Terminal() && p.status.State != StateIdle {
		return fmt.Errorf("run already in progress (state %s)", p.status.State)
	}
	p.status = Status{
		State:     StateLoading,
		RunID:     runID.String(),
		InputRef:  inputRef,
		OutputRef: outputRef,
		StartedAt: time.Now().UTC(),
	}
	return nil
}

// advance moves the run to the next stage, enforcing the transition table.
func (p *Pipeline) advance(to State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := Transition(p.status.State, to)
	if err != nil {
		return err
	}
	p.status.State = next
	return nil
}

func (p *Pipeline) fail(runID uuid.UUID, stage State, err error) error {
	p.mu.Lock()
	p.status.State = StateFailed
	p.status.Error = err.Error()
	p.mu.Unlock()

	perr := &Error{Stage: stage, RunID: runID, Err: err}
	p.logger.Error("run failed", "run_id", runID, "stage", stage, "error", err)
	if p.notifier != nil {
		p.notifier.RunFailed(runID, string(stage), err)
	}
	return perr
}

// Run executes the full pipeline: inputRef → transcript → chunks →
// concurrent partial analyses → aggregated report → outputRef. It either
// returns a complete FinalAnalysis or one structured error; no partial
// report is ever written.
func (p *Pipeline) Run(ctx context.Context, inputRef, outputRef string) (*analysis.FinalAnalysis, error) {
	runID := uuid.New()
	if err := p.begin(runID, inputRef, outputRef); err != nil {
		return nil, err
	}

	started := time.Now()
	p.logger.Info("run started",
		"run_id", runID,
		"input", inputRef,
		"output", outputRef,
		"chunk_size", p.cfg.ChunkSize,
		"concurrency", p.cfg.Concurrency,
	)
	if p.notifier != nil {
		p.notifier.RunStarted(runID, inputRef)
	}

	// Loading.
	tr, err := p.loadTranscript(inputRef)
	if err != nil {
		return nil, p.fail(runID, StateLoading, err)
	}
	p.mu.Lock()
	p.status.TotalMessages = tr.Len()
	p.mu.Unlock()
	if err := p.advance(StateChunking); err != nil {
		return nil, p.fail(runID, StateLoading, err)
	}

	// Chunking.
	chunks, err := chunker.Split(tr, p.cfg.ChunkSize)
	if err != nil {
		return nil, p.fail(runID, StateChunking, err)
	}
	p.mu.Lock()
	p.status.TotalChunks = len(chunks)
	p.mu.Unlock()
	p.logger.Info("transcript chunked", "run_id", runID, "messages", tr.Len(), "chunks", len(chunks))
	if err := p.advance(StateAnalyzing); err != nil {
		return nil, p.fail(runID, StateChunking, err)
	}

	// Analyzing: bounded fan-out. The errgroup context cancels outstanding
	// tasks on the first terminal failure, and Wait is the barrier.
	partials, err := p.analyzeAll(ctx, runID, chunks)
	if err != nil {
		return nil, p.fail(runID, StateAnalyzing, err)
	}
	if err := p.advance(StateAggregating); err != nil {
		return nil, p.fail(runID, StateAnalyzing, err)
	}

	// Aggregating.
	md, err := p.aggregator.Aggregate(ctx, partials)
	if err != nil {
		return nil, p.fail(runID, StateAggregating, err)
	}
	final := analysis.NewFinalAnalysis(partials, md)

	if err := p.writeReport(outputRef, final.FinalReport); err != nil {
		return nil, p.fail(runID, StateAggregating, err)
	}
	if err := p.advance(StateCompleted); err != nil {
		return nil, p.fail(runID, StateAggregating, err)
	}

	p.logger.Info("run completed",
		"run_id", runID,
		"chunks", final.TotalChunks,
		"messages", final.TotalMessages,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	if p.notifier != nil {
		p.notifier.RunCompleted(runID, final, outputRef)
	}
	if p.archive != nil {
		rec := RunRecord{
			RunID:         runID,
			InputRef:      inputRef,
			OutputRef:     outputRef,
			TotalChunks:   final.TotalChunks,
			TotalMessages: final.TotalMessages,
			FinalReport:   final.FinalReport,
			Partials:      final.PartialAnalyses,
			StartedAt:     started.UTC(),
			DurationMS:    time.Since(started).Milliseconds(),
		}
		if err := p.archive.SaveRun(ctx, rec); err != nil {
			p.logger.Warn("failed to archive run", "run_id", runID, "error", err)
		}
	}

	return final, nil
}

// analyzeAll fans the chunks out to the analyzer with bounded concurrency
// and collects results keyed by chunk id. The returned slice is sorted
// ascending by chunk id regardless of completion order.
func (p *Pipeline) analyzeAll(ctx context.Context, runID uuid.UUID, chunks []chunker.Chunk) ([]analysis.PartialAnalysis, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	var mu sync.Mutex
	results := make(map[int]analysis.PartialAnalysis, len(chunks))

	for _, c := range chunks {
		g.Go(func() error {
			partial, err := p.analyzer.Analyze(gctx, c)
			if err != nil {
				return err
			}

			mu.Lock()
			if _, dup := results[c.ID]; dup {
				mu.Unlock()
				return fmt.Errorf("chunk %d analyzed twice", c.ID)
			}
			results[c.ID] = *partial
			mu.Unlock()

			p.mu.Lock()
			p.status.ChunksDone++
			p.mu.Unlock()

			if p.notifier != nil {
				p.notifier.ChunkAnalyzed(runID, c.ID, partial.MessageCount)
			}
			return nil
		})
	}

	// Barrier: every chunk task has resolved before we move on.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(results) != len(chunks) {
		return nil, fmt.Errorf("expected %d partial analyses, got %d", len(chunks), len(results))
	}

	partials := make([]analysis.PartialAnalysis, 0, len(results))
	for _, pa := range results {
		partials = append(partials, pa)
	}
	sort.Slice(partials, func(i, j int) bool { return partials[i].ChunkID < partials[j].ChunkID })

	return partials, nil
}
