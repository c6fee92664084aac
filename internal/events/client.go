// Package events publishes run lifecycle events over NATS and carries the
// analyze-request subscription used in daemon mode.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/MikeSquared-Agency/digest/internal/analysis"
)

const (
	SubjectRunStarted     = "swarm.digest.run.started"
	SubjectChunkAnalyzed  = "swarm.digest.chunk.analyzed"
	SubjectRunCompleted   = "swarm.digest.run.completed"
	SubjectRunFailed      = "swarm.digest.run.failed"
	SubjectAnalyzeRequest = "swarm.digest.analyze.request"
)

// AnalyzeRequest asks a daemon-mode digest to run the pipeline.
type AnalyzeRequest struct {
	InputRef  string `json:"input_ref"`
	OutputRef string `json:"output_ref"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}

// The methods below implement the pipeline's Notifier. Publishing is
// best-effort: a lost event never fails a run.

func (c *Client) RunStarted(runID uuid.UUID, inputRef string) {
	c.publishEvent(SubjectRunStarted, map[string]any{
		"run_id":    runID.String(),
		"input_ref": inputRef,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *Client) ChunkAnalyzed(runID uuid.UUID, chunkID, messageCount int) {
	c.publishEvent(SubjectChunkAnalyzed, map[string]any{
		"run_id":        runID.String(),
		"chunk_id":      chunkID,
		"message_count": messageCount,
	})
}

func (c *Client) RunCompleted(runID uuid.UUID, final *analysis.FinalAnalysis, outputRef string) {
	c.publishEvent(SubjectRunCompleted, map[string]any{
		"run_id":         runID.String(),
		"output_ref":     outputRef,
		"total_chunks":   final.TotalChunks,
		"total_messages": final.TotalMessages,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *Client) RunFailed(runID uuid.UUID, stage string, err error) {
	c.publishEvent(SubjectRunFailed, map[string]any{
		"run_id":    runID.String(),
		"stage":     stage,
		"error":     err.Error(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *Client) publishEvent(subject string, payload map[string]any) {
	if err := c.Publish(subject, payload); err != nil {
		c.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}
