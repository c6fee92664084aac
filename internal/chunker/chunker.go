// Package chunker splits a validated transcript into bounded, contiguous
// analysis units.
package chunker

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/digest/internal/transcript"
)

// Chunk is a contiguous, non-overlapping slice of the transcript sized for
// one analysis call. IDs are assigned in walk order starting at 0.
type Chunk struct {
	ID       int
	Messages []transcript.Message
}

// MessageCount returns the number of messages in the chunk.
func (c Chunk) MessageCount() int { return len(c.Messages) }

// ChunkError reports an invalid chunking configuration.
type ChunkError struct {
	Msg string
}

func (e *ChunkError) Error() string { return "chunk transcript: " + e.Msg }

// Split walks the ordered transcript and takes chunkSize messages per
// chunk; the last chunk may be smaller. The same (transcript, chunkSize)
// always yields identical boundaries.
func Split(t *transcript.Transcript, chunkSize int) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, &ChunkError{Msg: fmt.Sprintf("chunk size must be positive, got %d", chunkSize)}
	}
	if t == nil || t.Len() == 0 {
		return nil, &ChunkError{Msg: "transcript is empty"}
	}

	msgs := t.Messages
	chunks := make([]Chunk, 0, (len(msgs)+chunkSize-1)/chunkSize)
	for start := 0; start < len(msgs); start += chunkSize {
		end := start + chunkSize
		if end > len(msgs) {
			end = len(msgs)
		}
		c := Chunk{
			ID:       len(chunks),
			Messages: make([]transcript.Message, end-start),
		}
		copy(c.Messages, msgs[start:end])
		chunks = append(chunks, c)
	}

	return chunks, nil
}

// Render formats a chunk's messages as a transcript string suitable for the
// analysis prompt. Each line carries the message id so the model can cite
// example message ids.
func Render(c Chunk) string {
	var sb strings.Builder
	for _, msg := range c.Messages {
		fmt.Fprintf(&sb, "[%s] %s (%s): %s\n\n", msg.ID, msg.Author.Name, msg.Timestamp, msg.Content)
	}
	return sb.String()
}
