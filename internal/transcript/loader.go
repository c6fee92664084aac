// Package transcript loads and validates chat-style Q&A exports.
package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// Author is the sender of a message.
type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Message is a single entry in the exported conversation. SeqID is unique
// within a transcript and defines the total order.
type Message struct {
	SeqID     int    `json:"seqId"`
	ID        string `json:"id"`
	Content   string `json:"content"`
	Author    Author `json:"author"`
	Timestamp string `json:"timestamp"`
}

// Transcript is the validated, ordered message history. It is built once by
// Load and not mutated afterwards.
type Transcript struct {
	Messages []Message
}

// Len returns the number of messages.
func (t *Transcript) Len() int { return len(t.Messages) }

// LoadError reports a malformed or empty transcript. Load failures are
// terminal and never retried.
type LoadError struct {
	Msg string
	Err error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load transcript: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("load transcript: %s", e.Msg)
}

func (e *LoadError) Unwrap() error { return e.Err }

type export struct {
	Messages []Message `json:"messages"`
}

// Load decodes a `{"messages": [...]}` export, validates every message, and
// returns the transcript sorted ascending by seqId. Input order is not
// trusted.
func Load(r io.Reader) (*Transcript, error) {
	var exp export
	if err := json.NewDecoder(r).Decode(&exp); err != nil {
		return nil, &LoadError{Msg: "decode json", Err: err}
	}

	if len(exp.Messages) == 0 {
		return nil, &LoadError{Msg: "transcript has no messages"}
	}

	seen := make(map[int]bool, len(exp.Messages))
	for i, m := range exp.Messages {
		if err := validateMessage(m); err != nil {
			return nil, &LoadError{Msg: fmt.Sprintf("message %d", i), Err: err}
		}
		if seen[m.SeqID] {
			return nil, &LoadError{Msg: fmt.Sprintf("duplicate seqId %d", m.SeqID)}
		}
		seen[m.SeqID] = true
	}

	msgs := make([]Message, len(exp.Messages))
	copy(msgs, exp.Messages)
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].SeqID < msgs[j].SeqID })

	return &Transcript{Messages: msgs}, nil
}

// LoadFile opens and loads a transcript export from disk.
func LoadFile(path string) (*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Msg: fmt.Sprintf("open %s", path), Err: err}
	}
	defer f.Close()
	return Load(f)
}

func validateMessage(m Message) error {
	if m.SeqID <= 0 {
		return fmt.Errorf("seqId must be positive, got %d", m.SeqID)
	}
	if m.ID == "" {
		return fmt.Errorf("missing id")
	}
	if m.Content == "" {
		return fmt.Errorf("missing content")
	}
	if m.Author.ID == "" {
		return fmt.Errorf("missing author id")
	}
	if m.Author.Name == "" {
		return fmt.Errorf("missing author name")
	}
	if m.Timestamp == "" {
		return fmt.Errorf("missing timestamp")
	}
	return nil
}
