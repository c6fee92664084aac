package chunker

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/digest/internal/transcript"
)

func makeTranscript(n int) *transcript.Transcript {
	msgs := make([]transcript.Message, n)
	for i := range msgs {
		msgs[i] = transcript.Message{
			SeqID:     i + 1,
			ID:        fmt.Sprintf("m%d", i+1),
			Content:   fmt.Sprintf("message %d", i+1),
			Author:    transcript.Author{ID: "u1", Name: "Ana"},
			Timestamp: "2026-03-01T10:00:00Z",
		}
	}
	return &transcript.Transcript{Messages: msgs}
}

func TestSplit_TenMessagesChunkSizeFour(t *testing.T) {
	chunks, err := Split(makeTranscript(10), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	wantCounts := []int{4, 4, 2}
	for i, c := range chunks {
		if c.ID != i {
			t.Errorf("chunk %d: id = %d", i, c.ID)
		}
		if c.MessageCount() != wantCounts[i] {
			t.Errorf("chunk %d: count = %d, want %d", i, c.MessageCount(), wantCounts[i])
		}
	}

	// Boundaries: msgs 1-4, 5-8, 9-10.
	if chunks[0].Messages[0].SeqID != 1 || chunks[0].Messages[3].SeqID != 4 {
		t.Errorf("chunk 0 boundaries wrong: %d..%d", chunks[0].Messages[0].SeqID, chunks[0].Messages[3].SeqID)
	}
	if chunks[1].Messages[0].SeqID != 5 || chunks[1].Messages[3].SeqID != 8 {
		t.Errorf("chunk 1 boundaries wrong: %d..%d", chunks[1].Messages[0].SeqID, chunks[1].Messages[3].SeqID)
	}
	if chunks[2].Messages[0].SeqID != 9 || chunks[2].Messages[1].SeqID != 10 {
		t.Errorf("chunk 2 boundaries wrong: %d..%d", chunks[2].Messages[0].SeqID, chunks[2].Messages[1].SeqID)
	}
}

func TestSplit_CountsSumToTranscriptLength(t *testing.T) {
	for _, tc := range []struct{ n, k, chunks int }{
		{1, 1, 1},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{45, 20, 3},
		{100, 7, 15},
	} {
		chunks, err := Split(makeTranscript(tc.n), tc.k)
		if err != nil {
			t.Fatalf("n=%d k=%d: unexpected error: %v", tc.n, tc.k, err)
		}
		if len(chunks) != tc.chunks {
			t.Errorf("n=%d k=%d: expected %d chunks, got %d", tc.n, tc.k, tc.chunks, len(chunks))
		}
		sum := 0
		for i, c := range chunks {
			if c.ID != i {
				t.Errorf("n=%d k=%d: chunk %d has id %d", tc.n, tc.k, i, c.ID)
			}
			sum += c.MessageCount()
		}
		if sum != tc.n {
			t.Errorf("n=%d k=%d: message counts sum to %d", tc.n, tc.k, sum)
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	tr := makeTranscript(37)
	first, err := Split(tr, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Split(tr, 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatal("repeated splits produced different boundaries")
		}
	}
}

func TestSplit_InvalidChunkSize(t *testing.T) {
	for _, k := range []int{0, -1} {
		if _, err := Split(makeTranscript(3), k); err == nil {
			t.Errorf("chunk size %d: expected error", k)
		}
	}
}

func TestSplit_EmptyTranscript(t *testing.T) {
	if _, err := Split(&transcript.Transcript{}, 4); err == nil {
		t.Error("expected error for empty transcript")
	}
	if _, err := Split(nil, 4); err == nil {
		t.Error("expected error for nil transcript")
	}
}

func TestRender_IncludesMessageIDs(t *testing.T) {
	chunks, err := Split(makeTranscript(2), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := Render(chunks[0])
	if !strings.Contains(out, "[m1]") || !strings.Contains(out, "[m2]") {
		t.Errorf("rendered chunk missing message ids:\n%s", out)
	}
	if !strings.Contains(out, "Ana") {
		t.Errorf("rendered chunk missing author name:\n%s", out)
	}
}
