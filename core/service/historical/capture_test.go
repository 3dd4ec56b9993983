package historical

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lead_server/core/agent/rag"
	"lead_server/core/domain"
)

type stubEmbedder struct {
	lastText string
	err      error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.lastText = text
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubEmbedder) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int { return 3 }

func TestCaptureIncompletePair(t *testing.T) {
	svc := NewCaptureService(&stubEmbedder{}, rag.NewMemoryExampleStore())

	tests := []struct {
		name string
		req  *CaptureRequest
	}{
		{"missing response", &CaptureRequest{InquiryBody: "inquiry"}},
		{"missing inquiry", &CaptureRequest{ResponseBody: "response"}},
		{"blank both", &CaptureRequest{InquiryBody: "  ", ResponseBody: "\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Capture(context.Background(), tt.req); err != ErrIncompletePair {
				t.Errorf("expected ErrIncompletePair, got %v", err)
			}
		})
	}
}

func TestCaptureStoresExample(t *testing.T) {
	store := rag.NewMemoryExampleStore()
	embedder := &stubEmbedder{}
	svc := NewCaptureService(embedder, store)

	example, err := svc.Capture(context.Background(), &CaptureRequest{
		InquirySubject: "Quote request",
		InquiryBody:    "We need probiotics.",
		ResponseBody:   "Thanks for reaching out. Let me know your target quantity?",
	})
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	if example.ID == 0 {
		t.Error("example not assigned an ID")
	}
	if len(example.Embedding) == 0 {
		t.Error("inquiry embedding missing")
	}
	if embedder.lastText != "We need probiotics." {
		t.Errorf("embedded wrong text: %q", embedder.lastText)
	}
	if !example.Traits.HasEmailCTA {
		t.Error("response traits not derived")
	}
	if example.Traits.QuestionCount != 1 {
		t.Errorf("expected 1 question, got %d", example.Traits.QuestionCount)
	}

	count, _ := store.Count(context.Background())
	if count != 1 {
		t.Errorf("expected 1 stored example, got %d", count)
	}
}

func TestCaptureEmbedsTruncatedInquiry(t *testing.T) {
	embedder := &stubEmbedder{}
	svc := NewCaptureService(embedder, rag.NewMemoryExampleStore())

	long := strings.Repeat("x", 3000)
	example, err := svc.Capture(context.Background(), &CaptureRequest{
		InquiryBody:  long,
		ResponseBody: "reply",
	})
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	if len(embedder.lastText) != 1000 {
		t.Errorf("expected 1000-char embed input, got %d", len(embedder.lastText))
	}
	// The stored body stays complete.
	if len(example.InquiryBody) != 3000 {
		t.Errorf("stored inquiry body truncated to %d", len(example.InquiryBody))
	}
}

func TestCaptureEmbedFailure(t *testing.T) {
	svc := NewCaptureService(&stubEmbedder{err: errors.New("provider down")}, rag.NewMemoryExampleStore())

	if _, err := svc.Capture(context.Background(), &CaptureRequest{
		InquiryBody:  "inquiry",
		ResponseBody: "response",
	}); err == nil {
		t.Error("expected error when embedding fails")
	}
}

func TestDeactivate(t *testing.T) {
	store := rag.NewMemoryExampleStore()
	svc := NewCaptureService(&stubEmbedder{}, store)

	example, err := svc.Capture(context.Background(), &CaptureRequest{
		InquiryBody:  "inquiry",
		ResponseBody: "response",
	})
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	if err := svc.Deactivate(context.Background(), example.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	count, _ := store.Count(context.Background())
	if count != 0 {
		t.Errorf("deactivated example still counted: %d", count)
	}
}

func TestAnalyzeResponseTraitsCategories(t *testing.T) {
	short := domain.AnalyzeResponseTraits("Thanks.")
	if short.LengthCategory != "short" {
		t.Errorf("expected short, got %s", short.LengthCategory)
	}

	medium := domain.AnalyzeResponseTraits(strings.Repeat("word ", 150))
	if medium.LengthCategory != "medium" {
		t.Errorf("expected medium, got %s", medium.LengthCategory)
	}

	long := domain.AnalyzeResponseTraits(strings.Repeat("word ", 250))
	if long.LengthCategory != "long" {
		t.Errorf("expected long, got %s", long.LengthCategory)
	}
}
