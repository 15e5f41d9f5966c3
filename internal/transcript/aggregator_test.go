package transcript

import (
	"io"
	"log/slog"
	"testing"

	"github.com/skypro1111/live-transcribe-service/internal/transcribe"
)

func testAggregator() *Aggregator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAggregator(NewFilter(DefaultFilterConfig()), logger)
}

func TestMergeAccumulatesSessionText(t *testing.T) {
	a := testAggregator()

	first, ok := a.Merge(&transcribe.Outcome{Text: "hello there", Confidence: 0.9}, false)
	if !ok {
		t.Fatal("Expected first outcome to be accepted")
	}
	if first.Text != "hello there" {
		t.Errorf("Expected 'hello there', got %q", first.Text)
	}
	if first.IsFinal {
		t.Error("Expected streaming result to not be final")
	}

	second, ok := a.Merge(&transcribe.Outcome{Text: " how are you ", Confidence: 0.8}, true)
	if !ok {
		t.Fatal("Expected second outcome to be accepted")
	}
	if second.Text != "hello there how are you" {
		t.Errorf("Expected space-joined transcript, got %q", second.Text)
	}
	if !second.IsFinal {
		t.Error("Expected final result to be marked final")
	}
	if second.Confidence != 0.8 {
		t.Errorf("Expected the new chunk's confidence, got %f", second.Confidence)
	}
}

func TestMergeFiltersNoise(t *testing.T) {
	a := testAggregator()

	if _, ok := a.Merge(&transcribe.Outcome{Text: "[noise]", Confidence: 0.9}, false); ok {
		t.Error("Expected bracketed annotation to be filtered")
	}
	if a.SessionText() != "" {
		t.Errorf("Expected filtered outcome to leave transcript empty, got %q", a.SessionText())
	}

	stats := a.GetStats()
	if stats.Filtered != 1 || stats.Accepted != 0 {
		t.Errorf("Expected 1 filtered and 0 accepted, got %+v", stats)
	}
}

func TestResetClearsSessionText(t *testing.T) {
	a := testAggregator()

	if _, ok := a.Merge(&transcribe.Outcome{Text: "hello world", Confidence: 0.9}, false); !ok {
		t.Fatal("Expected outcome to be accepted")
	}

	a.Reset()

	if a.SessionText() != "" {
		t.Errorf("Expected empty transcript after reset, got %q", a.SessionText())
	}

	result, ok := a.Merge(&transcribe.Outcome{Text: "fresh session", Confidence: 0.9}, false)
	if !ok {
		t.Fatal("Expected outcome to be accepted")
	}
	if result.Text != "fresh session" {
		t.Errorf("Expected transcript to restart after reset, got %q", result.Text)
	}
}
