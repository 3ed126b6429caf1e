package format_test

import (
	"strings"
	"testing"
	"time"

	"github.com/sarvex/model-analysis/domain/metrics"
	"github.com/sarvex/model-analysis/internal/format"
	modeltable "github.com/sarvex/model-analysis/internal/table"
)

// TestASCIITable verifies headers and rows appear in ASCII output
func TestASCIITable(t *testing.T) {
	b := format.NewTable(format.ASCII)
	b.Header("feature", "loss")
	b.Row("Overall", "0.7")
	b.Row("sex:male", "0.72")

	out := b.String()
	for _, want := range []string{"FEATURE", "LOSS", "Overall", "sex:male", "0.72"} {
		if !strings.Contains(out, want) {
			t.Errorf("ASCII output missing %q:\n%s", want, out)
		}
	}
}

// TestMarkdownTable verifies pipe-delimited Markdown rendering
func TestMarkdownTable(t *testing.T) {
	b := format.NewTable(format.Markdown)
	b.Header("feature", "auc")
	b.Row("Overall", "0.61 (0.6, 0.62)")

	out := b.String()
	if !strings.Contains(out, "|") {
		t.Errorf("Markdown output has no pipes:\n%s", out)
	}
	if !strings.Contains(out, "0.61 (0.6, 0.62)") {
		t.Errorf("Markdown output missing bounded value:\n%s", out)
	}
}

// TestRenderTable verifies the display-table bridge keeps every cell
func TestRenderTable(t *testing.T) {
	data := metrics.NewSliceMetrics("Overall")
	data.Set("loss", metrics.NewScalar(0.7))
	data.Set("auc", metrics.MustBounded(0.61, 0.6, 0.62))

	computed, err := modeltable.Build(modeltable.Input{
		Metrics:       []string{"loss", "auc"},
		Data:          []metrics.SliceMetrics{data},
		ExampleCounts: map[string]float64{"Overall": 1000},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	out := format.RenderTable(computed, format.ASCII)
	for _, want := range []string{"Overall", "1000", "0.7", "0.61 (0.6, 0.62)", "EXAMPLE COUNT"} {
		if !strings.Contains(out, want) {
			t.Errorf("Rendered table missing %q:\n%s", want, out)
		}
	}
}

// TestFmtCount verifies K/M suffixes
func TestFmtCount(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1500, "1.5K"},
		{2_500_000, "2.5M"},
	}
	for _, test := range tests {
		if got := format.FmtCount(test.in); got != test.want {
			t.Errorf("FmtCount(%d): expected %q, got %q", test.in, test.want, got)
		}
	}
}

// TestFmtDuration verifies compact duration rendering
func TestFmtDuration(t *testing.T) {
	if got := format.FmtDuration(90 * time.Second); got != "1m 30s" {
		t.Errorf("Expected '1m 30s', got %q", got)
	}
	if got := format.FmtDuration(45 * time.Second); got != "45s" {
		t.Errorf("Expected '45s', got %q", got)
	}
}

// TestTruncate verifies ellipsis behavior
func TestTruncate(t *testing.T) {
	if got := format.Truncate("short", 10); got != "short" {
		t.Errorf("Expected 'short', got %q", got)
	}
	if got := format.Truncate("a very long slice name", 10); got != "a very ..." {
		t.Errorf("Expected 'a very ...', got %q", got)
	}
}
