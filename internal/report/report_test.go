package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deckle/deckle/internal/health"
	"github.com/deckle/deckle/internal/preflight"
)

func TestSummaryWriteRead(t *testing.T) {
	summary := NewSummary("/docs/rulebook.pdf", "/out/rulebook")
	summary.Preflight = &preflight.Profile{PageCount: 24, HasImageStreams: true, ImageObjects: 96}
	summary.Pages = []PageSummary{
		{Page: 0, Accepted: 5, Rejected: 12},
		{Page: 1, Accepted: 0, Rejected: 3, Error: "render failed: truncated stream"},
	}

	m := health.New()
	for i := 0; i < 4; i++ {
		m.RecordSaved("DeviceRGB", "rgb")
	}
	m.RecordFailed("Unknown", "colorspace_unsupported")
	m.RecordFailed("Unknown", "colorspace_unsupported")
	summary.Finish(m)

	path := filepath.Join(t.TempDir(), "report.yaml")
	if err := WriteSummary(summary, path); err != nil {
		t.Fatalf("WriteSummary failed: %v", err)
	}

	read, err := ReadSummary(path)
	if err != nil {
		t.Fatalf("ReadSummary failed: %v", err)
	}

	if read.Version != summary.Version {
		t.Errorf("Version mismatch: expected %s, got %s", summary.Version, read.Version)
	}
	if read.Document != summary.Document {
		t.Errorf("Document mismatch: expected %s, got %s", summary.Document, read.Document)
	}
	if read.Preflight == nil || read.Preflight.PageCount != 24 {
		t.Errorf("Preflight did not survive round trip: %+v", read.Preflight)
	}
	if len(read.Pages) != 2 {
		t.Fatalf("Page count mismatch: expected 2, got %d", len(read.Pages))
	}
	if read.Pages[1].Error == "" {
		t.Error("page error lost in round trip")
	}
	if read.Health == nil || read.Health.Attempted != 6 || read.Health.Saved != 4 {
		t.Errorf("Health did not survive round trip: %+v", read.Health)
	}
	if read.Unhealthy != true {
		t.Error("Unhealthy flag lost in round trip")
	}
}

func TestFinishStampsVerdict(t *testing.T) {
	summary := NewSummary("doc.pdf", "out")
	summary.StartedAt = time.Now().Add(-2 * time.Second)

	m := health.New()
	m.RecordSaved("DeviceGray", "gray")
	summary.Finish(m)

	if summary.ElapsedSeconds < 1.0 {
		t.Errorf("ElapsedSeconds = %f, want at least 1", summary.ElapsedSeconds)
	}
	if summary.Unhealthy {
		t.Error("all-saved run flagged unhealthy")
	}
	if summary.Process.Goroutines < 1 {
		t.Errorf("process snapshot missing: %+v", summary.Process)
	}
}

func TestSummaryYAMLShape(t *testing.T) {
	summary := NewSummary("doc.pdf", "out")
	summary.Finish(health.New())

	path := filepath.Join(t.TempDir(), "report.yaml")
	if err := WriteSummary(summary, path); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data := string(raw)
	for _, key := range []string{"version:", "document:", "health:", "process:"} {
		if !strings.Contains(data, key) {
			t.Errorf("report missing %q key:\n%s", key, data)
		}
	}
}
