// Package report assembles the per-run YAML summary written next to the
// extracted components.
package report

import (
	"time"

	"github.com/deckle/deckle/internal/health"
	"github.com/deckle/deckle/internal/preflight"
	"github.com/deckle/deckle/internal/system"
)

// Summary is the complete record of one extraction run over one document.
type Summary struct {
	Version        string             `yaml:"version"`
	Document       string             `yaml:"document"`
	OutputDir      string             `yaml:"output_dir"`
	StartedAt      time.Time          `yaml:"started_at"`
	ElapsedSeconds float64            `yaml:"elapsed_seconds"`
	DryRun         bool               `yaml:"dry_run,omitempty"`
	Preflight      *preflight.Profile `yaml:"preflight,omitempty"`
	Pages          []PageSummary      `yaml:"pages,omitempty"`
	Health         *health.Metrics    `yaml:"health,omitempty"`
	Unhealthy      bool               `yaml:"unhealthy"`
	Process        system.Stats       `yaml:"process"`
}

// PageSummary counts the outcome of one page.
type PageSummary struct {
	Page     int    `yaml:"page"`
	Accepted int    `yaml:"accepted"`
	Rejected int    `yaml:"rejected"`
	Error    string `yaml:"error,omitempty"`
}

// NewSummary starts a summary for the given document.
func NewSummary(document, outputDir string) *Summary {
	return &Summary{
		Version:   "1.0",
		Document:  document,
		OutputDir: outputDir,
		StartedAt: time.Now(),
	}
}

// Finish stamps elapsed time, the health verdict and a process snapshot.
func (s *Summary) Finish(m *health.Metrics) {
	s.ElapsedSeconds = time.Since(s.StartedAt).Seconds()
	s.Health = m
	s.Unhealthy = m.Unhealthy()
	s.Process = system.Snapshot()
}
