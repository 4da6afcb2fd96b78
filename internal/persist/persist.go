// Package persist writes normalized figures to disk atomically and keeps the
// per-attempt record that downstream accounting is rebuilt from. A target
// path ends in exactly one of two states, absent or fully written: content
// goes to a sibling temp file first and only an os.Rename ever touches the
// final name.
package persist

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Attempt status values.
const (
	StatusPersisted = "persisted"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// ReasonSaveError marks any failure inside the write/verify/rename protocol.
const ReasonSaveError = "save_error"

// Result records the outcome of one persistence attempt. Immutable once
// built; one line of the attempt log.
type Result struct {
	Page       int      `json:"page"`
	Figure     int      `json:"figure"`
	ColorSpace string   `json:"colorspace"`
	Status     string   `json:"status"`
	Reason     string   `json:"reason,omitempty"`
	Path       *string  `json:"path"`
	Bytes      int64    `json:"bytes"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Mode       string   `json:"mode,omitempty"`
	Op         string   `json:"op,omitempty"`
	MeanColor  string   `json:"mean_color,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// FileName is the deterministic artifact name for a figure, stable across
// re-runs on unchanged input.
func FileName(page, figure int) string {
	return fmt.Sprintf("page_%03d_fig_%02d.png", page, figure)
}

type Persister struct {
	dir    string
	logger *slog.Logger
}

func NewPersister(dir string, logger *slog.Logger) (*Persister, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Persister{dir: dir, logger: logger}, nil
}

func (p *Persister) Dir() string { return p.dir }

// Save encodes img as PNG under name using the temp-write/verify/rename
// protocol. On any error the target path is left absent and partial artifacts
// are cleaned up best-effort.
func (p *Persister) Save(name string, img image.Image) (string, int64, error) {
	target := filepath.Join(p.dir, name)
	tmp := target + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		p.cleanup(tmp)
		return "", 0, fmt.Errorf("encode %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		p.cleanup(tmp)
		return "", 0, fmt.Errorf("close temp file: %w", err)
	}

	info, err := os.Stat(tmp)
	if err != nil {
		p.cleanup(tmp)
		return "", 0, fmt.Errorf("verify temp file: %w", err)
	}
	if info.Size() == 0 {
		p.cleanup(tmp)
		return "", 0, fmt.Errorf("temp file %s is empty", tmp)
	}

	if err := os.Rename(tmp, target); err != nil {
		p.cleanup(tmp)
		return "", 0, fmt.Errorf("rename into place: %w", err)
	}

	final, err := os.Stat(target)
	if err != nil {
		return "", 0, fmt.Errorf("verify final file: %w", err)
	}
	if final.Size() != info.Size() {
		p.cleanup(target)
		return "", 0, fmt.Errorf("final size %d does not match written size %d", final.Size(), info.Size())
	}
	return target, final.Size(), nil
}

// cleanup removes a partial artifact. Failure to clean up is logged and never
// escalated.
func (p *Persister) cleanup(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.logger.Warn("could not remove partial artifact", "path", path, "error", err)
	}
}
