// Package preflight profiles a source document before extraction. Problems
// found here become report warnings, never fatal errors: extraction proceeds
// on whatever pages can still be rendered.
package preflight

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Profile summarizes document structure for the run report.
type Profile struct {
	PageCount       int    `yaml:"page_count"`
	Encrypted       bool   `yaml:"encrypted,omitempty"`
	HasImageStreams bool   `yaml:"has_image_streams"`
	ImageObjects    int    `yaml:"image_objects,omitempty"`
	Warning         string `yaml:"warning,omitempty"`
}

// Inspect validates and profiles the document at path. It always returns a
// profile: anything that prevents profiling is recorded in Warning.
func Inspect(path string, logger *slog.Logger) *Profile {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	p := &Profile{}
	f, err := os.Open(path)
	if err != nil {
		p.Warning = fmt.Sprintf("open for preflight: %v", err)
		logger.Warn("preflight skipped", "path", path, "error", err)
		return p
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		p.Warning = fmt.Sprintf("validate: %v", err)
		logger.Warn("document failed preflight validation", "path", path, "error", err)
		return p
	}

	p.PageCount = ctx.PageCount
	p.Encrypted = ctx.Encrypt != nil
	p.ImageObjects = countImageObjects(ctx)
	p.HasImageStreams = p.ImageObjects > 0 || hasImageStreams(ctx)

	logger.Debug("preflight complete",
		"path", path, "pages", p.PageCount, "image_objects", p.ImageObjects)
	return p
}

// countImageObjects sums image XObjects per page via the optimizer's index.
func countImageObjects(ctx *model.Context) int {
	if ctx.Optimize == nil {
		return 0
	}
	n := 0
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		n += len(pdfcpu.ImageObjNrs(ctx, pageNr))
	}
	return n
}

// hasImageStreams walks the xref table for image subtype streams, the
// fallback when the optimizer index is unavailable.
func hasImageStreams(ctx *model.Context) bool {
	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}
