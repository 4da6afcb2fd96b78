// Package extract drives the full pipeline for one document: preflight,
// page rendering, text masking, detection, fidelity upgrades, colorspace
// normalization and atomic persistence, with per-attempt accounting. Page
// failures are isolated; one broken page never aborts the document.
package extract

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/deckle/deckle/internal/detect"
	"github.com/deckle/deckle/internal/health"
	"github.com/deckle/deckle/internal/normalize"
	"github.com/deckle/deckle/internal/persist"
	"github.com/deckle/deckle/internal/preflight"
	"github.com/deckle/deckle/internal/report"
	"github.com/deckle/deckle/internal/source"
	"github.com/deckle/deckle/internal/textblock"
)

// AttemptLogName is the per-run JSONL attempt log written into the output
// directory alongside the extracted components.
const AttemptLogName = "attempts.jsonl"

// ReportName is the per-run YAML summary written into the output directory.
const ReportName = "report.yaml"

// Config configures one extraction run.
type Config struct {
	// OutDir receives components, the attempt log and the report. Empty
	// means a "<document>_components" sibling of the input.
	OutDir string
	// DryRun runs detection and normalization but writes nothing; every
	// would-be save is recorded as skipped.
	DryRun bool
	// Detect holds the detection thresholds. Zero fields take defaults.
	Detect detect.Config
	// AssumedImageDPI maps pixels to page points for image-directory
	// sources that carry no resolution metadata.
	AssumedImageDPI int

	Logger *slog.Logger
}

// Runner executes extraction runs. Safe to reuse for several documents.
type Runner struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{cfg: cfg, logger: cfg.Logger}
}

// Run extracts every page of the document at docPath and returns the run
// summary. The summary is also written to the output directory unless the
// run is dry.
func (r *Runner) Run(docPath string) (*report.Summary, error) {
	src, blocks, isPDF, err := r.openSource(docPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	defer blocks.Close()

	var profile *preflight.Profile
	if isPDF {
		profile = preflight.Inspect(docPath, r.logger)
	}
	return r.RunSource(src, blocks, docPath, profile)
}

// RunSource extracts from an already-open source. The caller keeps
// ownership of src and blocks; docName labels the run in logs and the
// report and seeds the default output directory.
func (r *Runner) RunSource(src source.Source, blocks textblock.Provider, docName string, profile *preflight.Profile) (*report.Summary, error) {
	outDir := r.outDirFor(docName)
	summary := report.NewSummary(docName, outDir)
	summary.DryRun = r.cfg.DryRun
	summary.Preflight = profile

	var persister *persist.Persister
	var attempts *persist.AttemptLog
	if !r.cfg.DryRun {
		var err error
		persister, err = persist.NewPersister(outDir, r.logger)
		if err != nil {
			return nil, err
		}
		attempts, err = persist.OpenAttemptLog(filepath.Join(outDir, AttemptLogName))
		if err != nil {
			return nil, fmt.Errorf("open attempt log: %w", err)
		}
		defer attempts.Close()
	}

	detector := detect.New(r.cfg.Detect)
	upgrader := detect.NewUpgrader(r.cfg.Detect, src)
	normalizer := normalize.New(r.logger)
	metrics := health.New()

	r.logger.Info("extraction started",
		"document", docName, "pages", src.PageCount(), "dry_run", r.cfg.DryRun)

	for index := 0; index < src.PageCount(); index++ {
		ps := r.processPage(index, src, blocks, detector, upgrader, normalizer,
			persister, attempts, metrics)
		summary.Pages = append(summary.Pages, ps)
	}

	summary.Finish(metrics)
	if !metrics.Consistent() {
		r.logger.Error("attempt accounting out of balance",
			"attempted", metrics.Attempted, "saved", metrics.Saved, "failed", metrics.Failed)
	}
	if summary.Unhealthy {
		r.logger.Warn("run unhealthy",
			"failure_rate", fmt.Sprintf("%.2f", metrics.FailureRate()),
			"failed", metrics.Failed, "attempted", metrics.Attempted)
	}

	if !r.cfg.DryRun {
		if err := report.WriteSummary(summary, filepath.Join(outDir, ReportName)); err != nil {
			r.logger.Warn("could not write run report", "error", err)
		}
	}

	r.logger.Info("extraction finished",
		"document", docName,
		"saved", metrics.Saved, "failed", metrics.Failed, "skipped", metrics.Skipped,
		"elapsed_s", fmt.Sprintf("%.1f", summary.ElapsedSeconds))
	return summary, nil
}

// openSource picks the page provider for the input path: a PDF gets the
// fitz rasterizer plus its text layer, anything else is treated as
// pre-rendered page images with no text layer to consult.
func (r *Runner) openSource(path string) (source.Source, textblock.Provider, bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, nil, false, err
	}

	if !fi.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
		src, err := source.NewFitzPDFSource(path)
		if err != nil {
			return nil, nil, false, err
		}
		blocks, err := textblock.NewPDFProvider(path, textblock.Config{Logger: r.logger})
		if err != nil {
			r.logger.Warn("text layer unavailable, masking disabled",
				"document", path, "error", err)
			return src, textblock.NullProvider{}, true, nil
		}
		return src, blocks, true, nil
	}

	src, err := source.NewImageSource(path, r.cfg.AssumedImageDPI)
	if err != nil {
		return nil, nil, false, err
	}
	return src, textblock.NullProvider{}, false, nil
}

func (r *Runner) outDirFor(doc string) string {
	if r.cfg.OutDir != "" {
		return r.cfg.OutDir
	}
	base := strings.TrimSuffix(filepath.Base(doc), filepath.Ext(doc))
	return filepath.Join(filepath.Dir(doc), base+"_components")
}

// processPage runs one page through detection and persistence. Errors are
// contained in the returned page summary.
func (r *Runner) processPage(index int, src source.Source, blocks textblock.Provider,
	detector *detect.Detector, upgrader *detect.Upgrader, normalizer *normalize.Normalizer,
	persister *persist.Persister, attempts *persist.AttemptLog, metrics *health.Metrics) report.PageSummary {

	ps := report.PageSummary{Page: index}

	page, err := src.RenderPage(index, detector.Config().BaseDPI)
	if err != nil {
		r.logger.Error("page render failed, skipping page", "page", index, "error", err)
		ps.Error = err.Error()
		return ps
	}

	textBlocks, err := blocks.PageBlocks(index, page.HeightPt)
	if err != nil {
		r.logger.Warn("text blocks unavailable for page", "page", index, "error", err)
		textBlocks = nil
	}

	figures, rejections := detector.Detect(page, textBlocks)
	ps.Accepted = len(figures)
	ps.Rejected = len(rejections)

	for i := range figures {
		fig := &figures[i]
		if err := upgrader.Upgrade(page, fig); err != nil {
			r.logger.Warn("figure crop failed", "page", index, "figure", i, "error", err)
		}
		res := r.processFigure(page, i, fig, normalizer, persister, metrics)
		if attempts != nil {
			if err := attempts.Append(res); err != nil {
				r.logger.Warn("attempt log write failed", "error", err)
			}
		}
	}
	return ps
}

// processFigure normalizes and persists one accepted figure, returning the
// attempt record. Exactly one of the saved/failed/skipped counters is
// advanced per call.
func (r *Runner) processFigure(page *source.RenderedPage, ordinal int, fig *detect.Figure,
	normalizer *normalize.Normalizer, persister *persist.Persister,
	metrics *health.Metrics) persist.Result {

	res := persist.Result{Page: page.Index, Figure: ordinal, MeanColor: fig.Metrics.MeanColorHex}

	if fig.Image == nil {
		res.ColorSpace = "DeviceRGB"
		res.Status = persist.StatusFailed
		res.Reason = normalize.ReasonConversionError
		metrics.RecordFailed(res.ColorSpace, res.Reason)
		return res
	}

	buf := normalize.FromRGBA(fig.Image)
	res.ColorSpace = buf.ColorSpace

	norm, err := normalizer.Normalize(buf)
	if err != nil {
		reason := normalize.ReasonOf(err)
		r.logger.Error("figure normalization failed",
			"page", page.Index, "figure", ordinal, "reason", reason, "error", err)
		res.Status = persist.StatusFailed
		res.Reason = reason
		metrics.RecordFailed(buf.ColorSpace, reason)
		return res
	}

	res.Mode = norm.Mode
	res.Op = norm.Op
	res.Warnings = norm.Warnings
	res.Width = norm.Image.Bounds().Dx()
	res.Height = norm.Image.Bounds().Dy()
	if fig.UpscaleSuspect {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("upscale_suspect: re-rendered at %d dpi without detail gain", fig.RenderDPI))
	}

	if r.cfg.DryRun {
		res.Status = persist.StatusSkipped
		res.Reason = "dry_run"
		metrics.RecordSkipped(buf.ColorSpace)
		return res
	}

	name := persist.FileName(page.Index, ordinal)
	path, bytes, err := persister.Save(name, norm.Image)
	if err != nil {
		res.Status = persist.StatusFailed
		res.Reason = persist.ReasonSaveError
		metrics.RecordFailed(buf.ColorSpace, persist.ReasonSaveError)
		return res
	}

	res.Status = persist.StatusPersisted
	res.Path = &path
	res.Bytes = bytes
	metrics.RecordSaved(buf.ColorSpace, norm.Op)
	r.logger.Debug("figure persisted",
		"page", page.Index, "figure", ordinal, "path", path,
		"tier", string(fig.Tier), "dpi", fig.RenderDPI, "bytes", bytes)
	return res
}
