package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/deckle/deckle/internal/detect"
	"github.com/deckle/deckle/internal/extract"
	"github.com/deckle/deckle/internal/report"
	"github.com/deckle/deckle/internal/system"
	"github.com/deckle/deckle/internal/testpage"
)

func main() {
	inputPtr := flag.String("input", "", "PDF or image directory (default: newest PDF in input/pdf/)")
	outPtr := flag.String("out", "", "Output directory (default: <document>_components next to the input; parent directory when several documents are given)")
	profilePtr := flag.String("profile", "", "Detection threshold profile (YAML)")
	dpiPtr := flag.Int("dpi", 0, "Base render DPI (0 = profile default)")
	imageDPIPtr := flag.Int("image-dpi", 96, "Assumed DPI of pre-rendered page images")
	dryRunPtr := flag.Bool("dry-run", false, "Detect and report only, write no components")
	workersPtr := flag.Int("workers", runtime.NumCPU(), "Documents processed in parallel")
	selfcheckPtr := flag.Bool("selfcheck", false, "Run the built-in synthetic-page check and exit")
	verbosePtr := flag.Bool("verbose", false, "Debug logging")

	flag.Parse()

	level := slog.LevelInfo
	if *verbosePtr {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	system.InitResourceLimits(logger)

	if *selfcheckPtr {
		if err := runSelfcheck(*outPtr, logger); err != nil {
			log.Fatalf("[-] selfcheck failed: %v", err)
		}
		fmt.Println("[+] selfcheck passed")
		return
	}

	cfg := detect.DefaultConfig()
	if *profilePtr != "" {
		var err error
		cfg, err = detect.LoadConfig(*profilePtr)
		if err != nil {
			log.Fatalf("[-] cannot load profile: %v", err)
		}
	}
	if *dpiPtr > 0 {
		cfg.BaseDPI = *dpiPtr
	}
	cfg.Logger = logger

	documents := flag.Args()
	if *inputPtr != "" {
		documents = append([]string{*inputPtr}, documents...)
	}
	if len(documents) == 0 {
		inputDir := filepath.Join("input", "pdf")
		os.MkdirAll(inputDir, 0755)
		latest, err := system.FindLatestPDF(inputDir)
		if err != nil {
			log.Fatalf("[-] %v; pass a document or drop one into %s/", err, inputDir)
		}
		documents = []string{latest}
		fmt.Printf("[*] selected: %s\n", latest)
	}

	type outcome struct {
		doc     string
		summary *report.Summary
		err     error
	}
	results := make([]outcome, len(documents))

	var g errgroup.Group
	g.SetLimit(*workersPtr)
	for i, doc := range documents {
		g.Go(func() error {
			outDir := *outPtr
			if outDir != "" && len(documents) > 1 {
				base := strings.TrimSuffix(filepath.Base(doc), filepath.Ext(doc))
				outDir = filepath.Join(outDir, base+"_components")
			}
			runner := extract.New(extract.Config{
				OutDir:          outDir,
				DryRun:          *dryRunPtr,
				Detect:          cfg,
				AssumedImageDPI: *imageDPIPtr,
				Logger:          logger.With("document", filepath.Base(doc)),
			})
			summary, err := runner.Run(doc)
			results[i] = outcome{doc: doc, summary: summary, err: err}
			return nil
		})
	}
	_ = g.Wait()

	exitCode := 0
	for _, res := range results {
		switch {
		case res.err != nil:
			exitCode = 1
			fmt.Printf("[-] %s: %v\n", res.doc, res.err)
		case res.summary.DryRun:
			m := res.summary.Health
			fmt.Printf("[*] %s: dry run, %d figures detected, %d would fail\n",
				res.doc, m.Skipped+m.Failed, m.Failed)
		case res.summary.Unhealthy:
			exitCode = 1
			m := res.summary.Health
			fmt.Printf("[!] %s: unhealthy, %d of %d attempts failed (%s)\n",
				res.doc, m.Failed, m.Attempted, res.summary.OutputDir)
		default:
			m := res.summary.Health
			fmt.Printf("[+] %s: %d components saved, %d failed, %d pages (%s)\n",
				res.doc, m.Saved, m.Failed, len(res.summary.Pages), res.summary.OutputDir)
		}
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// runSelfcheck pushes the synthetic page through the full pipeline and
// verifies the planted components are detected and persisted.
func runSelfcheck(outDir string, logger *slog.Logger) error {
	if outDir == "" {
		tmp, err := os.MkdirTemp("", "deckle_selfcheck_")
		if err != nil {
			return err
		}
		outDir = tmp
	}

	page, err := testpage.Render(150)
	if err != nil {
		return err
	}
	src := testpage.NewSource()

	runner := extract.New(extract.Config{OutDir: outDir, Logger: logger})
	summary, err := runner.RunSource(src, page.BlockProvider(), "selfcheck", nil)
	if err != nil {
		return err
	}

	rendered, err := src.RenderPage(0, 150)
	if err != nil {
		return err
	}
	figures, rejections := detect.New(detect.Config{Logger: logger}).Detect(rendered, page.TextBlocks)
	rects := make([]image.Rectangle, len(figures))
	for i, fig := range figures {
		rects[i] = fig.PixelRect
	}
	ok, lines := page.Verify(rects)

	fmt.Println("[*] selfcheck: synthetic page through the full pipeline")
	for _, l := range lines {
		fmt.Println(l)
	}
	m := summary.Health
	fmt.Printf("[*] accepted=%d rejected=%d saved=%d failed=%d\n",
		len(figures), len(rejections), m.Saved, m.Failed)
	fmt.Printf("[*] report: %s\n", filepath.Join(outDir, extract.ReportName))

	if !ok {
		return fmt.Errorf("planted components not all detected")
	}
	if m.Failed > 0 {
		return fmt.Errorf("%d figures failed to persist", m.Failed)
	}
	return nil
}
