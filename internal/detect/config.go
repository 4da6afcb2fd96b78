package detect

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// PassConfig is one edge-detection sensitivity pass. The coarse pass finds
// large shapes, the fine pass small tokens; contours from both are pooled.
type PassConfig struct {
	EdgeThreshold    float64 `yaml:"edge_threshold"`
	DilateKernel     int     `yaml:"dilate_kernel"`
	DilateIterations int     `yaml:"dilate_iterations"`
	Confidence       float64 `yaml:"confidence"`
}

// TextureGate holds the thresholds of the text-panel texture heuristic.
// A region is rejected only when all three measurements exceed their
// thresholds; any single one alone also describes dense genuine art.
type TextureGate struct {
	EdgeDensityMin      float64 `yaml:"edge_density_min"`
	ComponentDensityMin float64 `yaml:"component_density_min"` // components per 1000 px²
	EnergyRatioMin      float64 `yaml:"energy_ratio_min"`      // horizontal / vertical edge energy
}

// FlatGate holds the thresholds of the background-flatness heuristic.
// A region is rejected only when all three hold, so low-contrast but
// structured art survives.
type FlatGate struct {
	EdgeDensityMax float64 `yaml:"edge_density_max"`
	LumaStdDevMax  float64 `yaml:"luma_stddev_max"`
	UniformityMin  float64 `yaml:"uniformity_min"`
}

// Margins are per-side border exclusion zones as fractions of page size.
// Regions reaching into a margin are headers, footers or gutter marks.
type Margins struct {
	Left   float64 `yaml:"left"`
	Right  float64 `yaml:"right"`
	Top    float64 `yaml:"top"`
	Bottom float64 `yaml:"bottom"`
}

// Config holds every detection threshold in one place so tests can override
// single values and tuned profiles can be saved and reloaded.
type Config struct {
	BaseDPI int `yaml:"base_dpi"`

	Coarse PassConfig `yaml:"coarse"`
	Fine   PassConfig `yaml:"fine"`

	// Candidate gates.
	MinAreaPx   int     `yaml:"min_area_px"`
	MinAreaPage float64 `yaml:"min_area_page"` // fraction of page area
	MaxAreaPage float64 `yaml:"max_area_page"`
	Margins     Margins `yaml:"margins"`
	AspectMax   float64 `yaml:"aspect_max"`
	Texture     TextureGate `yaml:"texture"`

	MergeIoU float64 `yaml:"merge_iou"`

	// Text handling.
	TextMaskMarginPt float64 `yaml:"text_mask_margin_pt"`
	TextOverlapMax   float64 `yaml:"text_overlap_max"`

	// Coverage roles and fragment limits.
	ArtCoverage          float64 `yaml:"art_coverage"`
	IllustrationCoverage float64 `yaml:"illustration_coverage"`
	MicroCoverage        float64 `yaml:"micro_coverage"`
	RemnantCoverage      float64 `yaml:"remnant_coverage"`

	// Size tiers.
	BoardCoverage   float64 `yaml:"board_coverage"`
	BoardMinIn      float64 `yaml:"board_min_in"`
	IconMaxIn       float64 `yaml:"icon_max_in"`
	IconMaxCoverage float64 `yaml:"icon_max_coverage"`
	MinSideIn       float64 `yaml:"min_side_in"`
	IconMinSideIn   float64 `yaml:"icon_min_side_in"`

	Flat FlatGate `yaml:"flat"`

	// Fidelity upgrades.
	QualityFloorPx int     `yaml:"quality_floor_px"`
	DPILadder      []int   `yaml:"dpi_ladder"`
	UpscaleGainMin float64 `yaml:"upscale_gain_min"`

	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns the tuned defaults for 150 DPI rulebook pages.
func DefaultConfig() Config {
	return Config{
		BaseDPI: 150,

		Coarse: PassConfig{EdgeThreshold: 60, DilateKernel: 5, DilateIterations: 2, Confidence: 0.75},
		Fine:   PassConfig{EdgeThreshold: 25, DilateKernel: 3, DilateIterations: 1, Confidence: 0.6},

		MinAreaPx:   500,
		MinAreaPage: 0.0004,
		MaxAreaPage: 0.95,
		Margins:     Margins{Left: 0.04, Right: 0.04, Top: 0.05, Bottom: 0.05},
		AspectMax:   8.0,
		Texture: TextureGate{
			EdgeDensityMin:      0.15,
			ComponentDensityMin: 0.35,
			EnergyRatioMin:      1.3,
		},

		MergeIoU: 0.25,

		TextMaskMarginPt: 4.0,
		TextOverlapMax:   0.08,

		ArtCoverage:          0.80,
		IllustrationCoverage: 0.60,
		MicroCoverage:        0.03,
		RemnantCoverage:      0.85,

		BoardCoverage:   0.50,
		BoardMinIn:      4.0,
		IconMaxIn:       1.0,
		IconMaxCoverage: 0.15,
		MinSideIn:       0.30,
		IconMinSideIn:   0.12,

		Flat: FlatGate{
			EdgeDensityMax: 0.045,
			LumaStdDevMax:  12.0,
			UniformityMin:  0.82,
		},

		QualityFloorPx: 140,
		DPILadder:      []int{300, 600},
		UpscaleGainMin: 1.15,
	}
}

// defaults fills zero fields so a partially specified config (for example a
// loaded profile that only overrides two thresholds) still behaves.
func (c *Config) defaults() {
	d := DefaultConfig()
	if c.BaseDPI <= 0 {
		c.BaseDPI = d.BaseDPI
	}
	if c.Coarse == (PassConfig{}) {
		c.Coarse = d.Coarse
	}
	if c.Fine == (PassConfig{}) {
		c.Fine = d.Fine
	}
	if c.MinAreaPx <= 0 {
		c.MinAreaPx = d.MinAreaPx
	}
	if c.MinAreaPage <= 0 {
		c.MinAreaPage = d.MinAreaPage
	}
	if c.MaxAreaPage <= 0 {
		c.MaxAreaPage = d.MaxAreaPage
	}
	if c.Margins == (Margins{}) {
		c.Margins = d.Margins
	}
	if c.AspectMax <= 0 {
		c.AspectMax = d.AspectMax
	}
	if c.Texture == (TextureGate{}) {
		c.Texture = d.Texture
	}
	if c.MergeIoU <= 0 {
		c.MergeIoU = d.MergeIoU
	}
	if c.TextMaskMarginPt <= 0 {
		c.TextMaskMarginPt = d.TextMaskMarginPt
	}
	if c.TextOverlapMax <= 0 {
		c.TextOverlapMax = d.TextOverlapMax
	}
	if c.ArtCoverage <= 0 {
		c.ArtCoverage = d.ArtCoverage
	}
	if c.IllustrationCoverage <= 0 {
		c.IllustrationCoverage = d.IllustrationCoverage
	}
	if c.MicroCoverage <= 0 {
		c.MicroCoverage = d.MicroCoverage
	}
	if c.RemnantCoverage <= 0 {
		c.RemnantCoverage = d.RemnantCoverage
	}
	if c.BoardCoverage <= 0 {
		c.BoardCoverage = d.BoardCoverage
	}
	if c.BoardMinIn <= 0 {
		c.BoardMinIn = d.BoardMinIn
	}
	if c.IconMaxIn <= 0 {
		c.IconMaxIn = d.IconMaxIn
	}
	if c.IconMaxCoverage <= 0 {
		c.IconMaxCoverage = d.IconMaxCoverage
	}
	if c.MinSideIn <= 0 {
		c.MinSideIn = d.MinSideIn
	}
	if c.IconMinSideIn <= 0 {
		c.IconMinSideIn = d.IconMinSideIn
	}
	if c.Flat == (FlatGate{}) {
		c.Flat = d.Flat
	}
	if c.QualityFloorPx <= 0 {
		c.QualityFloorPx = d.QualityFloorPx
	}
	if len(c.DPILadder) == 0 {
		c.DPILadder = d.DPILadder
	}
	if c.UpscaleGainMin <= 0 {
		c.UpscaleGainMin = d.UpscaleGainMin
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// LoadConfig reads a threshold profile from a YAML file. Missing fields
// fall back to defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	cfg.defaults()
	return cfg, nil
}

// Save writes the profile to a YAML file.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
