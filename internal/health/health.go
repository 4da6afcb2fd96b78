// Package health keeps the corpus-wide extraction accounting. Every
// attempted figure lands in exactly one of saved or failed, so the identity
// attempted == saved + failed holds after each update; a run that cannot
// show this identity has silently dropped work.
package health

// UnhealthyFailureRate is the aggregate failure share above which a document
// run is flagged for the caller to act on.
const UnhealthyFailureRate = 0.20

// Metrics is derived, append-only accounting over persistence attempts.
// Skipped counts dry-run attempts and stays outside the identity.
type Metrics struct {
	Attempted int `yaml:"attempted" json:"attempted"`
	Saved     int `yaml:"saved" json:"saved"`
	Failed    int `yaml:"failed" json:"failed"`
	Skipped   int `yaml:"skipped,omitempty" json:"skipped,omitempty"`

	ColorSpaces    map[string]int `yaml:"colorspaces,omitempty" json:"colorspaces,omitempty"`
	ConversionOps  map[string]int `yaml:"conversion_ops,omitempty" json:"conversion_ops,omitempty"`
	FailureReasons map[string]int `yaml:"failure_reasons,omitempty" json:"failure_reasons,omitempty"`
}

func New() *Metrics {
	m := &Metrics{}
	m.touch()
	return m
}

func (m *Metrics) touch() {
	if m.ColorSpaces == nil {
		m.ColorSpaces = make(map[string]int)
	}
	if m.ConversionOps == nil {
		m.ConversionOps = make(map[string]int)
	}
	if m.FailureReasons == nil {
		m.FailureReasons = make(map[string]int)
	}
}

// RecordSaved counts one persisted figure and the conversion operation that
// produced it.
func (m *Metrics) RecordSaved(colorSpace, op string) {
	m.touch()
	m.Attempted++
	m.Saved++
	m.ColorSpaces[colorSpace]++
	if op != "" {
		m.ConversionOps[op]++
	}
}

// RecordFailed counts one failed attempt under its reason code.
func (m *Metrics) RecordFailed(colorSpace, reason string) {
	m.touch()
	m.Attempted++
	m.Failed++
	m.ColorSpaces[colorSpace]++
	m.FailureReasons[reason]++
}

// RecordSkipped counts an attempt a dry run chose not to make.
func (m *Metrics) RecordSkipped(colorSpace string) {
	m.touch()
	m.Skipped++
	m.ColorSpaces[colorSpace]++
}

func (m *Metrics) FailureRate() float64 {
	if m.Attempted == 0 {
		return 0
	}
	return float64(m.Failed) / float64(m.Attempted)
}

func (m *Metrics) Unhealthy() bool {
	return m.FailureRate() > UnhealthyFailureRate
}

// Consistent reports whether the zero-silent-drop identity holds.
func (m *Metrics) Consistent() bool {
	return m.Attempted == m.Saved+m.Failed
}

// Merge folds other into m, for aggregating a multi-document batch.
func (m *Metrics) Merge(other *Metrics) {
	if other == nil {
		return
	}
	m.touch()
	m.Attempted += other.Attempted
	m.Saved += other.Saved
	m.Failed += other.Failed
	m.Skipped += other.Skipped
	for k, v := range other.ColorSpaces {
		m.ColorSpaces[k] += v
	}
	for k, v := range other.ConversionOps {
		m.ConversionOps[k] += v
	}
	for k, v := range other.FailureReasons {
		m.FailureReasons[k] += v
	}
}
