// Package anomaly flags unusual buckets in a sensor series.
package anomaly

import (
	"fmt"
	"math"
	"sort"
)

// Kind classifies a finding
type Kind string

const (
	KindSpike    Kind = "spike"    // above the expected range
	KindDrop     Kind = "drop"     // below the expected range
	KindFlatline Kind = "flatline" // no variation at all, usually a stuck sensor
)

// Range is the band a value was expected to fall in
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Finding is one anomalous value, identified by its index in the input
type Finding struct {
	Index    int     `json:"-"`
	Score    float64 `json:"score"` // how far outside the expected range; higher is worse
	Kind     Kind    `json:"kind"`
	Expected *Range  `json:"expected,omitempty"`
}

// Config tunes detection. A zero Threshold uses the detector's default.
type Config struct {
	Threshold float64
	Window    int // neighbourhood size, moving_average only
	MinPoints int // fewer values than this yields no findings
}

// DefaultConfig returns the settings used when a request names none
func DefaultConfig() Config {
	return Config{
		Window:    6,
		MinPoints: 6,
	}
}

// Detector finds anomalies in an ordered list of values
type Detector interface {
	Name() string
	DefaultThreshold() float64
	Detect(values []float64, cfg Config) []Finding
}

var detectors = map[string]Detector{
	"zscore":         zScore{},
	"iqr":            iqr{},
	"moving_average": movingAverage{},
}

// Default is the detector used when none is named
const Default = "zscore"

// Get returns a detector by name
func Get(name string) (Detector, error) {
	if name == "" {
		name = Default
	}
	if d, ok := detectors[name]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("unknown anomaly detector %q, valid detectors: %v", name, Names())
}

// Names returns the detector names, sorted
func Names() []string {
	names := make([]string, 0, len(detectors))
	for name := range detectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func threshold(d Detector, cfg Config) float64 {
	if cfg.Threshold > 0 {
		return cfg.Threshold
	}
	return d.DefaultThreshold()
}

// meanStdDev returns the mean and population standard deviation of values,
// skipping index skip (-1 skips nothing)
func meanStdDev(values []float64, skip int) (mean, std float64, n int) {
	var sum float64
	for i, v := range values {
		if i == skip {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, 0, 0
	}
	mean = sum / float64(n)

	var sq float64
	for i, v := range values {
		if i == skip {
			continue
		}
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(n)), n
}

func classify(v, center float64) Kind {
	if v > center {
		return KindSpike
	}
	return KindDrop
}

// flatline reports every value when none of them differ
func flatline(values []float64) []Finding {
	for _, v := range values[1:] {
		if v != values[0] {
			return nil
		}
	}
	out := make([]Finding, len(values))
	for i := range values {
		out[i] = Finding{Index: i, Score: 1, Kind: KindFlatline}
	}
	return out
}

// zScore flags values more than Threshold standard deviations from the mean
type zScore struct{}

func (zScore) Name() string              { return "zscore" }
func (zScore) DefaultThreshold() float64 { return 3 }

func (z zScore) Detect(values []float64, cfg Config) []Finding {
	if len(values) == 0 || len(values) < cfg.MinPoints {
		return nil
	}

	mean, std, _ := meanStdDev(values, -1)
	if std == 0 {
		return flatline(values)
	}

	k := threshold(z, cfg)
	expected := &Range{Min: mean - k*std, Max: mean + k*std}

	var out []Finding
	for i, v := range values {
		score := math.Abs(v-mean) / std
		if score > k {
			out = append(out, Finding{Index: i, Score: score, Kind: classify(v, mean), Expected: expected})
		}
	}
	return out
}

// iqr flags values outside [Q1 - k*IQR, Q3 + k*IQR]; robust to the outliers it looks for
type iqr struct{}

func (iqr) Name() string              { return "iqr" }
func (iqr) DefaultThreshold() float64 { return 1.5 }

func (d iqr) Detect(values []float64, cfg Config) []Finding {
	if len(values) == 0 || len(values) < cfg.MinPoints {
		return nil
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	q1, q3 := quantile(sorted, 0.25), quantile(sorted, 0.75)
	spread := q3 - q1
	if spread == 0 && sorted[0] == sorted[len(sorted)-1] {
		return flatline(values)
	}

	k := threshold(d, cfg)
	expected := &Range{Min: q1 - k*spread, Max: q3 + k*spread}

	var out []Finding
	for i, v := range values {
		var dist float64
		switch {
		case v < expected.Min:
			dist = expected.Min - v
		case v > expected.Max:
			dist = v - expected.Max
		default:
			continue
		}
		score := 1.0
		if spread > 0 {
			score = dist / spread
		}
		out = append(out, Finding{Index: i, Score: score, Kind: classify(v, (q1+q3)/2), Expected: expected})
	}
	return out
}

// quantile interpolates linearly between the closest ranks of sorted
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[lo+1]*w
}

// movingAverage compares each value with its neighbours, so a slow daily
// curve is not flagged while a sudden jump is
type movingAverage struct{}

func (movingAverage) Name() string              { return "moving_average" }
func (movingAverage) DefaultThreshold() float64 { return 3 }

func (d movingAverage) Detect(values []float64, cfg Config) []Finding {
	if len(values) == 0 || len(values) < cfg.MinPoints {
		return nil
	}

	window := cfg.Window
	if window > len(values)/2 {
		window = len(values) / 2
	}
	if window < 2 {
		window = 2
	}
	k := threshold(d, cfg)

	var out []Finding
	for i, v := range values {
		lo, hi := i-window/2, i+window/2
		if lo < 0 {
			lo = 0
		}
		if hi >= len(values) {
			hi = len(values) - 1
		}

		// the neighbourhood excludes the value under test
		mean, std, n := meanStdDev(values[lo:hi+1], i-lo)
		if n == 0 {
			continue
		}

		var score float64
		switch {
		case std > 0:
			score = math.Abs(v-mean) / std
		case v != mean:
			score = k + 1
		}
		if score > k {
			out = append(out, Finding{
				Index:    i,
				Score:    score,
				Kind:     classify(v, mean),
				Expected: &Range{Min: mean - k*std, Max: mean + k*std},
			})
		}
	}
	return out
}
