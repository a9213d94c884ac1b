package services

import (
	"context"
	"math"
	"sort"

	"github.com/sensorhub/sensorhub/internal/aggregation"
	"github.com/sensorhub/sensorhub/internal/anomaly"
	"github.com/sensorhub/sensorhub/internal/utils"
)

// AnomalyRequest asks which buckets of one sensor's current window look unusual
type AnomalyRequest struct {
	SeriesRequest
	Algorithm string  // detector name; empty uses anomaly.Default
	Threshold float64 // 0 uses the detector default
}

// BucketAnomaly is a flagged bucket
type BucketAnomaly struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	anomaly.Finding
}

// AnomalyReport lists the flagged buckets of a sensor series
type AnomalyReport struct {
	Sensor    string          `json:"sensor"`
	SourceID  string          `json:"source_id,omitempty"`
	Period    string          `json:"period"`
	Algorithm string          `json:"algorithm"`
	Threshold float64         `json:"threshold"`
	Buckets   int             `json:"buckets"` // buckets with data that were examined
	Anomalies []BucketAnomaly `json:"anomalies"`
}

// Anomalies runs a detector over the buckets of the current window that hold
// readings. Empty buckets are skipped rather than read as zero.
func (s *SeriesService) Anomalies(ctx context.Context, req AnomalyRequest) (*AnomalyReport, error) {
	if len(req.Sensors) != 1 {
		return nil, NewValidationError("exactly one sensor is required")
	}
	if math.IsNaN(req.Threshold) || math.IsInf(req.Threshold, 0) {
		return nil, NewValidationError("threshold must be a number")
	}
	if req.Threshold < 0 {
		return nil, NewValidationError("threshold must be positive")
	}

	detector, err := anomaly.Get(req.Algorithm)
	if err != nil {
		return nil, NewValidationError(err.Error())
	}

	r, err := s.resolve(req.SeriesRequest)
	if err != nil {
		return nil, err
	}

	t := r.targets[0]
	rows, err := s.fetch(ctx, r, t, req.SourceID, r.plan.Current)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		index int
		label string
		value float64
	}
	buckets := make([]bucket, 0, len(rows))
	for _, row := range rows {
		i, err := r.plan.Axis.IndexOf(row.Key)
		if err != nil {
			return nil, s.fillError(r, t, err)
		}
		v, ok := utils.ToFloat64(row.Value)
		if !ok {
			continue
		}
		buckets = append(buckets, bucket{index: i, label: r.plan.Axis.Slots[i].Label, value: aggregation.Round2(v)})
	}
	sort.Slice(buckets, func(a, b int) bool { return buckets[a].index < buckets[b].index })

	values := make([]float64, len(buckets))
	for i, b := range buckets {
		values[i] = b.value
	}

	cfg := anomaly.DefaultConfig()
	cfg.Threshold = req.Threshold
	if cfg.Threshold == 0 {
		cfg.Threshold = detector.DefaultThreshold()
	}

	report := &AnomalyReport{
		Sensor:    t.sensor,
		SourceID:  req.SourceID,
		Period:    string(r.plan.Period),
		Algorithm: detector.Name(),
		Threshold: cfg.Threshold,
		Buckets:   len(buckets),
		Anomalies: []BucketAnomaly{},
	}

	for _, f := range detector.Detect(values, cfg) {
		f.Score = aggregation.Round2(f.Score)
		if f.Expected != nil {
			f.Expected = &anomaly.Range{
				Min: aggregation.Round2(f.Expected.Min),
				Max: aggregation.Round2(f.Expected.Max),
			}
		}
		b := buckets[f.Index]
		report.Anomalies = append(report.Anomalies, BucketAnomaly{Label: b.label, Value: b.value, Finding: f})
	}

	if len(report.Anomalies) > 0 {
		s.logger.Info("Anomalies detected",
			"domain", r.domain.Name,
			"sensor", t.sensor,
			"source_id", req.SourceID,
			"algorithm", report.Algorithm,
			"count", len(report.Anomalies))
	}

	return report, nil
}

