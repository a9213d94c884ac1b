package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Result represents benchmark results
type Result struct {
	Operation  string
	TotalOps   int64
	SuccessOps int64
	ErrorOps   int64
	Duration   time.Duration
	Throughput float64 // ops/sec
	AvgLatency float64 // ms
	MinLatency float64 // ms
	MaxLatency float64 // ms
	P50Latency float64 // ms
	P95Latency float64 // ms
	P99Latency float64 // ms
	ErrorMsg   string
}

type stdout struct{}

func (stdout) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func calculateResult(operation string, latencies []float64, success, errors int64, duration time.Duration, errorMsg string) Result {
	result := Result{
		Operation:  operation,
		TotalOps:   success + errors,
		SuccessOps: success,
		ErrorOps:   errors,
		Duration:   duration,
		ErrorMsg:   errorMsg,
	}
	if duration > 0 {
		result.Throughput = float64(success) / duration.Seconds()
	}
	if len(latencies) == 0 {
		return result
	}

	sorted := append([]float64(nil), latencies...)
	sort.Float64s(sorted)

	var sum float64
	for _, lat := range sorted {
		sum += lat
	}

	result.MinLatency = sorted[0]
	result.MaxLatency = sorted[len(sorted)-1]
	result.AvgLatency = sum / float64(len(sorted))
	result.P50Latency = percentile(sorted, 50)
	result.P95Latency = percentile(sorted, 95)
	result.P99Latency = percentile(sorted, 99)
	return result
}

// percentile uses the nearest-rank method on an ascending slice
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(float64(len(sorted))*p/100.0)) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

func ratio(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func printConfig(w io.Writer, config BenchmarkConfig) {
	_, _ = fmt.Fprintf(w, "Configuration:\n")
	_, _ = fmt.Fprintf(w, "  URL: %s\n", config.BaseURL)
	_, _ = fmt.Fprintf(w, "  Boxes: %d\n", config.NumBoxes)
	_, _ = fmt.Fprintf(w, "  Duration: %s\n", config.Duration)
	_, _ = fmt.Fprintf(w, "  Write Workers: %d\n", config.WriteWorkers)
	_, _ = fmt.Fprintf(w, "  Query Workers: %d\n", config.QueryWorkers)
	_, _ = fmt.Fprintf(w, "  Query Interval: %s\n", config.QueryInterval)
	_, _ = fmt.Fprintf(w, "  Data Time Range: %s\n", config.DataTimeRange)
}

func writeResultTo(w io.Writer, r Result) {
	_, _ = fmt.Fprintf(w, "=== %s Operations ===\n", r.Operation)
	_, _ = fmt.Fprintf(w, "Total Operations: %d\n", r.TotalOps)
	_, _ = fmt.Fprintf(w, "Success:          %d (%.2f%%)\n", r.SuccessOps, ratio(r.SuccessOps, r.TotalOps))
	_, _ = fmt.Fprintf(w, "Errors:           %d (%.2f%%)\n", r.ErrorOps, ratio(r.ErrorOps, r.TotalOps))
	_, _ = fmt.Fprintf(w, "Duration:         %s\n", r.Duration)
	_, _ = fmt.Fprintf(w, "Throughput:       %.2f ops/sec\n", r.Throughput)
	if r.ErrorOps > 0 && r.ErrorMsg != "" {
		_, _ = fmt.Fprintf(w, "First Error:      %s\n", r.ErrorMsg)
	}
	_, _ = fmt.Fprintf(w, "\nLatency (ms):\n")
	_, _ = fmt.Fprintf(w, "  Min:  %.2f\n", r.MinLatency)
	_, _ = fmt.Fprintf(w, "  Avg:  %.2f\n", r.AvgLatency)
	_, _ = fmt.Fprintf(w, "  P50:  %.2f\n", r.P50Latency)
	_, _ = fmt.Fprintf(w, "  P95:  %.2f\n", r.P95Latency)
	_, _ = fmt.Fprintf(w, "  P99:  %.2f\n", r.P99Latency)
	_, _ = fmt.Fprintf(w, "  Max:  %.2f\n", r.MaxLatency)
}

func saveResults(config BenchmarkConfig, writeResult, queryResult Result) {
	if err := os.MkdirAll(config.ResultsDir, 0o755); err != nil {
		fmt.Printf("Failed to create results directory: %v\n", err)
		return
	}

	filename := filepath.Join(config.ResultsDir,
		fmt.Sprintf("api_benchmark_%s.txt", time.Now().Format("20060102_150405")))

	f, err := os.Create(filename)
	if err != nil {
		fmt.Printf("Failed to create result file: %v\n", err)
		return
	}
	defer func() { _ = f.Close() }()

	_, _ = fmt.Fprintf(f, "=== SensorHub API Benchmark Results ===\n")
	_, _ = fmt.Fprintf(f, "Date: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
	printConfig(f, config)
	_, _ = fmt.Fprintf(f, "\n")
	writeResultTo(f, writeResult)
	_, _ = fmt.Fprintf(f, "\n")
	writeResultTo(f, queryResult)

	fmt.Printf("\nResults saved to: %s\n", filename)
}
