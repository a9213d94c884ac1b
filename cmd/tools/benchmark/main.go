package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sensorhub/sensorhub/internal/models"
)

// BenchmarkConfig holds benchmark configuration
type BenchmarkConfig struct {
	BaseURL       string
	NumBoxes      int
	Duration      time.Duration
	WriteWorkers  int
	QueryWorkers  int
	QueryInterval time.Duration
	DataTimeRange time.Duration // How far back in time to spread readings
	APIKey        string
	ResultsDir    string
	HTTPClient    *http.Client
}

// Metrics holds benchmark metrics
type Metrics struct {
	WriteLatencies  []float64
	QueryLatencies  []float64
	WriteErrors     int64
	QueryErrors     int64
	WriteSuccess    int64
	QuerySuccess    int64
	FirstWriteError string
	FirstQueryError string
	mu              sync.Mutex
}

func (m *Metrics) recordWrite(latency float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteLatencies = append(m.WriteLatencies, latency)
	if err != nil {
		m.WriteErrors++
		if m.FirstWriteError == "" {
			m.FirstWriteError = err.Error()
		}
		return
	}
	m.WriteSuccess++
}

func (m *Metrics) recordQuery(latency float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryLatencies = append(m.QueryLatencies, latency)
	if err != nil {
		m.QueryErrors++
		if m.FirstQueryError == "" {
			m.FirstQueryError = err.Error()
		}
		return
	}
	m.QuerySuccess++
}

func main() {
	config := BenchmarkConfig{}
	flag.StringVar(&config.BaseURL, "url", "http://127.0.0.1:3000", "Base URL of the API")
	flag.IntVar(&config.NumBoxes, "boxes", 20, "Number of simulated air quality boxes")
	flag.DurationVar(&config.Duration, "duration", 60*time.Second, "Benchmark duration")
	flag.IntVar(&config.WriteWorkers, "write-workers", 10, "Number of concurrent write workers")
	flag.IntVar(&config.QueryWorkers, "query-workers", 5, "Number of concurrent query workers")
	flag.DurationVar(&config.QueryInterval, "query-interval", 10*time.Millisecond, "Interval between queries per worker")
	flag.DurationVar(&config.DataTimeRange, "time-range", 7*24*time.Hour, "Time range to spread readings across")
	flag.StringVar(&config.APIKey, "api-key", "", "API key for write routes")
	flag.StringVar(&config.ResultsDir, "results-dir", "benchmark_results", "Directory for the results file")
	flag.Parse()

	config.HTTPClient = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	fmt.Printf("=== SensorHub Benchmark Tool ===\n")
	printConfig(stdout{}, config)
	fmt.Println()

	metrics := runBenchmark(config)

	writeResult := calculateResult("Write", metrics.WriteLatencies, metrics.WriteSuccess, metrics.WriteErrors, config.Duration, metrics.FirstWriteError)
	queryResult := calculateResult("Query", metrics.QueryLatencies, metrics.QuerySuccess, metrics.QueryErrors, config.Duration, metrics.FirstQueryError)

	fmt.Printf("\n=== Benchmark Results ===\n\n")
	writeResultTo(stdout{}, writeResult)
	fmt.Println()
	writeResultTo(stdout{}, queryResult)

	saveResults(config, writeResult, queryResult)
}

func runBenchmark(config BenchmarkConfig) *Metrics {
	metrics := &Metrics{
		WriteLatencies: make([]float64, 0, 10000),
		QueryLatencies: make([]float64, 0, 1000),
	}

	var wg sync.WaitGroup
	stopCh := make(chan struct{})
	startTime := time.Now()

	for i := 0; i < config.WriteWorkers; i++ {
		wg.Add(1)
		go writeWorker(i, config, metrics, stopCh, &wg)
	}

	for i := 0; i < config.QueryWorkers; i++ {
		wg.Add(1)
		go queryWorker(i, config, metrics, stopCh, &wg)
	}

	go progressReporter(metrics, config.Duration, startTime)

	time.Sleep(config.Duration)
	close(stopCh)
	wg.Wait()

	return metrics
}

func boxID(n int) string {
	return fmt.Sprintf("bench-box-%03d", n)
}

// airReading builds a reading with every sensor populated
func airReading(rng *rand.Rand, box string, at time.Time) models.AirReadingRequest {
	v := func(base float64) *float64 {
		x := base * (0.8 + rng.Float64()*0.4)
		return &x
	}
	fire := 0.0
	return models.AirReadingRequest{
		BoxID:        box,
		RecordedAt:   at.Format(time.RFC3339Nano),
		Temperature:  v(25),
		Humidity:     v(60),
		Fire:         &fire,
		MQ135Ammonia: v(12),
		MQ135Benzene: v(3),
		MQ135Smoke:   v(8),
		MQ2LPG:       v(4),
		MQ2H2:        v(6),
		MQ2CO2:       v(410),
		MQ2Alcohol:   v(2),
		MQ2Propane:   v(5),
		MQ9CO:        v(4),
		MQ9Methane:   v(7),
	}
}

func writeWorker(id int, config BenchmarkConfig, metrics *Metrics, stopCh chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))
	baseTime := time.Now().Add(-config.DataTimeRange)
	box := id % config.NumBoxes
	counter := 0
	endpoint := config.BaseURL + "/api/v1/air/readings"

	for {
		select {
		case <-stopCh:
			return
		default:
			at := baseTime.Add(time.Duration(counter) * time.Second)
			reading := airReading(rng, boxID(box), at)
			counter++
			box = (box + config.WriteWorkers) % config.NumBoxes

			start := time.Now()
			err := makeRequest(config, http.MethodPost, endpoint, reading)
			metrics.recordWrite(time.Since(start).Seconds()*1000, err)
		}
	}
}

// queryURLs is the read mix each query worker cycles through
func queryURLs(config BenchmarkConfig, box string) []string {
	q := url.Values{}
	q.Set("source_id", box)
	base := config.BaseURL + "/api/v1"
	return []string{
		base + "/air/series?period=today&sensor=temperature&" + q.Encode(),
		base + "/air/series?period=week&sensor=humidity",
		base + "/air/comparison?period=week&sensors=temperature,humidity,mq2_co2",
		base + "/air/readings/latest?box_id=" + url.QueryEscape(box),
		base + "/air/readings/page?page=1&limit=50&" + url.Values{"box_id": {box}}.Encode(),
		base + "/air/sources",
	}
}

func queryWorker(id int, config BenchmarkConfig, metrics *Metrics, stopCh chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(config.QueryInterval)
	defer ticker.Stop()

	n := id
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			urls := queryURLs(config, boxID(n%config.NumBoxes))
			target := urls[n%len(urls)]
			n++

			start := time.Now()
			err := makeRequest(config, http.MethodGet, target, nil)
			metrics.recordQuery(time.Since(start).Seconds()*1000, err)
		}
	}
}

func progressReporter(metrics *Metrics, duration time.Duration, startTime time.Time) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		<-ticker.C
		elapsed := time.Since(startTime)
		if elapsed >= duration {
			return
		}

		metrics.mu.Lock()
		writes, writeErrors := metrics.WriteSuccess, metrics.WriteErrors
		queries, queryErrors := metrics.QuerySuccess, metrics.QueryErrors
		metrics.mu.Unlock()

		remaining := duration - elapsed
		fmt.Printf("[%s remaining] Writes: %d (%.0f/s, %d errors) | Queries: %d (%.0f/s, %d errors)\n",
			remaining.Round(time.Second), writes, float64(writes)/elapsed.Seconds(), writeErrors,
			queries, float64(queries)/elapsed.Seconds(), queryErrors)
	}
}

var requestCount atomic.Int64

func makeRequest(config BenchmarkConfig, method, target string, data interface{}) error {
	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return err
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, target, body)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", fmt.Sprintf("bench-%d", requestCount.Add(1)))
	if config.APIKey != "" && method != http.MethodGet {
		req.Header.Set("X-API-Key", config.APIKey)
	}

	resp, err := config.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain so the connection is reused
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d %s %s", resp.StatusCode, method, req.URL.Path)
	}
	return nil
}
