package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sensorhub/sensorhub/internal/logging"
	"github.com/sensorhub/sensorhub/internal/models"
	"github.com/sensorhub/sensorhub/internal/services"
	"github.com/sensorhub/sensorhub/internal/storage"
	"github.com/sensorhub/sensorhub/internal/utils"
)

// Importer loads air quality readings exported as CSV files
type Importer struct {
	logger      *logging.Logger
	svc         *services.IngestService
	workerCount int
	batchSize   int
}

// FileJob is one CSV file to import
type FileJob struct {
	FilePath string
	FileName string
}

// ProcessResult is the outcome of importing one file
type ProcessResult struct {
	FilePath    string
	RecordCount int
	ErrorCount  int
	Duration    time.Duration
	Error       error
}

// Summary totals the results of a directory import
type Summary struct {
	Files    int
	Failed   int
	Records  int
	Rejected int
	Results  []ProcessResult
}

type setter func(r *models.AirReadingRequest, v *float64)

var sensorColumns = map[string]setter{
	"temperature":   func(r *models.AirReadingRequest, v *float64) { r.Temperature = v },
	"humidity":      func(r *models.AirReadingRequest, v *float64) { r.Humidity = v },
	"fire":          func(r *models.AirReadingRequest, v *float64) { r.Fire = v },
	"mq135_ammonia": func(r *models.AirReadingRequest, v *float64) { r.MQ135Ammonia = v },
	"mq135_benzene": func(r *models.AirReadingRequest, v *float64) { r.MQ135Benzene = v },
	"mq135_smoke":   func(r *models.AirReadingRequest, v *float64) { r.MQ135Smoke = v },
	"mq2_lpg":       func(r *models.AirReadingRequest, v *float64) { r.MQ2LPG = v },
	"mq2_h2":        func(r *models.AirReadingRequest, v *float64) { r.MQ2H2 = v },
	"mq2_co2":       func(r *models.AirReadingRequest, v *float64) { r.MQ2CO2 = v },
	"mq2_alcohol":   func(r *models.AirReadingRequest, v *float64) { r.MQ2Alcohol = v },
	"mq2_propane":   func(r *models.AirReadingRequest, v *float64) { r.MQ2Propane = v },
	"mq9_co":        func(r *models.AirReadingRequest, v *float64) { r.MQ9CO = v },
	"mq9_methane":   func(r *models.AirReadingRequest, v *float64) { r.MQ9Methane = v },
}

// New creates an importer writing through svc
func New(logger *logging.Logger, svc *services.IngestService) *Importer {
	workerCount := runtime.NumCPU()
	if workerCount > 8 {
		workerCount = 8
	}

	return &Importer{
		logger:      logger,
		svc:         svc,
		workerCount: workerCount,
		batchSize:   utils.DefaultBatchSize,
	}
}

// SetWorkerCount sets the number of files imported in parallel
func (im *Importer) SetWorkerCount(count int) {
	if count > 0 {
		im.workerCount = count
	}
}

// SetBatchSize sets the number of rows written per insert
func (im *Importer) SetBatchSize(size int) {
	if size > 0 {
		im.batchSize = size
	}
}

// ImportDirectory imports every *.csv file directly under dir
func (im *Importer) ImportDirectory(ctx context.Context, dir string) (*Summary, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := findCSVFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to find CSV files: %w", err)
	}

	summary := &Summary{}
	if len(files) == 0 {
		im.logger.Info("No CSV files found", "dir", dir)
		return summary, nil
	}

	im.logger.Info("Importing CSV files", "dir", dir, "files", len(files), "workers", im.workerCount)

	summary.Results = im.processFilesParallel(ctx, files)
	for _, r := range summary.Results {
		summary.Files++
		summary.Records += r.RecordCount
		summary.Rejected += r.ErrorCount
		if r.Error != nil {
			summary.Failed++
		}
	}

	im.logger.Info("Import complete",
		"files", summary.Files,
		"failed", summary.Failed,
		"records", summary.Records,
		"rejected", summary.Rejected)

	return summary, nil
}

// findCSVFiles lists CSV files in dir, non-recursively
func findCSVFiles(dir string) ([]FileJob, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []FileJob
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) == ".csv" {
			files = append(files, FileJob{
				FilePath: filepath.Join(dir, entry.Name()),
				FileName: entry.Name(),
			})
		}
	}
	return files, nil
}

func (im *Importer) processFilesParallel(ctx context.Context, files []FileJob) []ProcessResult {
	jobs := make(chan FileJob, len(files))
	results := make(chan ProcessResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < im.workerCount; i++ {
		wg.Add(1)
		go im.worker(ctx, jobs, results, &wg)
	}

	for _, f := range files {
		jobs <- f
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	all := make([]ProcessResult, 0, len(files))
	for r := range results {
		all = append(all, r)
	}
	return all
}

func (im *Importer) worker(ctx context.Context, jobs <-chan FileJob, results chan<- ProcessResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for job := range jobs {
		results <- im.processFile(ctx, job)
	}
}

func (im *Importer) processFile(ctx context.Context, job FileJob) ProcessResult {
	start := time.Now()
	result := ProcessResult{FilePath: job.FilePath}

	f, err := os.Open(job.FilePath)
	if err != nil {
		result.Error = fmt.Errorf("failed to open file: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	defer f.Close()

	result.RecordCount, result.ErrorCount, result.Error = im.Import(ctx, f)
	result.Duration = time.Since(start)

	if result.Error != nil {
		im.logger.Error("CSV import failed", "file", job.FileName, "error", result.Error)
	} else {
		im.logger.Info("CSV file imported",
			"file", job.FileName,
			"records", result.RecordCount,
			"rejected", result.ErrorCount,
			"duration", result.Duration)
	}
	return result
}

// Import reads CSV rows from r and stores them. Rows that fail validation
// are counted as rejected and skipped; a storage failure aborts the import.
func (im *Importer) Import(ctx context.Context, r io.Reader) (stored, rejected int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, 0, fmt.Errorf("empty CSV file")
		}
		return 0, 0, fmt.Errorf("failed to read header: %w", err)
	}

	cols, err := parseHeader(header)
	if err != nil {
		return 0, 0, err
	}

	batch := make([]storage.AirReading, 0, im.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := im.svc.RecordAirReadings(ctx, batch); err != nil {
			return err
		}
		stored += len(batch)
		batch = batch[:0]
		return nil
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			im.logger.Warn("Skipping malformed CSV row", "line", line, "error", err)
			rejected++
			continue
		}

		if err := ctx.Err(); err != nil {
			return stored, rejected, err
		}

		req, err := cols.request(record)
		if err != nil {
			im.logger.Warn("Skipping CSV row", "line", line, "error", err)
			rejected++
			continue
		}

		reading, err := im.svc.NewAirReading(req)
		if err != nil {
			im.logger.Warn("Skipping CSV row", "line", line, "error", err)
			rejected++
			continue
		}

		batch = append(batch, *reading)
		if len(batch) >= im.batchSize {
			if err := flush(); err != nil {
				return stored, rejected, err
			}
		}
	}

	if err := flush(); err != nil {
		return stored, rejected, err
	}
	return stored, rejected, nil
}

// columns maps CSV column positions to request fields
type columns struct {
	boxID      int
	recordedAt int
	sensors    map[int]setter
}

func parseHeader(header []string) (*columns, error) {
	cols := &columns{boxID: -1, recordedAt: -1, sensors: make(map[int]setter)}

	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		switch name {
		case "box_id":
			cols.boxID = i
		case "recorded_at", "timestamp":
			cols.recordedAt = i
		default:
			if set, ok := sensorColumns[name]; ok {
				cols.sensors[i] = set
			}
		}
	}

	if cols.boxID < 0 {
		return nil, fmt.Errorf("missing box_id column")
	}
	if cols.recordedAt < 0 {
		return nil, fmt.Errorf("missing recorded_at column")
	}
	return cols, nil
}

func (c *columns) request(record []string) (*models.AirReadingRequest, error) {
	req := &models.AirReadingRequest{
		BoxID:      field(record, c.boxID),
		RecordedAt: field(record, c.recordedAt),
	}

	for i, set := range c.sensors {
		raw := field(record, i)
		if raw == "" || strings.EqualFold(raw, "null") {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("column %d: invalid number %q", i+1, raw)
		}
		set(req, &v)
	}
	return req, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
