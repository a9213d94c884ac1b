package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sensorhub/sensorhub/internal/utils"
	"gorm.io/gorm"
)

// ReadingFilter narrows reading listings. Zero values mean "no filter".
type ReadingFilter struct {
	BoxID  string
	Start  time.Time
	End    time.Time
	Limit  int
	Offset int
}

func (f ReadingFilter) apply(tx *gorm.DB) *gorm.DB {
	if f.BoxID != "" {
		tx = tx.Where("box_id = ?", f.BoxID)
	}
	if !f.Start.IsZero() {
		tx = tx.Where("recorded_at >= ?", f.Start.UTC())
	}
	if !f.End.IsZero() {
		tx = tx.Where("recorded_at <= ?", f.End.UTC())
	}
	if f.Limit > 0 {
		tx = tx.Limit(f.Limit)
	}
	if f.Offset > 0 {
		tx = tx.Offset(f.Offset)
	}
	return tx
}

// InsertAirReading stores one air reading
func (s *Store) InsertAirReading(ctx context.Context, r *AirReading) error {
	r.RecordedAt, r.LocalBuckets = s.stamp(r.RecordedAt)
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("insert air reading: %w", err)
	}
	return nil
}

// InsertAirReadings stores readings in batches of utils.DefaultBatchSize
func (s *Store) InsertAirReadings(ctx context.Context, readings []AirReading) error {
	if len(readings) == 0 {
		return nil
	}
	for i := range readings {
		readings[i].RecordedAt, readings[i].LocalBuckets = s.stamp(readings[i].RecordedAt)
	}
	if err := s.db.WithContext(ctx).CreateInBatches(readings, utils.DefaultBatchSize).Error; err != nil {
		return fmt.Errorf("insert %d air readings: %w", len(readings), err)
	}
	return nil
}

// ListAirReadings returns readings newest first
func (s *Store) ListAirReadings(ctx context.Context, f ReadingFilter) ([]AirReading, error) {
	var readings []AirReading
	tx := f.apply(s.db.WithContext(ctx).Model(&AirReading{})).Order("recorded_at DESC, id DESC")
	if err := tx.Find(&readings).Error; err != nil {
		return nil, fmt.Errorf("list air readings: %w", err)
	}
	return readings, nil
}

// LatestAirReading returns the newest reading of a box
func (s *Store) LatestAirReading(ctx context.Context, boxID string) (*AirReading, error) {
	var r AirReading
	err := s.db.WithContext(ctx).
		Where("box_id = ?", boxID).
		Order("recorded_at DESC, id DESC").
		First(&r).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

// LatestAirReadingPerBox returns the newest reading of every box, ordered by box id
func (s *Store) LatestAirReadingPerBox(ctx context.Context) ([]AirReading, error) {
	latest := s.db.Model(&AirReading{}).
		Select("box_id, MAX(recorded_at) AS max_at").
		Group("box_id")

	var rows []AirReading
	err := s.db.WithContext(ctx).
		Table("air_readings AS a").
		Select("a.*").
		Joins("JOIN (?) AS m ON a.box_id = m.box_id AND a.recorded_at = m.max_at", latest).
		Order("a.box_id, a.id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("latest reading per box: %w", err)
	}

	// Two readings in the same second share max_at; keep the newest insert
	out := make([]AirReading, 0, len(rows))
	for _, r := range rows {
		if n := len(out); n > 0 && out[n-1].BoxID == r.BoxID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// ListSources returns the distinct box ids, ascending
func (s *Store) ListSources(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&AirReading{}).
		Distinct().
		Order("box_id").
		Pluck("box_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return ids, nil
}

// InsertGardenReading stores one garden reading
func (s *Store) InsertGardenReading(ctx context.Context, r *GardenReading) error {
	r.RecordedAt, r.LocalBuckets = s.stamp(r.RecordedAt)
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("insert garden reading: %w", err)
	}
	return nil
}

// LatestGardenReading returns the newest garden reading
func (s *Store) LatestGardenReading(ctx context.Context) (*GardenReading, error) {
	var r GardenReading
	if err := s.db.WithContext(ctx).Order("recorded_at DESC, id DESC").First(&r).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}
