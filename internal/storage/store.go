package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/sensorhub/sensorhub/internal/aggregation"
	"github.com/sensorhub/sensorhub/internal/utils"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a "latest" lookup finds no rows
var ErrNotFound = errors.New("not found")

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// bucketColumns maps engine bucket keys to the denormalized local columns
var bucketColumns = map[aggregation.BucketKey]string{
	aggregation.KeyHourOfDay:    "local_hour",
	aggregation.KeyDayOfWeek:    "local_weekday",
	aggregation.KeyCalendarDate: "local_date",
}

// Store is the gorm-backed repository. It is safe for concurrent use; the
// only shared state is the connection pool.
type Store struct {
	db  *gorm.DB
	loc *time.Location
}

// NewStore creates a store computing local bucket columns in loc
func NewStore(db *gorm.DB, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{db: db, loc: loc}
}

// DB exposes the underlying handle for health checks and migrations
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Location returns the timezone local buckets are computed in
func (s *Store) Location() *time.Location {
	return s.loc
}

// stamp normalizes t to UTC at second precision and derives its local buckets
func (s *Store) stamp(t time.Time) (time.Time, LocalBuckets) {
	t = t.Truncate(time.Second).UTC()
	local := t.In(s.loc)
	return t, LocalBuckets{
		LocalDate:    local.Format(aggregation.DateLayout),
		LocalHour:    local.Hour(),
		LocalWeekday: aggregation.WeekdayKey(local.Weekday()),
	}
}

// AverageByBucket implements aggregation.Fetcher with one grouped query
func (s *Store) AverageByBucket(ctx context.Context, q aggregation.BucketQuery) ([]aggregation.BucketRow, error) {
	keyCol, ok := bucketColumns[q.Key]
	if !ok {
		return nil, fmt.Errorf("unsupported bucket key %q", q.Key)
	}
	for _, name := range []string{q.Table, q.Column} {
		if !identifier.MatchString(name) {
			return nil, fmt.Errorf("invalid identifier %q", name)
		}
	}

	tx := s.db.WithContext(ctx).
		Table(q.Table).
		Select(fmt.Sprintf("%s AS bucket, AVG(%s) AS value", keyCol, q.Column)).
		Where(fmt.Sprintf("%s IS NOT NULL", q.Column)).
		Where("recorded_at BETWEEN ? AND ?", q.Window.Start.UTC(), q.Window.End.UTC())

	if q.SourceID != "" && q.SourceColumn != "" {
		if !identifier.MatchString(q.SourceColumn) {
			return nil, fmt.Errorf("invalid identifier %q", q.SourceColumn)
		}
		tx = tx.Where(fmt.Sprintf("%s = ?", q.SourceColumn), q.SourceID)
	}

	rows, err := tx.Group(keyCol).Order(keyCol).Rows()
	if err != nil {
		return nil, fmt.Errorf("bucket query on %s.%s: %w", q.Table, q.Column, err)
	}
	defer rows.Close()

	var out []aggregation.BucketRow
	for rows.Next() {
		var key, value interface{}
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan bucket row: %w", err)
		}
		if value == nil {
			continue
		}
		out = append(out, aggregation.BucketRow{Key: bucketKey(key), Value: value})
	}

	return out, rows.Err()
}

// bucketKey renders a scanned group key the way the axes spell it
func bucketKey(v interface{}) string {
	switch k := v.(type) {
	case string:
		return k
	case []byte:
		return string(k)
	case int64:
		return strconv.FormatInt(k, 10)
	case time.Time:
		return k.Format(aggregation.DateLayout)
	default:
		if f, ok := utils.ToFloat64(k); ok {
			return strconv.FormatInt(int64(f), 10)
		}
		return fmt.Sprint(k)
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
