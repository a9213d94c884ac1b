package aggregation

import (
	"context"
)

// BucketRow is one grouped average returned by storage. Value is whatever the
// driver produced (float64, DECIMAL text, ...); Fill and Mean normalize it.
type BucketRow struct {
	Key   string
	Value interface{}
}

// BucketQuery describes a single grouped-average read. Table, Column and
// SourceColumn come from a domain allow-list and are never raw client input.
type BucketQuery struct {
	Table        string
	Column       string
	SourceColumn string // empty for single-source domains
	SourceID     string // empty aggregates across every source
	Window       Window
	Key          BucketKey
}

// Fetcher runs grouped-average reads. Buckets with no non-null readings are
// omitted from the result.
type Fetcher interface {
	AverageByBucket(ctx context.Context, q BucketQuery) ([]BucketRow, error)
}
