package aggregation

import (
	"github.com/sensorhub/sensorhub/internal/utils"
	"github.com/shopspring/decimal"
)

// Point is one labeled value of a series
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Series is a dense, axis-ordered list of points
type Series []Point

// Round2 rounds half away from zero to two decimal places on the decimal
// representation of v, so 1.005 becomes 1.01 rather than 1.00.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Fill expands sparse bucket rows into one point per axis slot, in axis order.
// Slots without a row are 0. Non-numeric values are 0.
func Fill(axis Axis, rows []BucketRow) (Series, error) {
	series := make(Series, axis.Len())
	for i, slot := range axis.Slots {
		series[i] = Point{Label: slot.Label}
	}

	for _, row := range rows {
		i, err := axis.IndexOf(row.Key)
		if err != nil {
			return nil, err
		}
		if v, ok := utils.ToFloat64(row.Value); ok {
			series[i].Value = Round2(v)
		}
	}

	return series, nil
}

// Mean averages the numeric bucket values, rounded to two places. Buckets
// that produced no row do not contribute; no numeric rows gives 0.
func Mean(rows []BucketRow) float64 {
	sum := decimal.Zero
	n := 0
	for _, row := range rows {
		v, ok := utils.ToFloat64(row.Value)
		if !ok {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(v))
		n++
	}
	if n == 0 {
		return 0
	}
	return sum.Div(decimal.NewFromInt(int64(n))).Round(2).InexactFloat64()
}

// Flat returns a series holding v at every axis slot
func Flat(axis Axis, v float64) Series {
	series := make(Series, axis.Len())
	for i, slot := range axis.Slots {
		series[i] = Point{Label: slot.Label, Value: v}
	}
	return series
}
