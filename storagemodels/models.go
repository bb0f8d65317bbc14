/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"
	"math"
	"time"

	"github.com/suparena/recordstore/datastore"
)

// RangeParams selects records from a type's ordered index.
type RangeParams struct {
	// Min and Max bound the score, inclusive.
	Min float64
	Max float64
	// Offset skips that many matching records.
	Offset int64
	// Limit caps the number of records; 0 means no limit.
	Limit int64
	// Descending returns the highest scores first.
	Descending bool
}

// AllRecords selects every record in ascending score order.
func AllRecords() RangeParams {
	return RangeParams{Min: math.Inf(-1), Max: math.Inf(1)}
}

// Validate checks the parameters
func (p RangeParams) Validate() error {
	if math.IsNaN(p.Min) || math.IsNaN(p.Max) {
		return fmt.Errorf("range: NaN bound")
	}
	if p.Min > p.Max {
		return fmt.Errorf("range: min %v above max %v", p.Min, p.Max)
	}
	if p.Offset < 0 || p.Limit < 0 {
		return fmt.Errorf("range: negative offset or limit")
	}
	return nil
}

// ScoreRange converts the parameters for a datastore call.
func (p RangeParams) ScoreRange() datastore.ScoreRange {
	return datastore.ScoreRange{
		Min:     p.Min,
		Max:     p.Max,
		Offset:  p.Offset,
		Count:   p.Limit,
		Reverse: p.Descending,
	}
}

// TimeScore is the index score of a point in time: seconds since the epoch
// with sub-second precision. Records are scored with their creation time by default.
func TimeScore(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
