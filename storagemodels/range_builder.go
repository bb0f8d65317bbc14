/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"
	"math"
	"time"
)

var timeNow = time.Now // Tests override this.

// RangeBuilder builds RangeParams over time scores
type RangeBuilder struct {
	params RangeParams
	err    error
}

// NewRange starts a builder selecting every record
func NewRange() *RangeBuilder {
	return &RangeBuilder{params: AllRecords()}
}

// Between selects records scored between two timestamps
func (b *RangeBuilder) Between(start, end time.Time) *RangeBuilder {
	if end.Before(start) {
		b.err = fmt.Errorf("range: end %s before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
		return b
	}
	b.params.Min, b.params.Max = TimeScore(start), TimeScore(end)
	return b
}

// After selects records scored at or after timestamp
func (b *RangeBuilder) After(timestamp time.Time) *RangeBuilder {
	b.params.Min = TimeScore(timestamp)
	return b
}

// Before selects records scored at or before timestamp
func (b *RangeBuilder) Before(timestamp time.Time) *RangeBuilder {
	b.params.Max = TimeScore(timestamp)
	return b
}

// InLastHours selects records created in the last N hours
func (b *RangeBuilder) InLastHours(hours int) *RangeBuilder {
	return b.After(timeNow().Add(-time.Duration(hours) * time.Hour))
}

// InLastDays selects records created in the last N days
func (b *RangeBuilder) InLastDays(days int) *RangeBuilder {
	return b.After(timeNow().AddDate(0, 0, -days))
}

// Today selects records created today
func (b *RangeBuilder) Today() *RangeBuilder {
	now := timeNow()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return b.Between(startOfDay, startOfDay.Add(24*time.Hour))
}

// ThisWeek selects records from the current week, starting Monday
func (b *RangeBuilder) ThisWeek() *RangeBuilder {
	now := timeNow()
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday as last day of week
	}
	startOfWeek := now.AddDate(0, 0, -weekday+1)
	startOfWeek = time.Date(startOfWeek.Year(), startOfWeek.Month(), startOfWeek.Day(), 0, 0, 0, 0, startOfWeek.Location())
	return b.After(startOfWeek)
}

// ThisMonth selects records from the current month
func (b *RangeBuilder) ThisMonth() *RangeBuilder {
	now := timeNow()
	return b.After(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()))
}

// WithScores sets raw score bounds
func (b *RangeBuilder) WithScores(min, max float64) *RangeBuilder {
	b.params.Min, b.params.Max = min, max
	return b
}

// WithOffset skips the first n matches
func (b *RangeBuilder) WithOffset(n int64) *RangeBuilder {
	b.params.Offset = n
	return b
}

// WithLimit caps the number of matches
func (b *RangeBuilder) WithLimit(n int64) *RangeBuilder {
	b.params.Limit = n
	return b
}

// Latest returns results newest first
func (b *RangeBuilder) Latest() *RangeBuilder {
	b.params.Descending = true
	return b
}

// Oldest returns results oldest first
func (b *RangeBuilder) Oldest() *RangeBuilder {
	b.params.Descending = false
	return b
}

// Build validates and returns the parameters
func (b *RangeBuilder) Build() (RangeParams, error) {
	if b.err != nil {
		return RangeParams{}, b.err
	}
	if err := b.params.Validate(); err != nil {
		return RangeParams{}, err
	}
	return b.params, nil
}

// unbounded reports whether p selects every score.
func (p RangeParams) unbounded() bool {
	return math.IsInf(p.Min, -1) && math.IsInf(p.Max, 1)
}

// String describes the range for logs.
func (p RangeParams) String() string {
	order := "asc"
	if p.Descending {
		order = "desc"
	}
	if p.unbounded() {
		return fmt.Sprintf("all %s offset=%d limit=%d", order, p.Offset, p.Limit)
	}
	return fmt.Sprintf("[%v, %v] %s offset=%d limit=%d", p.Min, p.Max, order, p.Offset, p.Limit)
}
