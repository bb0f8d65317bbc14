/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"math"
	"testing"
	"time"
)

func TestRangeBuilder(t *testing.T) {
	fixed := time.Date(2025, 6, 11, 15, 30, 0, 0, time.UTC) // a Wednesday
	timeNow = func() time.Time { return fixed }
	defer func() { timeNow = time.Now }()

	t.Run("Default", func(t *testing.T) {
		p, err := NewRange().Build()
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if !math.IsInf(p.Min, -1) || !math.IsInf(p.Max, 1) || p.Descending {
			t.Fatalf("unexpected default %+v", p)
		}
	})

	t.Run("InLastHours", func(t *testing.T) {
		p, _ := NewRange().InLastHours(2).Latest().WithLimit(5).Build()
		if p.Min != TimeScore(fixed.Add(-2*time.Hour)) || !math.IsInf(p.Max, 1) {
			t.Fatalf("unexpected bounds %+v", p)
		}
		sr := p.ScoreRange()
		if !sr.Reverse || sr.Count != 5 {
			t.Fatalf("unexpected score range %+v", sr)
		}
	})

	t.Run("Today", func(t *testing.T) {
		p, _ := NewRange().Today().Build()
		start := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
		if p.Min != TimeScore(start) || p.Max != TimeScore(start.Add(24*time.Hour)) {
			t.Fatalf("unexpected bounds %+v", p)
		}
	})

	t.Run("ThisWeek", func(t *testing.T) {
		p, _ := NewRange().ThisWeek().Build()
		monday := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
		if p.Min != TimeScore(monday) {
			t.Fatalf("week should start Monday, got %v", time.Unix(0, int64(p.Min*1e9)).UTC())
		}
	})

	t.Run("Errors", func(t *testing.T) {
		if _, err := NewRange().Between(fixed, fixed.Add(-time.Hour)).Build(); err == nil {
			t.Fatal("expected error for inverted window")
		}
		if _, err := NewRange().WithOffset(-1).Build(); err == nil {
			t.Fatal("expected error for negative offset")
		}
		if _, err := NewRange().WithScores(3, 1).Build(); err == nil {
			t.Fatal("expected error for min above max")
		}
	})
}
