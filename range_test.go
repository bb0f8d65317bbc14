/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package recordstore_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/suparena/recordstore"
	"github.com/suparena/recordstore/datastore/mock"
	"github.com/suparena/recordstore/schema"
	"github.com/suparena/recordstore/storagemodels"
)

func seedEvents(t *testing.T, n int) (*recordstore.Model, *mock.Store) {
	t.Helper()
	ctx := context.Background()
	conn := mock.New()
	store := recordstore.New(conn)
	events := store.MustRegister(ctx, schema.Declare("Event",
		schema.NewField("id", schema.String, schema.PrimaryKey()),
		schema.NewField("seq", schema.Int),
		schema.NewField("next", schema.String, schema.References("Event")),
	))
	for i := 1; i <= n; i++ {
		values := map[string]any{"id": fmt.Sprintf("e%d", i), "seq": i}
		if i < n {
			values["next"] = fmt.Sprintf("e%d", i+1)
		}
		if _, err := events.Create(ctx, values, recordstore.WithScore(float64(i))); err != nil {
			t.Fatalf("Create e%d failed: %v", i, err)
		}
	}
	return events, conn
}

func pks(records []*recordstore.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.PrimaryKey())
	}
	return out
}

func TestRange(t *testing.T) {
	ctx := context.Background()
	events, conn := seedEvents(t, 5)

	tests := []struct {
		name   string
		params storagemodels.RangeParams
		want   []string
	}{
		{"All", storagemodels.AllRecords(), []string{"e1", "e2", "e3", "e4", "e5"}},
		{"Bounded", storagemodels.RangeParams{Min: 2, Max: 4}, []string{"e2", "e3", "e4"}},
		{"Paged", storagemodels.RangeParams{Min: math.Inf(-1), Max: math.Inf(1), Offset: 1, Limit: 2}, []string{"e2", "e3"}},
		{"Descending", storagemodels.RangeParams{Min: math.Inf(-1), Max: math.Inf(1), Limit: 2, Descending: true}, []string{"e5", "e4"}},
		{"OffsetOnly", storagemodels.RangeParams{Min: math.Inf(-1), Max: math.Inf(1), Offset: 3}, []string{"e4", "e5"}},
		{"Empty", storagemodels.RangeParams{Min: 10, Max: 20}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := events.Range(ctx, tt.params)
			if err != nil {
				t.Fatalf("Range failed: %v", err)
			}
			if got := pks(records); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Range = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("SharedTraversal", func(t *testing.T) {
		records, _ := events.Range(ctx, storagemodels.AllRecords())
		next, err := records[0].Foreign(ctx, "next")
		if err != nil {
			t.Fatalf("Foreign failed: %v", err)
		}
		if next != records[1] {
			t.Fatal("records loaded by one range should resolve references to each other")
		}
	})

	t.Run("SkipsOrphanedEntries", func(t *testing.T) {
		if _, err := conn.ZAddNX(ctx, "Event:_records", 2.5, "ghost"); err != nil {
			t.Fatalf("ZAddNX failed: %v", err)
		}
		records, _ := events.Range(ctx, storagemodels.RangeParams{Min: 2, Max: 3})
		if got := pks(records); !reflect.DeepEqual(got, []string{"e2", "e3"}) {
			t.Fatalf("Range = %v", got)
		}
		conn.ZRem(ctx, "Event:_records", "ghost")
	})

	t.Run("Invalid", func(t *testing.T) {
		if _, err := events.Range(ctx, storagemodels.RangeParams{Min: 3, Max: 1}); err == nil {
			t.Fatal("expected an error for an inverted range")
		}
	})
}

func TestStream(t *testing.T) {
	ctx := context.Background()
	events, conn := seedEvents(t, 7)

	t.Run("Pages", func(t *testing.T) {
		var last storagemodels.StreamProgress
		progressCalls := 0
		var got []string
		for res := range events.Stream(ctx, storagemodels.AllRecords(),
			storagemodels.WithPageSize(3),
			storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
				progressCalls++
				last = p
			})) {
			if res.Error != nil {
				t.Fatalf("stream error: %v", res.Error)
			}
			if res.Raw["seq"] == "" {
				t.Fatalf("raw hash missing for %s", res.Item.PrimaryKey())
			}
			got = append(got, res.Item.PrimaryKey())
		}
		if !reflect.DeepEqual(got, []string{"e1", "e2", "e3", "e4", "e5", "e6", "e7"}) {
			t.Fatalf("Stream = %v", got)
		}
		if progressCalls == 0 || last.ItemsProcessed != 7 || last.PagesProcessed != 3 || last.NextOffset != -1 {
			t.Fatalf("final progress = %+v after %d calls", last, progressCalls)
		}
	})

	t.Run("Limit", func(t *testing.T) {
		params := storagemodels.AllRecords()
		params.Offset, params.Limit, params.Descending = 1, 4, true
		var got []string
		for res := range events.Stream(ctx, params, storagemodels.WithPageSize(3)) {
			got = append(got, res.Item.PrimaryKey())
		}
		if !reflect.DeepEqual(got, []string{"e6", "e5", "e4", "e3"}) {
			t.Fatalf("Stream = %v", got)
		}
	})

	t.Run("IndexFailure", func(t *testing.T) {
		boom := stderrors.New("index down")
		conn.WithFailure("ZRANGEBYSCORE", boom)
		defer conn.WithFailure("ZRANGEBYSCORE", nil)

		var errs []error
		for res := range events.Stream(ctx, storagemodels.AllRecords()) {
			errs = append(errs, res.Error)
		}
		if len(errs) != 1 || !stderrors.Is(errs[0], boom) {
			t.Fatalf("expected one fatal error wrapping %v, got %v", boom, errs)
		}
	})

	t.Run("InvalidParams", func(t *testing.T) {
		res, ok := <-events.Stream(ctx, storagemodels.RangeParams{Min: 1, Max: 0})
		if !ok || res.Error == nil {
			t.Fatal("expected a validation error on the stream")
		}
	})

	t.Run("Cancel", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		ch := events.Stream(cctx, storagemodels.AllRecords(), storagemodels.WithPageSize(1), storagemodels.WithBufferSize(0))
		<-ch
		cancel()
		for range ch {
		}
	})
}
