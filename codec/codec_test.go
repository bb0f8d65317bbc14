/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package codec

import (
	"reflect"
	"testing"
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/suparena/recordstore/schema"
)

func TestRoundTrip(t *testing.T) {
	c, err := New("utf-8")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	when := strfmt.DateTime(time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC))

	tests := []struct {
		name string
		kind schema.Kind
		in   any
		want any
	}{
		{"String", schema.String, "héllo", "héllo"},
		{"Bytes", schema.Bytes, []byte{0, 1, 255}, []byte{0, 1, 255}},
		{"Int", schema.Int, 42, int64(42)},
		{"NegativeInt", schema.Int, int64(-7), int64(-7)},
		{"Float", schema.Float, 1.25, 1.25},
		{"Bool", schema.Bool, true, true},
		{"DateTime", schema.DateTime, when, when},
		{"DateTimeNanos", schema.DateTime, time.Date(2024, 1, 2, 3, 4, 5, 123456789, time.UTC),
			strfmt.DateTime(time.Date(2024, 1, 2, 3, 4, 5, 123456789, time.UTC))},
		{"Set", schema.Set, []string{"b", "a", "b"}, []string{"a", "b"}},
		{"List", schema.List, []string{"b", "a", "b"}, []string{"b", "a", "b"}},
		{"EmptyList", schema.List, []string{}, []string{}},
		{"Pairs", schema.Pairs, []Pair{{"x", "1"}, {"y", "2"}}, []Pair{{"x", "1"}, {"y", "2"}}},
		{"PairsFromMap", schema.Pairs, map[string]string{"b": "2", "a": "1"}, []Pair{{"a", "1"}, {"b", "2"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, err := c.Encode(tt.kind, tt.in)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			got, err := c.Decode(tt.kind, wire)
			if err != nil {
				t.Fatalf("Decode(%q) failed: %v", wire, err)
			}
			if dt, ok := tt.want.(strfmt.DateTime); ok {
				if !time.Time(got.(strfmt.DateTime)).Equal(time.Time(dt)) {
					t.Fatalf("got %v, want %v", got, dt)
				}
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestEncodeMismatch(t *testing.T) {
	c := Raw()
	cases := []struct {
		kind schema.Kind
		v    any
	}{
		{schema.String, 1},
		{schema.Int, "1"},
		{schema.Bool, "true"},
		{schema.DateTime, "2025-01-01"},
		{schema.Set, 3},
		{schema.List, []any{"a", 1}},
		{schema.Pairs, []string{"a"}},
	}
	for _, tc := range cases {
		if _, err := c.Encode(tc.kind, tc.v); err == nil {
			t.Errorf("Encode(%s, %#v) should fail", tc.kind, tc.v)
		}
	}
}

func TestTextEncoding(t *testing.T) {
	c, err := New("latin1")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	wire, err := c.Encode(schema.String, "café")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if wire != "caf\xe9" {
		t.Fatalf("expected latin1 bytes, got %q", wire)
	}
	got, _ := c.Decode(schema.String, wire)
	if got != "café" {
		t.Fatalf("Decode = %q", got)
	}

	list, err := c.Encode(schema.List, []string{"é"})
	if err != nil {
		t.Fatalf("Encode list failed: %v", err)
	}
	back, err := c.Decode(schema.List, list)
	if err != nil || !reflect.DeepEqual(back, []string{"é"}) {
		t.Fatalf("list round trip = %v, %v", back, err)
	}

	if _, err := New("no-such-encoding"); err == nil {
		t.Fatal("expected error for unknown encoding")
	}
}

func TestStandaloneForms(t *testing.T) {
	c := Raw()

	members, err := c.Members(schema.Set, map[string]struct{}{"b": {}, "a": {}})
	if err != nil || !reflect.DeepEqual(members, []string{"a", "b"}) {
		t.Fatalf("Members = %v, %v", members, err)
	}
	list, _ := c.FromMembers(schema.List, []string{"z", "a"})
	if !reflect.DeepEqual(list, []string{"z", "a"}) {
		t.Fatalf("FromMembers kept order wrong: %v", list)
	}

	h, err := c.Hash([]Pair{{"k", "1"}, {"k", "2"}})
	if err != nil || h["k"] != "2" {
		t.Fatalf("Hash = %v, %v", h, err)
	}
	pairs, _ := c.FromHash(map[string]string{"b": "2", "a": "1"})
	if !reflect.DeepEqual(pairs, []Pair{{"a", "1"}, {"b", "2"}}) {
		t.Fatalf("FromHash = %v", pairs)
	}
}

func TestDecodeDateTimeFormats(t *testing.T) {
	want := time.Date(2024, 1, 2, 3, 4, 5, 123000000, time.UTC)
	for _, wire := range []string{"2024-01-02T03:04:05.123Z", "2024-01-02T03:04:05.123000000Z", "2024-01-02T04:04:05.123+01:00"} {
		got, err := Raw().Decode(schema.DateTime, wire)
		if err != nil {
			t.Fatalf("Decode(%q) failed: %v", wire, err)
		}
		if !time.Time(got.(strfmt.DateTime)).Equal(want) {
			t.Fatalf("Decode(%q) = %v, want %v", wire, got, want)
		}
	}
}
