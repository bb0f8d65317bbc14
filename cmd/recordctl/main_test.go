/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/suparena/recordstore"
	"github.com/suparena/recordstore/datastore/mock"
	"github.com/suparena/recordstore/schema"
)

func TestExecute(t *testing.T) {
	ctx := context.Background()
	conn := mock.New()
	store := recordstore.New(conn)
	users := store.MustRegister(ctx, schema.Declare("User",
		schema.NewField("id", schema.String, schema.PrimaryKey()),
		schema.NewField("email", schema.String, schema.Unique()),
	))
	for i, id := range []string{"a", "b", "c"} {
		if _, err := users.Create(ctx, map[string]any{"id": id, "email": id + "@x"}, recordstore.WithScore(float64(i))); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	tests := []struct {
		name string
		cmd  string
		args []string
		want string
	}{
		{"Count", "count", []string{"User"}, "3\n"},
		{"Range", "range", []string{"-desc", "-limit", "2", "User"}, "c\nb\n"},
		{"RangeMin", "range", []string{"-min", "1", "User"}, "b\nc\n"},
		{"Get", "get", []string{"User", "b"}, "email\tb@x\nid\tb\n"},
		{"Owner", "owner", []string{"User", "email", "c@x"}, "c\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := execute(ctx, conn, tt.cmd, tt.args, &out); err != nil {
				t.Fatalf("execute failed: %v", err)
			}
			if out.String() != tt.want {
				t.Fatalf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}

	if err := execute(ctx, conn, "get", []string{"User", "zz"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected an error for a missing record")
	}
	if err := execute(ctx, conn, "drop", []string{"User"}, &bytes.Buffer{}); err != errUsage {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"-version"}, &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out.String(), recordstore.Version) {
		t.Fatalf("output = %q", out.String())
	}
}
