/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package recordstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"golang.org/x/exp/slog"

	"github.com/suparena/recordstore/datastore/mock"
	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/schema"
	"github.com/suparena/recordstore/storagemodels"
)

func declareAccount() *schema.Declaration {
	return schema.Declare("Account",
		schema.NewField("id", schema.String, schema.PrimaryKey()),
		schema.NewField("handle", schema.String, schema.Unique()),
		schema.NewField("owner", schema.String, schema.References("Person")),
	)
}

func TestStoreRegistration(t *testing.T) {
	ctx := context.Background()
	s := New(mock.New())

	t.Run("RegisterAndLookup", func(t *testing.T) {
		m, err := s.Register(ctx, declareAccount())
		if err != nil {
			t.Fatalf("Failed to register: %v", err)
		}
		got, err := s.Model("Account")
		if err != nil || got != m {
			t.Fatalf("Model lookup = %v, %v", got, err)
		}
		if m.Name() != "Account" || m.Type().PrimaryKey != "id" {
			t.Fatalf("unexpected model %s/%s", m.Name(), m.Type().PrimaryKey)
		}
	})

	t.Run("DuplicateRegistration", func(t *testing.T) {
		if _, err := s.Register(ctx, declareAccount()); err == nil {
			t.Fatal("Expected duplicate registration error")
		}
	})

	t.Run("InvalidDeclaration", func(t *testing.T) {
		_, err := s.Register(ctx, schema.Declare("Broken", schema.NewField("name", schema.String)))
		if err == nil {
			t.Fatal("Expected an error for a type without primary key")
		}
		if _, err := s.Model("Broken"); err == nil {
			t.Fatal("a rejected type must not be registered")
		}
	})

	t.Run("UnregisteredTarget", func(t *testing.T) {
		accounts, _ := s.Model("Account")
		a, err := accounts.Create(ctx, map[string]any{"id": "a1", "handle": "h", "owner": "p1"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if _, err := a.Foreign(ctx, "owner"); err == nil {
			t.Fatal("resolving a reference to an unregistered type should fail")
		}
	})
}

func TestDefaultScore(t *testing.T) {
	ctx := context.Background()
	conn := mock.New()
	s := New(conn)
	accounts := s.MustRegister(ctx, declareAccount())

	fixed := time.Date(2025, 3, 1, 12, 0, 0, 500000000, time.UTC)
	timeNow = func() time.Time { return fixed }
	defer func() { timeNow = time.Now }()

	if _, err := accounts.Create(ctx, map[string]any{"id": "a1", "handle": "h"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	score, ok, err := conn.ZScore(ctx, accounts.Type().IndexKey, "a1")
	if err != nil || !ok || score != storagemodels.TimeScore(fixed) {
		t.Fatalf("score = %v (%v, %v), want %v", score, ok, err, storagemodels.TimeScore(fixed))
	}

	params, err := storagemodels.NewRange().Between(fixed.Add(-time.Second), fixed.Add(time.Second)).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	in, err := accounts.Range(ctx, params)
	if err != nil || len(in) != 1 {
		t.Fatalf("time range = %v, %v", in, err)
	}
}

func TestStoreLogging(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := New(mock.New(), WithLogger(log))
	accounts := s.MustRegister(ctx, declareAccount())

	r, err := accounts.Create(ctx, map[string]any{"id": "a1", "handle": "h"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := r.Update(ctx, map[string]any{"handle": "g"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	out := buf.String()
	for _, msg := range []string{"record created", "batch begin", "batch committed"} {
		if !strings.Contains(out, `"msg":"`+msg+`"`) {
			t.Errorf("missing %q in log output:\n%s", msg, out)
		}
	}
}

func TestConcurrentClaims(t *testing.T) {
	ctx := context.Background()
	s := New(mock.New())
	accounts := s.MustRegister(ctx, declareAccount())
	done := make(chan error)

	// Every creation competes for the same handle
	for i := 0; i < 10; i++ {
		go func(id int) {
			_, err := accounts.Create(ctx, map[string]any{"id": fmt.Sprintf("a%d", id), "handle": "shared"})
			done <- err
		}(i)
	}

	wins := 0
	for i := 0; i < 10; i++ {
		err := <-done
		switch {
		case err == nil:
			wins++
		case !errors.IsDuplicateEntry(err):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("Expected exactly one winner, got %d", wins)
	}
	if n, _ := accounts.Count(ctx); n != 1 {
		t.Fatalf("losing creations left %d index entries", n)
	}
}
