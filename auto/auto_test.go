/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package auto

import (
	"context"
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/suparena/recordstore/codec"
	"github.com/suparena/recordstore/datastore"
	"github.com/suparena/recordstore/datastore/mock"
	"github.com/suparena/recordstore/errors"
)

// batched routes writes into a pipeline, as a record does inside a batch.
type batched struct {
	conn datastore.Conn
	pipe datastore.Pipeline
}

func (b batched) Writer() datastore.Writer { return b.pipe }
func (b batched) Conn() datastore.Conn     { return b.conn }

func remoteSet(t *testing.T, store *mock.Store, key string) []string {
	t.Helper()
	got, err := store.SMembers(context.Background(), key)
	if err != nil {
		t.Fatalf("SMembers failed: %v", err)
	}
	return got
}

func remoteList(t *testing.T, store *mock.Store, key string) []string {
	t.Helper()
	got, err := store.LRange(context.Background(), key, 0, -1)
	if err != nil {
		t.Fatalf("LRange failed: %v", err)
	}
	return got
}

func TestSetStaysSynchronized(t *testing.T) {
	ctx := context.Background()
	store := mock.New()
	const key = "User:tags:@1"
	store.SAdd(ctx, key, "a", "b", "c")

	s, err := LoadSet(ctx, key, Direct(store), codec.Raw())
	if err != nil {
		t.Fatalf("LoadSet failed: %v", err)
	}

	steps := []struct {
		name string
		op   func() error
	}{
		{"Add", func() error { return s.Add(ctx, "d", "e") }},
		{"Remove", func() error { return s.Remove(ctx, "a") }},
		{"Discard", func() error { return s.Discard(ctx, "zz") }},
		{"Pop", func() error { _, _, err := s.Pop(ctx); return err }},
		{"Update", func() error { return s.Update(ctx, []string{"x"}, []string{"y", "c"}) }},
		{"SymmetricDifferenceUpdate", func() error { return s.SymmetricDifferenceUpdate(ctx, []string{"x", "q"}) }},
		{"IntersectionUpdate", func() error { return s.IntersectionUpdate(ctx, []string{"c", "d", "q", "y"}, []string{"c", "q", "y"}) }},
		{"DifferenceUpdate", func() error { return s.DifferenceUpdate(ctx, []string{"y"}) }},
	}
	for _, step := range steps {
		if err := step.op(); err != nil {
			t.Fatalf("%s failed: %v", step.name, err)
		}
		if got := remoteSet(t, store, key); !reflect.DeepEqual(s.Members(), got) {
			t.Fatalf("after %s: local %v, remote %v", step.name, s.Members(), got)
		}
	}
	if !reflect.DeepEqual(s.Members(), []string{"c", "q"}) {
		t.Fatalf("final members = %v", s.Members())
	}

	if err := s.Clear(ctx); err != nil || s.Len() != 0 || store.Count() != 0 {
		t.Fatalf("Clear: len %d, keys %v, err %v", s.Len(), store.Keys(), err)
	}
}

func TestSetRemoveMissing(t *testing.T) {
	ctx := context.Background()
	store := mock.New()
	s := NewSet("k", Direct(store), codec.Raw(), nil)
	store.ResetCalls()

	err := s.Remove(ctx, "nope")
	if !errors.IsMissingElement(err) {
		t.Fatalf("expected missing element error, got %v", err)
	}
	if len(store.Calls()) != 0 {
		t.Fatalf("no remote call expected, got %v", store.Calls())
	}
	if _, ok, _ := s.Pop(ctx); ok {
		t.Fatal("Pop on empty set should report !ok")
	}
}

func TestListStaysSynchronized(t *testing.T) {
	ctx := context.Background()
	store := mock.New()
	const key = "User:log:@1"
	store.RPush(ctx, key, "a", "b")

	l, err := LoadList(ctx, key, Direct(store), codec.Raw())
	if err != nil {
		t.Fatalf("LoadList failed: %v", err)
	}

	steps := []struct {
		name string
		op   func() error
	}{
		{"Append", func() error { return l.Append(ctx, "c") }},
		{"Extend", func() error { return l.Extend(ctx, "d", "b") }},
		{"InsertHead", func() error { return l.Insert(ctx, 0, "z") }},
		{"InsertEnd", func() error { return l.Insert(ctx, l.Len(), "y") }},
		{"PopHead", func() error { _, err := l.Pop(ctx, 0); return err }},
		{"PopTail", func() error { _, err := l.Pop(ctx, -1); return err }},
		{"Remove", func() error { return l.Remove(ctx, "b") }},
		{"SetHead", func() error { return l.SetIndex(ctx, 0, "A") }},
		{"SetTail", func() error { return l.SetIndex(ctx, -1, "B") }},
		{"Repeat", func() error { return l.Repeat(ctx, 2) }},
		{"Delete", func() error { return l.Delete(ctx, l.Len()-1) }},
	}
	for _, step := range steps {
		if err := step.op(); err != nil {
			t.Fatalf("%s failed: %v", step.name, err)
		}
		if got := remoteList(t, store, key); !reflect.DeepEqual(l.Items(), got) {
			t.Fatalf("after %s: local %v, remote %v", step.name, l.Items(), got)
		}
	}
	want := []string{"A", "c", "d", "B", "A", "c", "d"}
	if !reflect.DeepEqual(l.Items(), want) {
		t.Fatalf("final items = %v, want %v", l.Items(), want)
	}

	if err := l.Repeat(ctx, 0); err != nil || l.Len() != 0 || store.Count() != 0 {
		t.Fatalf("Repeat(0): len %d, keys %v, err %v", l.Len(), store.Keys(), err)
	}
}

func TestListUnsupported(t *testing.T) {
	ctx := context.Background()
	store := mock.New()
	const key = "k"
	store.RPush(ctx, key, "a", "b", "c", "d", "e")
	l, _ := LoadList(ctx, key, Direct(store), codec.Raw())
	before := l.Items()
	store.ResetCalls()

	ops := map[string]func() error{
		"insert":  func() error { return l.Insert(ctx, 2, "x") },
		"set":     func() error { return l.SetIndex(ctx, 2, "x") },
		"pop":     func() error { _, err := l.Pop(ctx, 2); return err },
		"slice":   func() error { _, err := l.Slice(1, 2); return err },
		"sort":    func() error { return l.Sort(ctx) },
		"reverse": func() error { return l.Reverse(ctx) },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			var unsup *errors.UnsupportedOperationError
			if !stderrors.As(err, &unsup) || unsup.Op != name {
				t.Fatalf("expected unsupported %s, got %v", name, err)
			}
		})
	}
	if len(store.Calls()) != 0 {
		t.Fatalf("unsupported operations issued commands: %v", store.Calls())
	}
	if !reflect.DeepEqual(l.Items(), before) || !reflect.DeepEqual(remoteList(t, store, key), before) {
		t.Fatalf("state changed: local %v", l.Items())
	}

	if _, err := l.Pop(ctx, 9); !errors.IsIndexOutOfRange(err) {
		t.Fatalf("expected index error, got %v", err)
	}
	if err := l.Remove(ctx, "nope"); !errors.IsMissingElement(err) {
		t.Fatalf("expected missing element error, got %v", err)
	}
}

func TestRemoteFailureKeepsLocalState(t *testing.T) {
	ctx := context.Background()
	boom := stderrors.New("connection reset")
	store := mock.New()
	store.SAdd(ctx, "s", "a")
	store.RPush(ctx, "l", "a")
	s, _ := LoadSet(ctx, "s", Direct(store), codec.Raw())
	l, _ := LoadList(ctx, "l", Direct(store), codec.Raw())

	store.WithFailure("", boom)
	if err := s.Add(ctx, "b"); err != boom {
		t.Fatalf("expected transport error, got %v", err)
	}
	if err := l.Append(ctx, "b"); err != boom {
		t.Fatalf("expected transport error, got %v", err)
	}
	if s.Contains("b") || l.Len() != 1 {
		t.Fatal("failed remote call must not change local state")
	}
}

func TestInt(t *testing.T) {
	ctx := context.Background()
	store := mock.New()
	n, err := LoadInt(ctx, "User:visits:@1", Direct(store))
	if err != nil || n.Value() != 0 {
		t.Fatalf("LoadInt = %v, %v", n, err)
	}

	// Another client increments concurrently.
	store.Incr(ctx, "User:visits:@1", 10)
	v, err := n.Incr(ctx, 1)
	if err != nil || v != 11 || n.Value() != 11 {
		t.Fatalf("Incr = %d, %v", v, err)
	}
	if v, _ := n.Decr(ctx, 5); v != 6 {
		t.Fatalf("Decr = %d", v)
	}
	if err := n.Set(ctx, 42); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if raw, _, _ := store.Get(ctx, "User:visits:@1"); raw != "42" {
		t.Fatalf("remote = %q", raw)
	}
	if !errors.IsUnsupportedOperation(n.Mul(ctx, 2)) {
		t.Fatal("Mul should be unsupported")
	}
}

func TestString(t *testing.T) {
	ctx := context.Background()
	store := mock.New()
	c, _ := codec.New("latin1")
	s, err := LoadString(ctx, "User:motto:@1", Direct(store), c)
	if err != nil || s.Present() {
		t.Fatalf("LoadString = %v, %v", s, err)
	}
	if err := s.Set(ctx, "ça va"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	fresh, _ := LoadString(ctx, "User:motto:@1", Direct(store), c)
	if fresh.Value() != "ça va" || s.Value() != fresh.Value() {
		t.Fatalf("local %q, fresh %q", s.Value(), fresh.Value())
	}
}

func TestBatchedWrites(t *testing.T) {
	ctx := context.Background()
	store := mock.New()
	b := batched{conn: store, pipe: store.Pipeline()}

	s := NewSet("s", b, codec.Raw(), nil)
	n := NewInt("n", b, 5)
	s.Add(ctx, "a")
	if v, _ := n.Incr(ctx, 2); v != 7 {
		t.Fatalf("buffered Incr = %d", v)
	}
	if store.Count() != 0 {
		t.Fatalf("writes visible before Exec: %v", store.Keys())
	}
	if err := b.pipe.Exec(ctx); err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if got := remoteSet(t, store, "s"); !reflect.DeepEqual(got, s.Members()) {
		t.Fatalf("remote %v, local %v", got, s.Members())
	}
	if raw, _, _ := store.Get(ctx, "n"); raw != "2" {
		// The remote counter did not exist, so only the delta was applied.
		t.Fatalf("remote counter = %q", raw)
	}
}
