/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package schema

import (
	"errors"
	"reflect"
	"testing"
)

func TestResolveClassification(t *testing.T) {
	d := Declare("User",
		NewField("id", String, PrimaryKey()),
		NewField("email", String, Unique()),
		NewField("name", String, Required()),
		NewField("bio", String),
		NewField("log", List, Standalone()),
		NewField("tags", Set, Auto()),
		NewField("manager", String, References("User")),
	)
	typ, err := Resolve(d)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if typ.PrimaryKey != "id" {
		t.Fatalf("PrimaryKey = %q", typ.PrimaryKey)
	}
	want := map[string]Class{
		"id":      ClassPrimaryKey,
		"email":   ClassUnique,
		"name":    ClassPlain,
		"bio":     ClassPlain,
		"log":     ClassProxy,
		"tags":    ClassAuto,
		"manager": ClassPlain,
	}
	for name, class := range want {
		if got := typ.Fields[name].Class; got != class {
			t.Errorf("%s: class %s, want %s", name, got, class)
		}
		if typ.Fields[name].Owner != "User" {
			t.Errorf("%s: owner %q", name, typ.Fields[name].Owner)
		}
	}

	t.Run("Tags", func(t *testing.T) {
		for _, name := range []string{"id", "email", "name"} {
			if _, ok := typ.Required[name]; !ok {
				t.Errorf("%s should be required", name)
			}
		}
		if _, ok := typ.Required["bio"]; ok {
			t.Error("bio should not be required")
		}
		if _, ok := typ.Foreign["manager"]; !ok || len(typ.Foreign) != 1 {
			t.Errorf("unexpected foreign fields %v", typ.Foreign)
		}
		if !typ.Fields["tags"].Standalone {
			t.Error("auto must imply standalone")
		}
	})

	t.Run("Keys", func(t *testing.T) {
		if typ.IndexKey != "User:_records" {
			t.Errorf("IndexKey = %q", typ.IndexKey)
		}
		if typ.UniqueKeys["email"] != "{User}:email" {
			t.Errorf("UniqueKeys = %v", typ.UniqueKeys)
		}
		if got := typ.RecordKey("7"); got != "User:@7" {
			t.Errorf("RecordKey = %q", got)
		}
		if got := typ.FieldKey("tags", "7"); got != "User:tags:@7" {
			t.Errorf("FieldKey = %q", got)
		}
		if got := typ.Standalone(); !reflect.DeepEqual(got, []string{"log", "tags"}) {
			t.Errorf("Standalone = %v", got)
		}
	})
}

func TestResolveInheritance(t *testing.T) {
	base := Declare("Base",
		NewField("id", String, PrimaryKey()),
		NewField("note", String),
		NewField("created", DateTime),
	)
	mid := Declare("Mid", NewField("note", String, Required())).Extends(base)
	leaf := Declare("Leaf", NewField("extra", Int)).Extends(mid, base)

	typ, err := Resolve(leaf)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !reflect.DeepEqual(typ.Order, []string{"id", "note", "created", "extra"}) {
		t.Fatalf("Order = %v", typ.Order)
	}
	if !typ.Fields["note"].Required {
		t.Fatal("subclass declaration should override the base field")
	}
	if typ.Fields["id"].Owner != "Leaf" {
		t.Fatalf("inherited field owner = %q", typ.Fields["id"].Owner)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		decl *Declaration
	}{
		{"TwoPrimaryKeys", Declare("T", NewField("a", String, PrimaryKey()), NewField("b", String, PrimaryKey()))},
		{"NoPrimaryKey", Declare("T", NewField("a", String))},
		{"BadTypeName", Declare("T:x", NewField("a", String, PrimaryKey()))},
		{"BadFieldName", Declare("T", NewField("a", String, PrimaryKey()), NewField("@b", String))},
		{"DuplicateField", Declare("T", NewField("a", String, PrimaryKey()), NewField("a", String))},
		{"AutoPairs", Declare("T", NewField("a", String, PrimaryKey()), NewField("p", Pairs, Auto()))},
		{"UniqueStandalone", Declare("T", NewField("a", String, PrimaryKey()), NewField("u", String, Unique(), Standalone()))},
		{"UniqueBytes", Declare("T", NewField("a", String, PrimaryKey()), NewField("u", Bytes, Unique()))},
		{"UniqueContainer", Declare("T", NewField("a", String, PrimaryKey()), NewField("u", Set, Unique()))},
		{"ForeignStandalone", Declare("T", NewField("a", String, PrimaryKey()), NewField("f", String, References("T"), Standalone()))},
		{"PrimaryKeyInt", Declare("T", NewField("a", Int, PrimaryKey()))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.decl)
			if !errors.Is(err, ErrInvalidDeclaration) {
				t.Fatalf("expected ErrInvalidDeclaration, got %v", err)
			}
		})
	}

	t.Run("MustResolvePanics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic")
			}
		}()
		MustResolve(tests[0].decl)
	})
}
