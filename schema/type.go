/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package schema

import (
	"errors"
	"fmt"

	"github.com/suparena/recordstore/keys"
)

// ErrInvalidDeclaration is returned by Resolve for declarations that break a field invariant.
var ErrInvalidDeclaration = errors.New("schema: invalid declaration")

// Declaration is the unresolved definition of a record type.
type Declaration struct {
	Name   string
	Fields []Field
	Bases  []*Declaration
}

// Declare starts a declaration
func Declare(name string, fields ...Field) *Declaration {
	return &Declaration{Name: name, Fields: fields}
}

// Extends adds base declarations. Fields are collected from the bases in
// order, then from d itself; a later field overrides an earlier one of the same name.
func (d *Declaration) Extends(bases ...*Declaration) *Declaration {
	d.Bases = append(d.Bases, bases...)
	return d
}

// Type is a resolved record type.
type Type struct {
	Name       string
	PrimaryKey string

	// Order lists field names in linearized declaration order.
	Order  []string
	Fields map[string]*Field

	Unique   map[string]*Field
	Required map[string]*Field
	Plain    map[string]*Field
	Proxy    map[string]*Field
	Auto     map[string]*Field
	Foreign  map[string]*Field

	// UniqueOrder lists the unique fields in declaration order.
	UniqueOrder []string
	// UniqueKeys maps unique fields to their reverse lookup key.
	UniqueKeys map[string]string
	IndexKey   string
}

func invalid(typeName, field, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if field != "" {
		return fmt.Errorf("%w: %s.%s: %s", ErrInvalidDeclaration, typeName, field, msg)
	}
	return fmt.Errorf("%w: %s: %s", ErrInvalidDeclaration, typeName, msg)
}

// linearize collects the fields of d and its bases, visiting each declaration once.
func linearize(d *Declaration, seen map[*Declaration]bool, order *[]string, fields map[string]Field) error {
	if seen[d] {
		return nil
	}
	seen[d] = true
	for _, b := range d.Bases {
		if err := linearize(b, seen, order, fields); err != nil {
			return err
		}
	}
	own := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if own[f.Name] {
			return invalid(d.Name, f.Name, "declared twice")
		}
		own[f.Name] = true
		if _, ok := fields[f.Name]; !ok {
			*order = append(*order, f.Name)
		}
		fields[f.Name] = f
	}
	return nil
}

// Resolve classifies the fields of d and precomputes its keys.
func Resolve(d *Declaration) (*Type, error) {
	if d == nil || !keys.ValidName(d.Name) {
		return nil, fmt.Errorf("%w: bad type name", ErrInvalidDeclaration)
	}

	var order []string
	collected := make(map[string]Field)
	if err := linearize(d, make(map[*Declaration]bool), &order, collected); err != nil {
		return nil, err
	}

	t := &Type{
		Name:       d.Name,
		Order:      order,
		Fields:     make(map[string]*Field, len(order)),
		Unique:     make(map[string]*Field),
		Required:   make(map[string]*Field),
		Plain:      make(map[string]*Field),
		Proxy:      make(map[string]*Field),
		Auto:       make(map[string]*Field),
		Foreign:    make(map[string]*Field),
		UniqueKeys: make(map[string]string),
		IndexKey:   keys.Index(d.Name),
	}

	for _, name := range order {
		f := collected[name]
		if !keys.ValidName(name) {
			return nil, invalid(t.Name, name, "bad field name")
		}
		f.Owner = t.Name
		f.normalize()
		if err := check(t.Name, &f); err != nil {
			return nil, err
		}
		f.Class = f.classify()

		fp := &f
		t.Fields[name] = fp
		switch f.Class {
		case ClassPrimaryKey:
			if t.PrimaryKey != "" {
				return nil, invalid(t.Name, name, "second primary key, %q is already the primary key", t.PrimaryKey)
			}
			t.PrimaryKey = name
		case ClassUnique:
			t.Unique[name] = fp
			t.UniqueOrder = append(t.UniqueOrder, name)
			t.UniqueKeys[name] = keys.Unique(t.Name, name)
		case ClassPlain:
			t.Plain[name] = fp
		case ClassProxy:
			t.Proxy[name] = fp
		case ClassAuto:
			t.Auto[name] = fp
		}
		if f.Required {
			t.Required[name] = fp
		}
		if f.Foreign() {
			t.Foreign[name] = fp
		}
	}

	if t.PrimaryKey == "" {
		return nil, invalid(t.Name, "", "no primary key field")
	}
	return t, nil
}

// check enforces the per-field invariants after normalization.
func check(typeName string, f *Field) error {
	if f.Kind < String || f.Kind > Pairs {
		return invalid(typeName, f.Name, "unknown kind %d", int(f.Kind))
	}
	if f.PrimaryKey {
		if f.Kind != String || f.Standalone || f.Foreign() {
			return invalid(typeName, f.Name, "primary key must be an embedded string")
		}
	}
	if f.Unique && (f.Standalone || f.Kind.Container() || f.Kind == Bytes) {
		return invalid(typeName, f.Name, "unique field must be an embedded text or number scalar")
	}
	if f.Auto && !f.Kind.Syncable() {
		return invalid(typeName, f.Name, "no synchronized container for kind %s", f.Kind)
	}
	if f.Foreign() {
		if !keys.ValidName(f.References) {
			return invalid(typeName, f.Name, "bad referenced type %q", f.References)
		}
		if f.Kind != String || f.Standalone {
			return invalid(typeName, f.Name, "foreign key must be an embedded string")
		}
	}
	return nil
}

// MustResolve is like Resolve but panics on error. It is meant for package level declarations.
func MustResolve(d *Declaration) *Type {
	t, err := Resolve(d)
	if err != nil {
		panic(err)
	}
	return t
}

// Field returns the named field
func (t *Type) Field(name string) (*Field, bool) {
	f, ok := t.Fields[name]
	return f, ok
}

// Embedded reports whether the named field lives in the record hash.
func (t *Type) Embedded(name string) bool {
	f, ok := t.Fields[name]
	return ok && f.Embedded()
}

// RecordKey returns the key of a record's hash
func (t *Type) RecordKey(pk string) string {
	return keys.Record(t.Name, pk)
}

// FieldKey returns the key of a standalone field of one record
func (t *Type) FieldKey(field, pk string) string {
	return keys.Field(t.Name, field, pk)
}

// Standalone returns the standalone field names in declaration order.
func (t *Type) Standalone() []string {
	var names []string
	for _, name := range t.Order {
		if t.Fields[name].Standalone {
			names = append(names, name)
		}
	}
	return names
}
