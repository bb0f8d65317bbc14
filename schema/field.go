/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package schema

import "fmt"

// Kind is the value type of a field.
type Kind int

const (
	String Kind = iota
	Bytes
	Int
	Float
	Bool
	DateTime
	Set
	List
	Pairs
)

var kindNames = [...]string{"string", "bytes", "int", "float", "bool", "datetime", "set", "list", "pairs"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Container reports whether values of the kind are collections.
func (k Kind) Container() bool {
	return k == Set || k == List || k == Pairs
}

// Syncable reports whether the kind has a synchronized container.
func (k Kind) Syncable() bool {
	return k == Set || k == List || k == Int || k == String
}

// Class is the storage classification of a resolved field.
type Class int

const (
	ClassPlain Class = iota
	ClassPrimaryKey
	ClassUnique
	ClassProxy
	ClassAuto
)

func (c Class) String() string {
	switch c {
	case ClassPrimaryKey:
		return "primary-key"
	case ClassUnique:
		return "unique"
	case ClassProxy:
		return "standalone-proxy"
	case ClassAuto:
		return "standalone-auto"
	default:
		return "plain"
	}
}

// Field is a field declaration. Name, Owner and Class are assigned by Resolve.
type Field struct {
	Name       string
	Kind       Kind
	PrimaryKey bool
	Unique     bool
	Required   bool
	Standalone bool
	Auto       bool

	// References names the record type a foreign field points to.
	References string

	Owner string
	Class Class
}

// Option configures a Field.
type Option func(*Field)

// PrimaryKey marks the identifying field.
func PrimaryKey() Option {
	return func(f *Field) { f.PrimaryKey = true }
}

// Unique marks a field whose value must be distinct across records. Implies Required.
func Unique() Option {
	return func(f *Field) { f.Unique = true }
}

// Required marks a field that must be present at creation.
func Required() Option {
	return func(f *Field) { f.Required = true }
}

// Standalone stores the field under its own key.
func Standalone() Option {
	return func(f *Field) { f.Standalone = true }
}

// Auto stores the field under its own key and mirrors it locally. Implies Standalone.
func Auto() Option {
	return func(f *Field) { f.Auto = true }
}

// References makes the field a foreign key to the named record type.
func References(typeName string) Option {
	return func(f *Field) { f.References = typeName }
}

// NewField declares a field
func NewField(name string, kind Kind, opts ...Option) Field {
	f := Field{Name: name, Kind: kind}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Foreign reports whether the field references another record.
func (f *Field) Foreign() bool {
	return f.References != ""
}

// Embedded reports whether the field lives in the record hash.
func (f *Field) Embedded() bool {
	return !f.Standalone
}

func (f *Field) normalize() {
	if f.Auto {
		f.Standalone = true
	}
	if f.Unique || f.PrimaryKey {
		f.Required = true
	}
}

func (f *Field) classify() Class {
	switch {
	case f.PrimaryKey:
		return ClassPrimaryKey
	case f.Unique:
		return ClassUnique
	case f.Auto:
		return ClassAuto
	case f.Standalone:
		return ClassProxy
	default:
		return ClassPlain
	}
}
