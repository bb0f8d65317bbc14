/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package keys derives store key names from a record type, a field and a
// primary key.
//
// Layout:
//
//	Type:@pk          record hash holding embedded fields
//	Type:field:@pk    standalone field
//	{Type}:field      reverse lookup of a unique field (value -> pk)
//	Type:_records     ordered record index (pk -> score)
//
// Type and field names are identifiers, so they never contain the separator
// nor start with '@'. The primary key is the only free-form token; it is
// prefixed with '@' and has '\' and ':' escaped, which keeps every
// (type, field, pk) combination on a distinct key.
//
// The type token of a reverse lookup key is a Redis Cluster hash tag, so
// the reverse lookups of one type share a slot and the uniqueness claim
// script can touch all of them at once.
package keys

import (
	"regexp"
	"strings"
)

// Sep separates key tokens.
const Sep = ":"

// IndexSuffix names the ordered record index of a type.
const IndexSuffix = "_records"

const pkMarker = "@"

var identPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

var pkEscaper = strings.NewReplacer(`\`, `\\`, `:`, `\:`)

// ValidName reports whether name can be used as a type or field name.
func ValidName(name string) bool {
	return identPattern.MatchString(name)
}

// PK returns the escaped primary key token.
func PK(pk string) string {
	return pkMarker + pkEscaper.Replace(pk)
}

// Record returns the key of the hash holding a record's embedded fields.
func Record(typeName, pk string) string {
	return typeName + Sep + PK(pk)
}

// Field returns the key of a standalone field of one record.
func Field(typeName, field, pk string) string {
	return typeName + Sep + field + Sep + PK(pk)
}

// Unique returns the key of a unique field's reverse lookup hash.
func Unique(typeName, field string) string {
	return "{" + typeName + "}" + Sep + field
}

// Index returns the key of the ordered record index of a type.
func Index(typeName string) string {
	return typeName + Sep + IndexSuffix
}
