/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when a record or element is not found
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingRequiredFields is returned at creation when a required field is absent
	ErrMissingRequiredFields = errors.New("missing required fields")

	// ErrNoPrimaryKey is returned when a record has no primary key value
	ErrNoPrimaryKey = errors.New("no primary key")

	// ErrDuplicateIdentity is returned when the primary key is already claimed
	ErrDuplicateIdentity = errors.New("duplicate identity")

	// ErrDuplicateEntry is returned when a unique field value is already claimed
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrUnsupportedOperation is returned for container mutations without a remote equivalent
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrInvalidFieldAccess is returned when searching by several fields or a non-unique field
	ErrInvalidFieldAccess = errors.New("invalid field access")

	// ErrMissingElement is returned when removing an element a container does not hold
	ErrMissingElement = errors.New("missing element")

	// ErrIndexOutOfRange is returned when a list index does not address an element
	ErrIndexOutOfRange = errors.New("index out of range")
)

// NotFoundError represents an error when a record is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// MissingRequiredFieldsError lists the required fields absent at creation
type MissingRequiredFieldsError struct {
	Type   string
	Fields []string
}

func (e *MissingRequiredFieldsError) Error() string {
	return fmt.Sprintf("%s: missing required fields: %s", e.Type, strings.Join(e.Fields, ", "))
}

func (e *MissingRequiredFieldsError) Is(target error) bool {
	return target == ErrMissingRequiredFields
}

// NoPrimaryKeyError is returned when creating a record without its primary key
type NoPrimaryKeyError struct {
	Type  string
	Field string
}

func (e *NoPrimaryKeyError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: no primary key", e.Type)
	}
	return fmt.Sprintf("%s: no value for primary key %q", e.Type, e.Field)
}

func (e *NoPrimaryKeyError) Is(target error) bool {
	return target == ErrNoPrimaryKey
}

// DuplicateIdentityError is returned when the primary key claim lost
type DuplicateIdentityError struct {
	Type string
	Key  string
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("%s with primary key %q already exists", e.Type, e.Key)
}

func (e *DuplicateIdentityError) Is(target error) bool {
	return target == ErrDuplicateIdentity
}

// DuplicateEntryError names the unique field and value that conflicted
type DuplicateEntryError struct {
	Type  string
	Field string
	Value any
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("%s: duplicate entry for unique field %q: %v", e.Type, e.Field, e.Value)
}

func (e *DuplicateEntryError) Is(target error) bool {
	return target == ErrDuplicateEntry
}

// UnsupportedOperationError names a container operation with no safe remote equivalent
type UnsupportedOperationError struct {
	Container string
	Op        string
}

func (e *UnsupportedOperationError) Error() string {
	if e.Container == "" {
		return fmt.Sprintf("unsupported operation: %s", e.Op)
	}
	return fmt.Sprintf("unsupported operation on %s: %s", e.Container, e.Op)
}

func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}

// InvalidFieldAccessError describes a lookup by an unusable set of fields
type InvalidFieldAccessError struct {
	Type   string
	Fields []string
	Reason string
}

func (e *InvalidFieldAccessError) Error() string {
	return fmt.Sprintf("%s: invalid access by %s: %s", e.Type, strings.Join(e.Fields, ", "), e.Reason)
}

func (e *InvalidFieldAccessError) Is(target error) bool {
	return target == ErrInvalidFieldAccess
}

// MissingElementError is returned when removing an element that is absent
type MissingElementError struct {
	Key     string
	Element string
}

func (e *MissingElementError) Error() string {
	return fmt.Sprintf("element %q not present in %s", e.Element, e.Key)
}

func (e *MissingElementError) Is(target error) bool {
	return target == ErrMissingElement
}

// IndexOutOfRangeError is returned for a list index outside the list
type IndexOutOfRangeError struct {
	Key   string
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range for %s of length %d", e.Index, e.Key, e.Len)
}

func (e *IndexOutOfRangeError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(recordType, key string) error {
	return &NotFoundError{Type: recordType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewMissingRequiredFieldsError creates a new MissingRequiredFieldsError
func NewMissingRequiredFieldsError(recordType string, fields []string) error {
	return &MissingRequiredFieldsError{Type: recordType, Fields: fields}
}

// NewNoPrimaryKeyError creates a new NoPrimaryKeyError
func NewNoPrimaryKeyError(recordType, field string) error {
	return &NoPrimaryKeyError{Type: recordType, Field: field}
}

// NewDuplicateIdentityError creates a new DuplicateIdentityError
func NewDuplicateIdentityError(recordType, key string) error {
	return &DuplicateIdentityError{Type: recordType, Key: key}
}

// NewDuplicateEntryError creates a new DuplicateEntryError
func NewDuplicateEntryError(recordType, field string, value any) error {
	return &DuplicateEntryError{Type: recordType, Field: field, Value: value}
}

// NewUnsupportedOperationError creates a new UnsupportedOperationError
func NewUnsupportedOperationError(container, op string) error {
	return &UnsupportedOperationError{Container: container, Op: op}
}

// NewInvalidFieldAccessError creates a new InvalidFieldAccessError
func NewInvalidFieldAccessError(recordType string, fields []string, reason string) error {
	return &InvalidFieldAccessError{Type: recordType, Fields: fields, Reason: reason}
}

// NewMissingElementError creates a new MissingElementError
func NewMissingElementError(key, element string) error {
	return &MissingElementError{Key: key, Element: element}
}

// NewIndexOutOfRangeError creates a new IndexOutOfRangeError
func NewIndexOutOfRangeError(key string, index, length int) error {
	return &IndexOutOfRangeError{Key: key, Index: index, Len: length}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsMissingRequiredFields checks if an error is a missing required fields error
func IsMissingRequiredFields(err error) bool {
	return errors.Is(err, ErrMissingRequiredFields)
}

// IsNoPrimaryKey checks if an error is a no primary key error
func IsNoPrimaryKey(err error) bool {
	return errors.Is(err, ErrNoPrimaryKey)
}

// IsDuplicateIdentity checks if an error is a duplicate identity error
func IsDuplicateIdentity(err error) bool {
	return errors.Is(err, ErrDuplicateIdentity)
}

// IsDuplicateEntry checks if an error is a duplicate entry error
func IsDuplicateEntry(err error) bool {
	return errors.Is(err, ErrDuplicateEntry)
}

// IsUnsupportedOperation checks if an error is an unsupported operation error
func IsUnsupportedOperation(err error) bool {
	return errors.Is(err, ErrUnsupportedOperation)
}

// IsInvalidFieldAccess checks if an error is an invalid field access error
func IsInvalidFieldAccess(err error) bool {
	return errors.Is(err, ErrInvalidFieldAccess)
}

// IsMissingElement checks if an error is a missing element error
func IsMissingElement(err error) bool {
	return errors.Is(err, ErrMissingElement)
}

// IsIndexOutOfRange checks if an error is an index out of range error
func IsIndexOutOfRange(err error) bool {
	return errors.Is(err, ErrIndexOutOfRange)
}
