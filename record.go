/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package recordstore

import (
	"context"
	"sort"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slog"

	"github.com/suparena/recordstore/auto"
	"github.com/suparena/recordstore/datastore"
	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/proxy"
	"github.com/suparena/recordstore/schema"
)

// Record is one instance of a record type.
//
// Embedded fields are held in memory and read without I/O. Standalone and
// foreign fields are materialized on first access and cached on the record
// until the field is written or deleted.
//
// A Record is not safe for concurrent use.
type Record struct {
	model *Model
	pk    string
	data  map[string]any
	cache map[string]any
	trav  *traversal

	// batching state, see batch.go
	depth   int
	pipe    datastore.Pipeline
	batchID string
	abort   bool
	claims  []uniqueClaim
}

var _ auto.Backend = (*Record)(nil)

func newRecord(m *Model, pk string, trav *traversal) *Record {
	return &Record{
		model: m,
		pk:    pk,
		data:  make(map[string]any),
		cache: make(map[string]any),
		trav:  trav,
	}
}

// fill replaces the embedded data with a fetched record hash.
func (r *Record) fill(h map[string]string) error {
	data := make(map[string]any, len(h))
	for name, raw := range h {
		f, ok := r.model.typ.Fields[name]
		if !ok || f.Standalone {
			continue
		}
		v, err := r.model.codec.Decode(f.Kind, raw)
		if err != nil {
			return errors.NewValidationError(name, err.Error())
		}
		data[name] = v
	}
	r.data = data
	return nil
}

// Model returns the record's type handle.
func (r *Record) Model() *Model {
	return r.model
}

// Good reports whether the record exists: it has a primary key and was not deleted.
func (r *Record) Good() bool {
	return r.data[r.model.typ.PrimaryKey] != nil
}

// PrimaryKey returns the primary key, "" when the record is not good.
func (r *Record) PrimaryKey() string {
	if !r.Good() {
		return ""
	}
	return r.pk
}

// Writer returns the batch while one is open, the connection otherwise.
func (r *Record) Writer() datastore.Writer {
	if r.pipe != nil {
		return r.pipe
	}
	return r.model.store.conn
}

// Conn returns the connection used for reads and scripts.
func (r *Record) Conn() datastore.Conn {
	return r.model.store.conn
}

// Values returns a copy of the embedded field values.
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.data))
	maps.Copy(out, r.data)
	return out
}

func (r *Record) field(name string) (*schema.Field, error) {
	f, ok := r.model.typ.Fields[name]
	if !ok {
		return nil, errors.NewInvalidFieldAccessError(r.model.typ.Name, []string{name}, "no such field")
	}
	return f, nil
}

// Get returns a field value. Embedded fields return their decoded value,
// standalone proxy fields a *proxy.Command, and auto fields their
// synchronized container (*auto.Set, *auto.List, *auto.Int or *auto.String).
// Every field reads as nil on a record that is not good.
func (r *Record) Get(ctx context.Context, name string) (any, error) {
	f, err := r.field(name)
	if err != nil {
		return nil, err
	}
	if !r.Good() {
		return nil, nil
	}
	return accessors[f.Class].get(ctx, r, f)
}

// Set assigns a field value. See the package documentation for the
// semantics of each field class. Assigning nil deletes the field.
func (r *Record) Set(ctx context.Context, name string, v any) error {
	f, err := r.field(name)
	if err != nil {
		return err
	}
	if !r.Good() {
		return errors.NewNotFoundError(r.model.typ.Name, r.pk)
	}
	if v == nil {
		return r.DeleteField(ctx, name)
	}
	return accessors[f.Class].set(ctx, r, f, v)
}

// Update assigns several fields in one batch, in declaration order.
func (r *Record) Update(ctx context.Context, values map[string]any) error {
	names := maps.Keys(values)
	for _, name := range names {
		if _, err := r.field(name); err != nil {
			return err
		}
	}
	order := r.model.typ.Order
	sort.Slice(names, func(i, j int) bool {
		return indexOf(order, names[i]) < indexOf(order, names[j])
	})
	return r.Batch(ctx, func(ctx context.Context) error {
		for _, name := range names {
			if err := r.Set(ctx, name, values[name]); err != nil {
				return err
			}
		}
		return nil
	})
}

func indexOf(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return len(order)
}

// DeleteField removes one field from the store.
func (r *Record) DeleteField(ctx context.Context, name string) error {
	f, err := r.field(name)
	if err != nil {
		return err
	}
	if !r.Good() {
		return nil
	}
	return accessors[f.Class].del(ctx, r, f)
}

// Delete removes the record with all its keys: the record hash, standalone
// fields, its reverse lookup entries and its index entry. The record is not
// good afterwards.
func (r *Record) Delete(ctx context.Context) error {
	if !r.Good() {
		return nil
	}
	t := r.model.typ
	keys := []string{t.RecordKey(r.pk)}
	for _, name := range t.Standalone() {
		keys = append(keys, t.FieldKey(name, r.pk))
	}
	tokens := make(map[string]string)
	for _, name := range t.UniqueOrder {
		v, ok := r.data[name]
		if !ok {
			continue
		}
		token, err := uniqueToken(t.Fields[name], v)
		if err != nil {
			return err
		}
		tokens[name] = token
	}

	err := r.Batch(ctx, func(ctx context.Context) error {
		w := r.Writer()
		if err := w.Del(ctx, keys...); err != nil {
			return err
		}
		for _, name := range t.UniqueOrder {
			if token, ok := tokens[name]; ok {
				if err := w.HDel(ctx, t.UniqueKeys[name], token); err != nil {
					return err
				}
			}
		}
		return w.ZRem(ctx, t.IndexKey, r.pk)
	})
	if err != nil {
		return err
	}

	r.model.store.log.Debug("record deleted", slog.String("type", t.Name), slog.String("pk", r.pk))
	r.data = make(map[string]any)
	r.cache = make(map[string]any)
	return nil
}

// Reload refetches the embedded fields and drops every cached standalone and foreign field.
func (r *Record) Reload(ctx context.Context) error {
	h, err := r.Conn().HGetAll(ctx, r.model.typ.RecordKey(r.pk))
	if err != nil {
		return err
	}
	if err := r.fill(h); err != nil {
		return err
	}
	r.cache = make(map[string]any)
	return nil
}

// Proxy returns the command proxy of a standalone field.
func (r *Record) Proxy(name string) (*proxy.Command, error) {
	f, err := r.fieldOfClass(name, schema.ClassProxy)
	if err != nil || !r.Good() {
		return nil, err
	}
	return proxyField(r, f), nil
}

// AutoSet returns the synchronized set of an auto Set field.
func (r *Record) AutoSet(ctx context.Context, name string) (*auto.Set, error) {
	v, err := r.autoOf(ctx, name, schema.Set)
	if v == nil || err != nil {
		return nil, err
	}
	return v.(*auto.Set), nil
}

// AutoList returns the synchronized list of an auto List field.
func (r *Record) AutoList(ctx context.Context, name string) (*auto.List, error) {
	v, err := r.autoOf(ctx, name, schema.List)
	if v == nil || err != nil {
		return nil, err
	}
	return v.(*auto.List), nil
}

// AutoInt returns the synchronized counter of an auto Int field.
func (r *Record) AutoInt(ctx context.Context, name string) (*auto.Int, error) {
	v, err := r.autoOf(ctx, name, schema.Int)
	if v == nil || err != nil {
		return nil, err
	}
	return v.(*auto.Int), nil
}

// AutoString returns the synchronized string of an auto String field.
func (r *Record) AutoString(ctx context.Context, name string) (*auto.String, error) {
	v, err := r.autoOf(ctx, name, schema.String)
	if v == nil || err != nil {
		return nil, err
	}
	return v.(*auto.String), nil
}

func (r *Record) fieldOfClass(name string, class schema.Class) (*schema.Field, error) {
	f, err := r.field(name)
	if err != nil {
		return nil, err
	}
	if f.Class != class {
		return nil, errors.NewInvalidFieldAccessError(r.model.typ.Name, []string{name}, "field is "+f.Class.String()+", not "+class.String())
	}
	return f, nil
}

func (r *Record) autoOf(ctx context.Context, name string, kind schema.Kind) (any, error) {
	f, err := r.fieldOfClass(name, schema.ClassAuto)
	if err != nil {
		return nil, err
	}
	if f.Kind != kind {
		return nil, errors.NewInvalidFieldAccessError(r.model.typ.Name, []string{name}, "auto field holds "+f.Kind.String()+", not "+kind.String())
	}
	if !r.Good() {
		return nil, nil
	}
	return autoField(ctx, r, f)
}
