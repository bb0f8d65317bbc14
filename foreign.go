/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package recordstore

import (
	"context"
	"sync"

	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/schema"
)

type recordRef struct {
	typ string
	pk  string
}

// traversal holds every record materialized by one load, keyed by type and
// primary key. Records reached through foreign fields join the traversal of
// the record they were reached from, so a reference back to a record already
// in the traversal resolves to that instance instead of loading it again.
type traversal struct {
	mu      sync.Mutex
	records map[recordRef]*Record
}

func newTraversal() *traversal {
	return &traversal{records: make(map[recordRef]*Record)}
}

func (t *traversal) get(typ, pk string) (*Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.records[recordRef{typ, pk}]
	return r, ok
}

func (t *traversal) put(r *Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[recordRef{r.model.typ.Name, r.pk}] = r
}

// Foreign resolves a foreign field to the referenced record. It returns nil
// when the field is unset or the record is not good. A referenced record
// that does not exist is returned as a Record that is not good.
//
// The resolved record is cached on r. If the field was reassigned since, the
// cached record is replaced by the one the current value identifies.
func (r *Record) Foreign(ctx context.Context, name string) (*Record, error) {
	f, err := r.field(name)
	if err != nil {
		return nil, err
	}
	if !f.Foreign() {
		return nil, errors.NewInvalidFieldAccessError(r.model.typ.Name, []string{name}, "not a foreign field")
	}
	if !r.Good() {
		return nil, nil
	}
	pk, _ := r.data[name].(string)
	if pk == "" {
		return nil, nil
	}
	if cached, ok := r.cache[name].(*Record); ok && cached.pk == pk {
		return cached, nil
	}

	target, err := r.model.store.Model(f.References)
	if err != nil {
		return nil, err
	}
	ref, err := target.load(ctx, pk, r.trav)
	if err != nil {
		return nil, err
	}
	r.cache[name] = ref
	return ref, nil
}

// cacheForeign records an assigned record as the resolved value of f.
// Assigning a primary key only drops the cached record.
func (r *Record) cacheForeign(f *schema.Field, v any) {
	ref, ok := v.(*Record)
	if !ok {
		delete(r.cache, f.Name)
		return
	}
	r.cache[f.Name] = ref
	if ref.Good() {
		r.trav.put(ref)
	}
}
