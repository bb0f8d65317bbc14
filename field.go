/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package recordstore

import (
	"context"
	"fmt"

	"github.com/suparena/recordstore/auto"
	"github.com/suparena/recordstore/codec"
	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/proxy"
	"github.com/suparena/recordstore/schema"
)

// accessor implements field access for one field class.
type accessor struct {
	get func(ctx context.Context, r *Record, f *schema.Field) (any, error)
	set func(ctx context.Context, r *Record, f *schema.Field, v any) error
	del func(ctx context.Context, r *Record, f *schema.Field) error
}

var accessors map[schema.Class]accessor

func init() {
	accessors = map[schema.Class]accessor{
		schema.ClassPrimaryKey: {get: getEmbedded, set: setPrimaryKey, del: delPrimaryKey},
		schema.ClassUnique:     {get: getEmbedded, set: setUnique, del: delUnique},
		schema.ClassPlain:      {get: getEmbedded, set: setEmbedded, del: delEmbedded},
		schema.ClassProxy:      {get: getProxy, set: setStandalone, del: delStandalone},
		schema.ClassAuto:       {get: autoField, set: setStandalone, del: delStandalone},
	}
}

func getEmbedded(_ context.Context, r *Record, f *schema.Field) (any, error) {
	return r.data[f.Name], nil
}

func setPrimaryKey(_ context.Context, r *Record, f *schema.Field, v any) error {
	if s, ok := v.(string); ok && s == r.pk {
		return nil
	}
	return errors.NewInvalidFieldAccessError(r.model.typ.Name, []string{f.Name}, "the primary key cannot be changed")
}

func delPrimaryKey(_ context.Context, r *Record, f *schema.Field) error {
	return errors.NewInvalidFieldAccessError(r.model.typ.Name, []string{f.Name}, "the primary key cannot be deleted, delete the record instead")
}

// setEmbedded writes the record hash and the in-memory value together.
func setEmbedded(ctx context.Context, r *Record, f *schema.Field, v any) error {
	enc, native, err := r.model.encodeEmbedded(f, v)
	if err != nil {
		return err
	}
	if err := r.Writer().HSet(ctx, r.model.typ.RecordKey(r.pk), map[string]string{f.Name: enc}); err != nil {
		return err
	}
	r.data[f.Name] = native
	if f.Foreign() {
		r.cacheForeign(f, v)
	}
	return nil
}

func delEmbedded(ctx context.Context, r *Record, f *schema.Field) error {
	if err := r.Writer().HDel(ctx, r.model.typ.RecordKey(r.pk), f.Name); err != nil {
		return err
	}
	delete(r.data, f.Name)
	delete(r.cache, f.Name)
	return nil
}

// setUnique claims the new value before touching the record hash. The old
// reverse lookup entry is released once the claim holds. Inside a batch the
// claim is remembered so that a dropped batch can give it back.
func setUnique(ctx context.Context, r *Record, f *schema.Field, v any) error {
	t := r.model.typ
	enc, native, err := r.model.encodeEmbedded(f, v)
	if err != nil {
		return err
	}
	token, err := uniqueToken(f, native)
	if err != nil {
		return err
	}
	var oldToken string
	old, hadOld := r.data[f.Name]
	if hadOld {
		if oldToken, err = uniqueToken(f, old); err != nil {
			return err
		}
	}

	pos, err := r.model.claimUnique(ctx, r.pk, []string{t.UniqueKeys[f.Name]}, []string{token})
	if err != nil {
		return err
	}
	if pos > 0 {
		return errors.NewDuplicateEntryError(t.Name, f.Name, native)
	}

	claimed := !hadOld || oldToken != token
	if claimed && r.pipe != nil {
		r.claims = append(r.claims, uniqueClaim{field: f.Name, key: t.UniqueKeys[f.Name], token: token})
	}

	w := r.Writer()
	if err := w.HSet(ctx, t.RecordKey(r.pk), map[string]string{f.Name: enc}); err != nil {
		if claimed && r.pipe == nil {
			r.model.releaseUnique(ctx, r.pk, []string{t.UniqueKeys[f.Name]}, []string{token})
		}
		return err
	}
	if hadOld && oldToken != token {
		if err := w.HDel(ctx, t.UniqueKeys[f.Name], oldToken); err != nil {
			return err
		}
	}
	r.data[f.Name] = native
	if f.Foreign() {
		r.cacheForeign(f, v)
	}
	return nil
}

func delUnique(ctx context.Context, r *Record, f *schema.Field) error {
	t := r.model.typ
	if old, ok := r.data[f.Name]; ok {
		token, err := uniqueToken(f, old)
		if err != nil {
			return err
		}
		if err := r.Writer().HDel(ctx, t.UniqueKeys[f.Name], token); err != nil {
			return err
		}
	}
	return delEmbedded(ctx, r, f)
}

func proxyField(r *Record, f *schema.Field) *proxy.Command {
	if p, ok := r.cache[f.Name].(*proxy.Command); ok {
		return p
	}
	p := proxy.New(r.model.typ.FieldKey(f.Name, r.pk), r.Conn())
	r.cache[f.Name] = p
	return p
}

func getProxy(_ context.Context, r *Record, f *schema.Field) (any, error) {
	return proxyField(r, f), nil
}

// autoField returns the cached container of an auto field, fetching it on first access.
func autoField(ctx context.Context, r *Record, f *schema.Field) (any, error) {
	if c, ok := r.cache[f.Name]; ok {
		return c, nil
	}
	key := r.model.typ.FieldKey(f.Name, r.pk)
	var (
		c   any
		err error
	)
	switch f.Kind {
	case schema.Set:
		c, err = auto.LoadSet(ctx, key, r, r.model.codec)
	case schema.List:
		c, err = auto.LoadList(ctx, key, r, r.model.codec)
	case schema.Int:
		c, err = auto.LoadInt(ctx, key, r)
	case schema.String:
		c, err = auto.LoadString(ctx, key, r, r.model.codec)
	default:
		return nil, fmt.Errorf("no synchronized container for kind %s", f.Kind)
	}
	if err != nil {
		return nil, err
	}
	r.cache[f.Name] = c
	return c, nil
}

// container reports whether v is already the synchronized container of f.
func container(f *schema.Field, key string, v any) bool {
	switch c := v.(type) {
	case *auto.Set:
		return f.Kind == schema.Set && c.Key() == key
	case *auto.List:
		return f.Kind == schema.List && c.Key() == key
	case *auto.Int:
		return f.Kind == schema.Int && c.Key() == key
	case *auto.String:
		return f.Kind == schema.String && c.Key() == key
	case *proxy.Command:
		return f.Class == schema.ClassProxy && c.Key() == key
	}
	return false
}

// setStandalone replaces the remote value and caches a fresh container. A
// value that already is the field's container is cached without I/O.
func setStandalone(ctx context.Context, r *Record, f *schema.Field, v any) error {
	key := r.model.typ.FieldKey(f.Name, r.pk)
	if container(f, key, v) {
		r.cache[f.Name] = v
		return nil
	}
	save, err := r.model.prepareSave(f, v)
	if err != nil {
		return err
	}
	if err := r.Batch(ctx, func(ctx context.Context) error {
		return save(ctx, r.Writer(), key)
	}); err != nil {
		return err
	}

	if f.Class != schema.ClassAuto {
		delete(r.cache, f.Name)
		return nil
	}
	c, err := wrap(r, f, key, v)
	if err != nil {
		return err
	}
	r.cache[f.Name] = c
	return nil
}

// wrap builds the container for a value that was just saved.
func wrap(r *Record, f *schema.Field, key string, v any) (any, error) {
	switch f.Kind {
	case schema.Set, schema.List:
		items, err := codec.ToStrings(v)
		if err != nil {
			return nil, err
		}
		if f.Kind == schema.Set {
			return auto.NewSet(key, r, r.model.codec, items), nil
		}
		return auto.NewList(key, r, r.model.codec, items), nil
	case schema.Int:
		n, err := codec.ToInt64(v)
		if err != nil {
			return nil, err
		}
		return auto.NewInt(key, r, n), nil
	case schema.String:
		s, ok := v.(string)
		if !ok {
			return nil, errors.NewValidationError(f.Name, fmt.Sprintf("%T is not a string", v))
		}
		return auto.NewString(key, r, r.model.codec, s), nil
	}
	return nil, fmt.Errorf("no synchronized container for kind %s", f.Kind)
}

func delStandalone(ctx context.Context, r *Record, f *schema.Field) error {
	if err := r.Writer().Del(ctx, r.model.typ.FieldKey(f.Name, r.pk)); err != nil {
		return err
	}
	delete(r.cache, f.Name)
	return nil
}
