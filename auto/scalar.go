/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package auto

import (
	"context"
	"fmt"
	"strconv"

	"github.com/suparena/recordstore/codec"
)

// Int mirrors a remote integer counter. A missing key reads as 0.
type Int struct {
	key   string
	b     Backend
	value int64
}

// LoadInt fetches the remote counter at key.
func LoadInt(ctx context.Context, key string, b Backend) (*Int, error) {
	raw, ok, err := b.Conn().Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var v int64
	if ok {
		if v, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("auto: %s is not an integer: %w", key, err)
		}
	}
	return NewInt(key, b, v), nil
}

// NewInt wraps a value already known to equal the remote counter.
func NewInt(key string, b Backend, v int64) *Int {
	return &Int{key: key, b: b, value: v}
}

// Key returns the remote key.
func (n *Int) Key() string { return n.key }

// Value returns the mirrored value.
func (n *Int) Value() int64 { return n.value }

// Incr adds delta remotely and returns the new value. Outside a batch the
// value is the one the store reports, so concurrent increments are reflected.
func (n *Int) Incr(ctx context.Context, delta int64) (int64, error) {
	w := n.b.Writer()
	if inc, ok := w.(incrementer); ok {
		v, err := inc.Incr(ctx, n.key, delta)
		if err != nil {
			return 0, err
		}
		n.value = v
		return v, nil
	}
	if err := w.IncrBy(ctx, n.key, delta); err != nil {
		return 0, err
	}
	n.value += delta
	return n.value, nil
}

// Decr subtracts delta remotely and returns the new value.
func (n *Int) Decr(ctx context.Context, delta int64) (int64, error) {
	return n.Incr(ctx, -delta)
}

// Set replaces the remote value.
func (n *Int) Set(ctx context.Context, v int64) error {
	if err := n.b.Writer().Set(ctx, n.key, strconv.FormatInt(v, 10)); err != nil {
		return err
	}
	n.value = v
	return nil
}

// Mul always fails; the store has no atomic multiply.
func (n *Int) Mul(ctx context.Context, factor int64) error {
	return unsupported("int", "mul")
}

// String mirrors a remote string value.
type String struct {
	key     string
	b       Backend
	c       *codec.Codec
	value   string
	present bool
}

// LoadString fetches the remote string at key.
func LoadString(ctx context.Context, key string, b Backend, c *codec.Codec) (*String, error) {
	raw, ok, err := b.Conn().Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s := &String{key: key, b: b, c: c, present: ok}
	if ok {
		if s.value, err = c.DecodeText(raw); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewString wraps a value already known to equal the remote string.
func NewString(key string, b Backend, c *codec.Codec, v string) *String {
	return &String{key: key, b: b, c: c, value: v, present: true}
}

// Key returns the remote key.
func (s *String) Key() string { return s.key }

// Value returns the mirrored value, "" when the key is missing.
func (s *String) Value() string { return s.value }

// Present reports whether the remote key exists.
func (s *String) Present() bool { return s.present }

// Set replaces the remote value.
func (s *String) Set(ctx context.Context, v string) error {
	enc, err := s.c.EncodeText(v)
	if err != nil {
		return err
	}
	if err := s.b.Writer().Set(ctx, s.key, enc); err != nil {
		return err
	}
	s.value, s.present = v, true
	return nil
}
