/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package auto

import (
	"context"

	"golang.org/x/exp/slices"

	"github.com/suparena/recordstore/codec"
	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/schema"
)

const listContainer = "list"

// List mirrors a remote list of strings. Only the two ends can be changed;
// the store has no efficient positional insert or replace.
type List struct {
	key   string
	b     Backend
	c     *codec.Codec
	items []string
}

// LoadList fetches the remote list at key.
func LoadList(ctx context.Context, key string, b Backend, c *codec.Codec) (*List, error) {
	raw, err := b.Conn().LRange(ctx, key, 0, -1)
	if err != nil {
		return nil, err
	}
	items, err := c.FromMembers(schema.List, raw)
	if err != nil {
		return nil, err
	}
	return NewList(key, b, c, items), nil
}

// NewList wraps items already known to equal the remote list.
func NewList(key string, b Backend, c *codec.Codec, items []string) *List {
	return &List{key: key, b: b, c: c, items: slices.Clone(items)}
}

// Key returns the remote key.
func (l *List) Key() string { return l.key }

// Len returns the number of elements.
func (l *List) Len() int { return len(l.items) }

// Items returns a copy of the elements.
func (l *List) Items() []string {
	if l.items == nil {
		return []string{}
	}
	return slices.Clone(l.items)
}

// Index returns the element at i; negative indexes count from the end.
func (l *List) Index(i int) (string, error) {
	j, err := l.position(i)
	if err != nil {
		return "", err
	}
	return l.items[j], nil
}

// Contains reports whether v is an element.
func (l *List) Contains(v string) bool {
	return slices.Contains(l.items, v)
}

func (l *List) position(i int) (int, error) {
	j := i
	if j < 0 {
		j += len(l.items)
	}
	if j < 0 || j >= len(l.items) {
		return 0, errors.NewIndexOutOfRangeError(l.key, i, len(l.items))
	}
	return j, nil
}

func (l *List) push(ctx context.Context, left bool, vs []string) error {
	if len(vs) == 0 {
		return nil
	}
	enc, err := l.c.EncodeTexts(vs)
	if err != nil {
		return err
	}
	if left {
		return l.b.Writer().LPush(ctx, l.key, enc...)
	}
	return l.b.Writer().RPush(ctx, l.key, enc...)
}

// Append adds v at the end.
func (l *List) Append(ctx context.Context, v string) error {
	return l.Extend(ctx, v)
}

// Extend adds vs at the end, in order.
func (l *List) Extend(ctx context.Context, vs ...string) error {
	if err := l.push(ctx, false, vs); err != nil {
		return err
	}
	l.items = append(l.items, vs...)
	return nil
}

// Insert adds v before index i. Only the head (0) and the end (Len) are supported.
func (l *List) Insert(ctx context.Context, i int, v string) error {
	switch i {
	case 0:
		if err := l.push(ctx, true, []string{v}); err != nil {
			return err
		}
		l.items = append([]string{v}, l.items...)
		return nil
	case len(l.items):
		return l.Append(ctx, v)
	}
	return unsupported(listContainer, "insert")
}

// Pop removes and returns the element at i. Only the head (0) and the tail
// (-1 or Len-1) are supported.
func (l *List) Pop(ctx context.Context, i int) (string, error) {
	if len(l.items) == 0 {
		return "", errors.NewIndexOutOfRangeError(l.key, i, 0)
	}
	last := len(l.items) - 1
	switch {
	case i == 0:
		if err := l.b.Writer().LPop(ctx, l.key); err != nil {
			return "", err
		}
		v := l.items[0]
		l.items = l.items[1:]
		return v, nil
	case i == -1 || i == last:
		if err := l.b.Writer().RPop(ctx, l.key); err != nil {
			return "", err
		}
		v := l.items[last]
		l.items = l.items[:last]
		return v, nil
	}
	if _, err := l.position(i); err != nil {
		return "", err
	}
	return "", unsupported(listContainer, "pop")
}

// Delete removes the element at i, with the same restrictions as Pop.
func (l *List) Delete(ctx context.Context, i int) error {
	_, err := l.Pop(ctx, i)
	return err
}

// Remove removes the first occurrence of v, returning a MissingElementError when absent.
func (l *List) Remove(ctx context.Context, v string) error {
	at := slices.Index(l.items, v)
	if at < 0 {
		return errors.NewMissingElementError(l.key, v)
	}
	enc, err := l.c.EncodeText(v)
	if err != nil {
		return err
	}
	if err := l.b.Writer().LRem(ctx, l.key, 1, enc); err != nil {
		return err
	}
	l.items = slices.Delete(l.items, at, at+1)
	return nil
}

// SetIndex replaces the element at i. Only the head and the tail are supported.
func (l *List) SetIndex(ctx context.Context, i int, v string) error {
	j, err := l.position(i)
	if err != nil {
		return err
	}
	last := len(l.items) - 1
	switch {
	case j == 0:
		if err := l.b.Writer().LPop(ctx, l.key); err != nil {
			return err
		}
		if err := l.push(ctx, true, []string{v}); err != nil {
			// The head is already gone remotely.
			l.items = l.items[1:]
			return err
		}
		l.items[0] = v
		return nil
	case j == last:
		if err := l.b.Writer().RPop(ctx, l.key); err != nil {
			return err
		}
		if err := l.push(ctx, false, []string{v}); err != nil {
			l.items = l.items[:last]
			return err
		}
		l.items[last] = v
		return nil
	}
	return unsupported(listContainer, "set")
}

// Repeat replaces the list with n copies of itself. n < 1 clears it.
func (l *List) Repeat(ctx context.Context, n int) error {
	if n < 1 {
		return l.Clear(ctx)
	}
	if n == 1 || len(l.items) == 0 {
		return nil
	}
	extra := make([]string, 0, len(l.items)*(n-1))
	for i := 1; i < n; i++ {
		extra = append(extra, l.items...)
	}
	return l.Extend(ctx, extra...)
}

// Clear deletes the remote list.
func (l *List) Clear(ctx context.Context) error {
	if err := l.b.Writer().Del(ctx, l.key); err != nil {
		return err
	}
	l.items = nil
	return nil
}

// Slice always fails; a slice would not be synchronized.
func (l *List) Slice(i, j int) ([]string, error) {
	return nil, unsupported(listContainer, "slice")
}

// Sort always fails; there is no in-place remote sort.
func (l *List) Sort(ctx context.Context) error {
	return unsupported(listContainer, "sort")
}

// Reverse always fails; there is no in-place remote reverse.
func (l *List) Reverse(ctx context.Context) error {
	return unsupported(listContainer, "reverse")
}
