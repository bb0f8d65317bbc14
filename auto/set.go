/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package auto

import (
	"context"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/suparena/recordstore/codec"
	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/schema"
)

// Set mirrors a remote set of strings.
type Set struct {
	key   string
	b     Backend
	c     *codec.Codec
	items map[string]struct{}
}

// LoadSet fetches the remote set at key.
func LoadSet(ctx context.Context, key string, b Backend, c *codec.Codec) (*Set, error) {
	raw, err := b.Conn().SMembers(ctx, key)
	if err != nil {
		return nil, err
	}
	members, err := c.FromMembers(schema.Set, raw)
	if err != nil {
		return nil, err
	}
	return NewSet(key, b, c, members), nil
}

// NewSet wraps members already known to equal the remote set.
func NewSet(key string, b Backend, c *codec.Codec, members []string) *Set {
	s := &Set{key: key, b: b, c: c, items: make(map[string]struct{}, len(members))}
	for _, m := range members {
		s.items[m] = struct{}{}
	}
	return s
}

// Key returns the remote key.
func (s *Set) Key() string { return s.key }

// Len returns the number of members.
func (s *Set) Len() int { return len(s.items) }

// Contains reports whether v is a member.
func (s *Set) Contains(v string) bool {
	_, ok := s.items[v]
	return ok
}

// Members returns the members in sorted order.
func (s *Set) Members() []string {
	out := maps.Keys(s.items)
	slices.Sort(out)
	return out
}

func (s *Set) sadd(ctx context.Context, vs []string) error {
	if len(vs) == 0 {
		return nil
	}
	enc, err := s.c.EncodeTexts(vs)
	if err != nil {
		return err
	}
	return s.b.Writer().SAdd(ctx, s.key, enc...)
}

func (s *Set) srem(ctx context.Context, vs []string) error {
	if len(vs) == 0 {
		return nil
	}
	enc, err := s.c.EncodeTexts(vs)
	if err != nil {
		return err
	}
	return s.b.Writer().SRem(ctx, s.key, enc...)
}

// Add adds members.
func (s *Set) Add(ctx context.Context, vs ...string) error {
	if err := s.sadd(ctx, vs); err != nil {
		return err
	}
	for _, v := range vs {
		s.items[v] = struct{}{}
	}
	return nil
}

// Remove removes v, returning a MissingElementError when it is not a member.
func (s *Set) Remove(ctx context.Context, v string) error {
	if !s.Contains(v) {
		return errors.NewMissingElementError(s.key, v)
	}
	return s.Discard(ctx, v)
}

// Discard removes v if it is a member.
func (s *Set) Discard(ctx context.Context, v string) error {
	if err := s.srem(ctx, []string{v}); err != nil {
		return err
	}
	delete(s.items, v)
	return nil
}

// Pop removes and returns the smallest member. ok is false for an empty set.
func (s *Set) Pop(ctx context.Context) (v string, ok bool, err error) {
	if len(s.items) == 0 {
		return "", false, nil
	}
	v = slices.Min(maps.Keys(s.items))
	if err := s.srem(ctx, []string{v}); err != nil {
		return "", false, err
	}
	delete(s.items, v)
	return v, true, nil
}

// Clear deletes the remote set.
func (s *Set) Clear(ctx context.Context) error {
	if err := s.b.Writer().Del(ctx, s.key); err != nil {
		return err
	}
	s.items = make(map[string]struct{})
	return nil
}

// Update adds the members of every other set.
func (s *Set) Update(ctx context.Context, others ...[]string) error {
	return s.Add(ctx, union(others)...)
}

// DifferenceUpdate removes the members of every other set.
func (s *Set) DifferenceUpdate(ctx context.Context, others ...[]string) error {
	drop := union(others)
	if err := s.srem(ctx, drop); err != nil {
		return err
	}
	for _, v := range drop {
		delete(s.items, v)
	}
	return nil
}

// IntersectionUpdate keeps only members present in every other set.
func (s *Set) IntersectionUpdate(ctx context.Context, others ...[]string) error {
	if len(others) == 0 {
		return nil
	}
	keep := make(map[string]struct{}, len(s.items))
	for v := range s.items {
		keep[v] = struct{}{}
	}
	for _, o := range others {
		in := make(map[string]struct{}, len(o))
		for _, v := range o {
			in[v] = struct{}{}
		}
		for v := range keep {
			if _, ok := in[v]; !ok {
				delete(keep, v)
			}
		}
	}
	var drop []string
	for _, v := range s.Members() {
		if _, ok := keep[v]; !ok {
			drop = append(drop, v)
		}
	}
	if err := s.srem(ctx, drop); err != nil {
		return err
	}
	for _, v := range drop {
		delete(s.items, v)
	}
	return nil
}

// SymmetricDifferenceUpdate keeps members in exactly one of s and other.
func (s *Set) SymmetricDifferenceUpdate(ctx context.Context, other []string) error {
	other = union([][]string{other})
	var common, added []string
	for _, v := range other {
		if s.Contains(v) {
			common = append(common, v)
		} else {
			added = append(added, v)
		}
	}
	// Add all of other, then drop what was shared before the call.
	if err := s.sadd(ctx, other); err != nil {
		return err
	}
	if err := s.srem(ctx, common); err != nil {
		return err
	}
	for _, v := range common {
		delete(s.items, v)
	}
	for _, v := range added {
		s.items[v] = struct{}{}
	}
	return nil
}

// union returns the distinct members of all sets, sorted.
func union(sets [][]string) []string {
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, v := range set {
			seen[v] = struct{}{}
		}
	}
	out := maps.Keys(seen)
	slices.Sort(out)
	return out
}
