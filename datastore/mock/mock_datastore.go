/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of datastore.Conn for testing
package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/suparena/recordstore/datastore"
)

// ErrWrongType mirrors the store error for commands against a key of another kind.
var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

// ErrNoScript is returned by Eval for a script that was never loaded.
var ErrNoScript = errors.New("NOSCRIPT No matching script")

type entry struct {
	str  *string
	hash map[string]string
	set  map[string]struct{}
	list []string
	zset map[string]float64
}

// Store is an in-memory datastore.Conn. Scripts run natively under the store lock,
// which gives them the same all-or-nothing behavior as server-side scripts.
type Store struct {
	mu       sync.Mutex
	data     map[string]*entry
	encoding string
	scripts  map[string]bool
	failures map[string]error
	calls    []string
}

var _ datastore.Conn = (*Store)(nil)

// New creates a new mock Store declaring utf-8 text encoding
func New() *Store {
	return &Store{
		data:     make(map[string]*entry),
		encoding: "utf-8",
		scripts:  make(map[string]bool),
		failures: make(map[string]error),
	}
}

// WithEncoding sets the declared text encoding; "" means raw bytes
func (m *Store) WithEncoding(enc string) *Store {
	m.encoding = enc
	return m
}

// WithFailure makes the named command (e.g. "HSET") return err. An empty name fails every command.
func (m *Store) WithFailure(command string, err error) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, strings.ToUpper(command))
	} else {
		m.failures[strings.ToUpper(command)] = err
	}
	return m
}

// Encoding returns the declared text encoding
func (m *Store) Encoding() string {
	return m.encoding
}

// record logs the call and returns an injected failure, if any. m.mu must be held.
func (m *Store) record(command string) error {
	m.calls = append(m.calls, command)
	if err, ok := m.failures[command]; ok {
		return err
	}
	return m.failures[""]
}

func (m *Store) lookup(key string, kind func(*entry) bool) (*entry, error) {
	e, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	if !kind(e) {
		return nil, ErrWrongType
	}
	return e, nil
}

func isString(e *entry) bool { return e.str != nil }
func isHash(e *entry) bool   { return e.hash != nil }
func isSet(e *entry) bool    { return e.set != nil }
func isList(e *entry) bool   { return e.list != nil }
func isZSet(e *entry) bool   { return e.zset != nil }

// create returns the entry at key, creating it with init when absent.
func (m *Store) create(key string, kind func(*entry) bool, init func() *entry) (*entry, error) {
	e, err := m.lookup(key, kind)
	if err != nil {
		return nil, err
	}
	if e == nil {
		e = init()
		m.data[key] = e
	}
	return e, nil
}

// prune removes an emptied container, as the store does.
func (m *Store) prune(key string, e *entry) {
	switch {
	case e.hash != nil && len(e.hash) == 0,
		e.set != nil && len(e.set) == 0,
		e.list != nil && len(e.list) == 0,
		e.zset != nil && len(e.zset) == 0:
		delete(m.data, key)
	}
}

// Get returns the string at key
func (m *Store) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GET"); err != nil {
		return "", false, err
	}

	e, err := m.lookup(key, isString)
	if err != nil || e == nil {
		return "", false, err
	}
	return *e.str, true, nil
}

// Set replaces the value at key with a string
func (m *Store) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SET"); err != nil {
		return err
	}

	m.data[key] = &entry{str: &value}
	return nil
}

// Del removes keys of any kind
func (m *Store) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("DEL"); err != nil {
		return err
	}

	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// IncrBy adds delta to the integer at key
func (m *Store) IncrBy(ctx context.Context, key string, delta int64) error {
	_, err := m.Incr(ctx, key, delta)
	return err
}

// Incr adds delta to the integer at key and returns the new value
func (m *Store) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("INCRBY"); err != nil {
		return 0, err
	}

	e, err := m.lookup(key, isString)
	if err != nil {
		return 0, err
	}
	var cur int64
	if e != nil {
		cur, err = strconv.ParseInt(*e.str, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("ERR value is not an integer or out of range")
		}
	}
	cur += delta
	s := strconv.FormatInt(cur, 10)
	m.data[key] = &entry{str: &s}
	return cur, nil
}

// HGet returns one field of the hash at key
func (m *Store) HGet(ctx context.Context, key, field string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("HGET"); err != nil {
		return "", false, err
	}

	e, err := m.lookup(key, isHash)
	if err != nil || e == nil {
		return "", false, err
	}
	v, ok := e.hash[field]
	return v, ok, nil
}

// HGetAll returns a copy of the hash at key
func (m *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("HGETALL"); err != nil {
		return nil, err
	}

	e, err := m.lookup(key, isHash)
	if err != nil {
		return nil, err
	}
	result := make(map[string]string)
	if e != nil {
		maps.Copy(result, e.hash)
	}
	return result, nil
}

// HSet sets fields of the hash at key
func (m *Store) HSet(ctx context.Context, key string, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("HSET"); err != nil {
		return err
	}

	if len(values) == 0 {
		return fmt.Errorf("ERR wrong number of arguments for 'hset' command")
	}
	e, err := m.create(key, isHash, func() *entry { return &entry{hash: map[string]string{}} })
	if err != nil {
		return err
	}
	maps.Copy(e.hash, values)
	return nil
}

// HDel removes fields of the hash at key
func (m *Store) HDel(ctx context.Context, key string, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("HDEL"); err != nil {
		return err
	}

	e, err := m.lookup(key, isHash)
	if err != nil || e == nil {
		return err
	}
	for _, f := range fields {
		delete(e.hash, f)
	}
	m.prune(key, e)
	return nil
}

// SAdd adds members to the set at key
func (m *Store) SAdd(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SADD"); err != nil {
		return err
	}

	if len(members) == 0 {
		return fmt.Errorf("ERR wrong number of arguments for 'sadd' command")
	}
	e, err := m.create(key, isSet, func() *entry { return &entry{set: map[string]struct{}{}} })
	if err != nil {
		return err
	}
	for _, v := range members {
		e.set[v] = struct{}{}
	}
	return nil
}

// SRem removes members from the set at key
func (m *Store) SRem(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SREM"); err != nil {
		return err
	}

	e, err := m.lookup(key, isSet)
	if err != nil || e == nil {
		return err
	}
	for _, v := range members {
		delete(e.set, v)
	}
	m.prune(key, e)
	return nil
}

// SMembers returns the members of the set at key in sorted order
func (m *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SMEMBERS"); err != nil {
		return nil, err
	}

	e, err := m.lookup(key, isSet)
	if err != nil || e == nil {
		return []string{}, err
	}
	members := maps.Keys(e.set)
	slices.Sort(members)
	return members, nil
}

func (m *Store) push(command, key string, values []string, left bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(command); err != nil {
		return err
	}

	if len(values) == 0 {
		return fmt.Errorf("ERR wrong number of arguments for '%s' command", strings.ToLower(command))
	}
	e, err := m.create(key, isList, func() *entry { return &entry{list: []string{}} })
	if err != nil {
		return err
	}
	if left {
		// Each value is pushed onto the head in turn.
		for _, v := range values {
			e.list = append([]string{v}, e.list...)
		}
	} else {
		e.list = append(e.list, values...)
	}
	return nil
}

// LPush prepends values to the list at key
func (m *Store) LPush(ctx context.Context, key string, values ...string) error {
	return m.push("LPUSH", key, values, true)
}

// RPush appends values to the list at key
func (m *Store) RPush(ctx context.Context, key string, values ...string) error {
	return m.push("RPUSH", key, values, false)
}

func (m *Store) pop(command, key string, left bool) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(command); err != nil {
		return "", false, err
	}

	e, err := m.lookup(key, isList)
	if err != nil || e == nil {
		return "", false, err
	}
	var v string
	if left {
		v, e.list = e.list[0], e.list[1:]
	} else {
		v, e.list = e.list[len(e.list)-1], e.list[:len(e.list)-1]
	}
	m.prune(key, e)
	return v, true, nil
}

// LPop removes the head of the list at key
func (m *Store) LPop(ctx context.Context, key string) error {
	_, _, err := m.pop("LPOP", key, true)
	return err
}

// RPop removes the tail of the list at key
func (m *Store) RPop(ctx context.Context, key string) error {
	_, _, err := m.pop("RPOP", key, false)
	return err
}

// LRange returns the inclusive range start..stop of the list at key
func (m *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("LRANGE"); err != nil {
		return nil, err
	}

	e, err := m.lookup(key, isList)
	if err != nil || e == nil {
		return []string{}, err
	}
	lo, hi, ok := datastore.ListBounds(len(e.list), start, stop)
	if !ok {
		return []string{}, nil
	}
	return slices.Clone(e.list[lo:hi]), nil
}

// LRem removes up to count occurrences of value from the head of the list
// (count > 0), from the tail (count < 0) or all of them (count == 0)
func (m *Store) LRem(ctx context.Context, key string, count int64, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("LREM"); err != nil {
		return err
	}

	e, err := m.lookup(key, isList)
	if err != nil || e == nil {
		return err
	}
	limit := count
	if limit < 0 {
		limit = -limit
	}
	drop := make(map[int]bool)
	for i := range e.list {
		j := i
		if count < 0 {
			j = len(e.list) - 1 - i
		}
		if e.list[j] == value && (limit == 0 || int64(len(drop)) < limit) {
			drop[j] = true
		}
	}
	kept := make([]string, 0, len(e.list)-len(drop))
	for i, v := range e.list {
		if !drop[i] {
			kept = append(kept, v)
		}
	}
	e.list = kept
	m.prune(key, e)
	return nil
}

// ZAddNX adds member with score unless it is present, reporting whether it was added
func (m *Store) ZAddNX(ctx context.Context, key string, score float64, member string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ZADD"); err != nil {
		return false, err
	}
	return m.zaddNX(key, score, member)
}

func (m *Store) zaddNX(key string, score float64, member string) (bool, error) {
	e, err := m.create(key, isZSet, func() *entry { return &entry{zset: map[string]float64{}} })
	if err != nil {
		return false, err
	}
	if _, ok := e.zset[member]; ok {
		return false, nil
	}
	e.zset[member] = score
	return true, nil
}

// ZRem removes members from the ordered set at key
func (m *Store) ZRem(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ZREM"); err != nil {
		return err
	}

	e, err := m.lookup(key, isZSet)
	if err != nil || e == nil {
		return err
	}
	for _, v := range members {
		delete(e.zset, v)
	}
	m.prune(key, e)
	return nil
}

// ZRangeByScore returns members with a score in r, ordered by score then member
func (m *Store) ZRangeByScore(ctx context.Context, key string, r datastore.ScoreRange) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ZRANGEBYSCORE"); err != nil {
		return nil, err
	}

	e, err := m.lookup(key, isZSet)
	if err != nil || e == nil {
		return []string{}, err
	}
	type scored struct {
		member string
		score  float64
	}
	var hits []scored
	for member, score := range e.zset {
		if score >= r.Min && score <= r.Max {
			hits = append(hits, scored{member, score})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score < hits[j].score
		}
		return hits[i].member < hits[j].member
	})
	if r.Reverse {
		slices.Reverse(hits)
	}
	start := int(math.Min(float64(r.Offset), float64(len(hits))))
	end := len(hits)
	if r.Count > 0 && start+int(r.Count) < end {
		end = start + int(r.Count)
	}
	result := make([]string, 0, end-start)
	for _, h := range hits[start:end] {
		result = append(result, h.member)
	}
	return result, nil
}

// ZScore returns the score of member in the ordered set at key
func (m *Store) ZScore(ctx context.Context, key, member string) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ZSCORE"); err != nil {
		return 0, false, err
	}

	e, err := m.lookup(key, isZSet)
	if err != nil || e == nil {
		return 0, false, err
	}
	s, ok := e.zset[member]
	return s, ok, nil
}

// ZCard returns the number of members of the ordered set at key
func (m *Store) ZCard(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ZCARD"); err != nil {
		return 0, err
	}

	e, err := m.lookup(key, isZSet)
	if err != nil || e == nil {
		return 0, err
	}
	return int64(len(e.zset)), nil
}

// Do executes an arbitrary command. LPOP and RPOP are answered natively so
// that they stay atomic; everything else goes through datastore.Dispatch.
func (m *Store) Do(ctx context.Context, args ...any) (any, error) {
	if len(args) >= 2 {
		switch strings.ToUpper(datastore.Arg(args[0])) {
		case "LPOP", "RPOP":
			v, ok, err := m.pop(strings.ToUpper(datastore.Arg(args[0])), datastore.Arg(args[1]), strings.EqualFold(datastore.Arg(args[0]), "LPOP"))
			if err != nil || !ok {
				return nil, err
			}
			return v, nil
		}
	}
	return datastore.Dispatch(ctx, m, args...)
}

// LoadScript makes a natively implemented script available
func (m *Store) LoadScript(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SCRIPT"); err != nil {
		return err
	}

	switch name {
	case datastore.ScriptPrimaryKeyClaim, datastore.ScriptUniquenessClaim, datastore.ScriptUniquenessRelease:
		m.scripts[name] = true
		return nil
	}
	return fmt.Errorf("mock: no implementation for script %q", name)
}

// Eval runs a loaded script
func (m *Store) Eval(ctx context.Context, name string, keys []string, args ...any) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("EVALSHA"); err != nil {
		return nil, err
	}

	if !m.scripts[name] {
		return nil, ErrNoScript
	}
	switch name {
	case datastore.ScriptPrimaryKeyClaim:
		return m.claimPrimaryKey(keys, args)
	case datastore.ScriptUniquenessClaim:
		return m.claimUnique(keys, args)
	case datastore.ScriptUniquenessRelease:
		return m.releaseUnique(keys, args)
	}
	return nil, ErrNoScript
}

func (m *Store) claimPrimaryKey(keys []string, args []any) (any, error) {
	if len(keys) != 1 || len(args) != 2 {
		return nil, fmt.Errorf("%s: expects 1 key and 2 arguments", datastore.ScriptPrimaryKeyClaim)
	}
	score, err := strconv.ParseFloat(datastore.Arg(args[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("%s: bad score: %w", datastore.ScriptPrimaryKeyClaim, err)
	}
	added, err := m.zaddNX(keys[0], score, datastore.Arg(args[1]))
	if err != nil {
		return nil, err
	}
	if added {
		return int64(1), nil
	}
	return int64(0), nil
}

func (m *Store) claimUnique(keys []string, args []any) (any, error) {
	pk, values, err := uniqueArgs(datastore.ScriptUniquenessClaim, keys, args)
	if err != nil {
		return nil, err
	}
	// Verify every slot before claiming any of them.
	for i, key := range keys {
		e, err := m.lookup(key, isHash)
		if err != nil {
			return nil, err
		}
		if e == nil {
			continue
		}
		if owner, ok := e.hash[values[i]]; ok && owner != pk {
			return int64(i + 1), nil
		}
	}
	for i, key := range keys {
		e, err := m.create(key, isHash, func() *entry { return &entry{hash: map[string]string{}} })
		if err != nil {
			return nil, err
		}
		e.hash[values[i]] = pk
	}
	return int64(0), nil
}

func (m *Store) releaseUnique(keys []string, args []any) (any, error) {
	pk, values, err := uniqueArgs(datastore.ScriptUniquenessRelease, keys, args)
	if err != nil {
		return nil, err
	}
	var released int64
	for i, key := range keys {
		e, err := m.lookup(key, isHash)
		if err != nil {
			return nil, err
		}
		if e == nil || e.hash[values[i]] != pk {
			continue
		}
		delete(e.hash, values[i])
		m.prune(key, e)
		released++
	}
	return released, nil
}

func uniqueArgs(script string, keys []string, args []any) (string, []string, error) {
	if len(args) != 2 {
		return "", nil, fmt.Errorf("%s: expects 2 arguments", script)
	}
	var values []string
	if err := json.Unmarshal([]byte(datastore.Arg(args[1])), &values); err != nil {
		return "", nil, fmt.Errorf("%s: bad values: %w", script, err)
	}
	if len(values) != len(keys) {
		return "", nil, fmt.Errorf("%s: %d keys but %d values", script, len(keys), len(values))
	}
	return datastore.Arg(args[0]), values, nil
}

// Pipeline returns a buffer of commands executed in order on Exec
func (m *Store) Pipeline() datastore.Pipeline {
	return &pipeline{store: m}
}

// Helper methods for testing

// Keys returns the sorted keys currently present
func (m *Store) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := maps.Keys(m.data)
	slices.Sort(keys)
	return keys
}

// Count returns the number of keys
func (m *Store) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Calls returns the commands issued so far, by name
func (m *Store) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// ResetCalls clears the command log
func (m *Store) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Clear removes all data
func (m *Store) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]*entry)
}
