/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"
	"math"
)

// Names of the atomic scripts every backend provides.
const (
	ScriptPrimaryKeyClaim   = "primary_key_claim"
	ScriptUniquenessClaim   = "uniqueness_claim"
	ScriptUniquenessRelease = "uniqueness_release"
)

// ScoreRange selects members of an ordered set by score, inclusive on both ends.
// Count <= 0 means no limit.
type ScoreRange struct {
	Min     float64
	Max     float64
	Offset  int64
	Count   int64
	Reverse bool
}

// FullRange selects every member in ascending order.
func FullRange() ScoreRange {
	return ScoreRange{Min: math.Inf(-1), Max: math.Inf(1)}
}

// Reader holds the commands that observe the store.
// Missing keys are reported as found == false or an empty result, never as an error.
type Reader interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	HGet(ctx context.Context, key, field string) (value string, found bool, err error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZRangeByScore(ctx context.Context, key string, r ScoreRange) ([]string, error)
	ZCard(ctx context.Context, key string) (int64, error)
}

// Writer holds the mutating commands. Every Writer method may be buffered.
type Writer interface {
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, keys ...string) error
	IncrBy(ctx context.Context, key string, delta int64) error
	HSet(ctx context.Context, key string, values map[string]string) error
	HDel(ctx context.Context, key string, fields ...string) error
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	LPush(ctx context.Context, key string, values ...string) error
	RPush(ctx context.Context, key string, values ...string) error
	LPop(ctx context.Context, key string) error
	RPop(ctx context.Context, key string) error
	LRem(ctx context.Context, key string, count int64, value string) error
	ZRem(ctx context.Context, key string, members ...string) error
}

// Commands is a store that executes every command immediately.
type Commands interface {
	Reader
	Writer

	// Incr adds delta to the integer at key and returns the new value.
	Incr(ctx context.Context, key string, delta int64) (int64, error)
}

// Conn is a connection to the store.
type Conn interface {
	Commands

	// Do executes an arbitrary command, e.g. Do(ctx, "SADD", key, "a").
	Do(ctx context.Context, args ...any) (any, error)

	// LoadScript makes the named script available for Eval.
	LoadScript(ctx context.Context, name string) error

	// Eval executes a named script atomically and returns its single result.
	Eval(ctx context.Context, name string, keys []string, args ...any) (any, error)

	// Pipeline returns a new buffer of commands executed together on Exec.
	Pipeline() Pipeline

	// Encoding is the text encoding values are exchanged in, or "" when
	// values are raw byte sequences.
	Encoding() string
}

// Pipeline buffers Writer commands. Buffered commands are not visible to any
// reader until Exec returns.
type Pipeline interface {
	Writer

	// Len returns the number of buffered commands.
	Len() int

	// Exec executes the buffered commands in order and empties the buffer.
	Exec(ctx context.Context) error

	// Discard drops the buffered commands.
	Discard()
}
