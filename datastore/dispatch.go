/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnknownCommand is returned by Dispatch for commands it cannot map.
var ErrUnknownCommand = errors.New("unknown command")

type handler func(ctx context.Context, c Commands, key string, args []string) (any, error)

// commandTable maps command names to typed Commands calls.
var commandTable = map[string]struct {
	minArgs int
	fn      handler
}{
	"GET": {0, func(ctx context.Context, c Commands, key string, _ []string) (any, error) {
		v, ok, err := c.Get(ctx, key)
		if err != nil || !ok {
			return nil, err
		}
		return v, nil
	}},
	"SET": {1, func(ctx context.Context, c Commands, key string, args []string) (any, error) {
		return "OK", c.Set(ctx, key, args[0])
	}},
	"DEL": {0, func(ctx context.Context, c Commands, key string, args []string) (any, error) {
		return nil, c.Del(ctx, append([]string{key}, args...)...)
	}},
	"INCR": {0, func(ctx context.Context, c Commands, key string, _ []string) (any, error) {
		return c.Incr(ctx, key, 1)
	}},
	"DECR": {0, func(ctx context.Context, c Commands, key string, _ []string) (any, error) {
		return c.Incr(ctx, key, -1)
	}},
	"INCRBY": {1, func(ctx context.Context, c Commands, key string, args []string) (any, error) {
		d, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, err
		}
		return c.Incr(ctx, key, d)
	}},
	"DECRBY": {1, func(ctx context.Context, c Commands, key string, args []string) (any, error) {
		d, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, err
		}
		return c.Incr(ctx, key, -d)
	}},
	"HGET": {1, func(ctx context.Context, c Commands, key string, args []string) (any, error) {
		v, ok, err := c.HGet(ctx, key, args[0])
		if err != nil || !ok {
			return nil, err
		}
		return v, nil
	}},
	"HGETALL": {0, func(ctx context.Context, c Commands, key string, _ []string) (any, error) {
		return c.HGetAll(ctx, key)
	}},
	"HKEYS": {0, func(ctx context.Context, c Commands, key string, _ []string) (any, error) {
		m, err := c.HGetAll(ctx, key)
		if err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		return keys, nil
	}},
	"HSET": {2, func(ctx context.Context, c Commands, key string, args []string) (any, error) {
		if len(args)%2 != 0 {
			return nil, fmt.Errorf("HSET: odd number of field/value arguments")
		}
		values := make(map[string]string, len(args)/2)
		for i := 0; i < len(args); i += 2 {
			values[args[i]] = args[i+1]
		}
		return nil, c.HSet(ctx, key, values)
	}},
	"HDEL": {1, func(ctx context.Context, c Commands, key string, args []string) (any, error) {
		return nil, c.HDel(ctx, key, args...)
	}},
	"SADD": {1, func(ctx context.Context, c Commands, key string, args []string) (any, error) {
		return nil, c.SAdd(ctx, key, args...)
	}},
	"SREM": {1, func(ctx context.Context, c Commands, key string, args []string) (any, error) {
		return nil, c.SRem(ctx, key, args...)
	}},
	"SMEMBERS": {0, func(ctx context.Context, c Commands, key string, _ []string) (any, error) {
		return c.SMembers(ctx, key)
	}},
	"SCARD": {0, func(ctx context.Context, c Commands, key string, _ []string) (any, error) {
		m, err := c.SMembers(ctx, key)
		return int64(len(m)), err
	}},
	"LPUSH": {1, func(ctx context.Context, c Commands, key string, args []string) (any, error) {
		return nil, c.LPush(ctx, key, args...)
	}},
	"RPUSH": {1, func(ctx context.Context, c Commands, key string, args []string) (any, error) {
		return nil, c.RPush(ctx, key, args...)
	}},
	"LPOP": {0, func(ctx context.Context, c Commands, key string, _ []string) (any, error) {
		return popEnd(ctx, c, key, 0)
	}},
	"RPOP": {0, func(ctx context.Context, c Commands, key string, _ []string) (any, error) {
		return popEnd(ctx, c, key, -1)
	}},
	"LRANGE": {2, func(ctx context.Context, c Commands, key string, args []string) (any, error) {
		start, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, err
		}
		stop, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return nil, err
		}
		return c.LRange(ctx, key, start, stop)
	}},
	"LLEN": {0, func(ctx context.Context, c Commands, key string, _ []string) (any, error) {
		l, err := c.LRange(ctx, key, 0, -1)
		return int64(len(l)), err
	}},
	"LREM": {2, func(ctx context.Context, c Commands, key string, args []string) (any, error) {
		count, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, err
		}
		return nil, c.LRem(ctx, key, count, args[1])
	}},
	"ZRANGEBYSCORE": {2, func(ctx context.Context, c Commands, key string, args []string) (any, error) {
		r := ScoreRange{}
		var err error
		if r.Min, err = ParseScore(args[0]); err != nil {
			return nil, err
		}
		if r.Max, err = ParseScore(args[1]); err != nil {
			return nil, err
		}
		if len(args) == 5 && strings.EqualFold(args[2], "LIMIT") {
			if r.Offset, err = strconv.ParseInt(args[3], 10, 64); err != nil {
				return nil, err
			}
			if r.Count, err = strconv.ParseInt(args[4], 10, 64); err != nil {
				return nil, err
			}
		}
		return c.ZRangeByScore(ctx, key, r)
	}},
	"ZCARD": {0, func(ctx context.Context, c Commands, key string, _ []string) (any, error) {
		return c.ZCard(ctx, key)
	}},
	"ZREM": {1, func(ctx context.Context, c Commands, key string, args []string) (any, error) {
		return nil, c.ZRem(ctx, key, args...)
	}},
}

// popEnd reads then removes one end of a list. It is not atomic; backends
// with a native pop should not route through it.
func popEnd(ctx context.Context, c Commands, key string, idx int64) (any, error) {
	l, err := c.LRange(ctx, key, idx, idx)
	if err != nil || len(l) == 0 {
		return nil, err
	}
	if idx == 0 {
		err = c.LPop(ctx, key)
	} else {
		err = c.RPop(ctx, key)
	}
	if err != nil {
		return nil, err
	}
	return l[0], nil
}

// Dispatch executes a command given as a name followed by a key and
// arguments against typed Commands. Backends without a generic command
// channel use it to implement Conn.Do.
func Dispatch(ctx context.Context, c Commands, args ...any) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("command needs a name and a key")
	}
	name := strings.ToUpper(Arg(args[0]))
	h, ok := commandTable[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	rest := make([]string, 0, len(args)-2)
	for _, a := range args[2:] {
		rest = append(rest, Arg(a))
	}
	if len(rest) < h.minArgs {
		return nil, fmt.Errorf("%s: wrong number of arguments", name)
	}
	return h.fn(ctx, c, Arg(args[1]), rest)
}

// ParseScore parses a score bound, accepting -inf and +inf.
func ParseScore(s string) (float64, error) {
	switch strings.ToLower(s) {
	case "-inf":
		return math.Inf(-1), nil
	case "+inf", "inf":
		return math.Inf(1), nil
	}
	return strconv.ParseFloat(s, 64)
}

// FormatScore renders a score bound, using -inf and +inf for infinities.
func FormatScore(f float64) string {
	switch {
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsInf(f, 1):
		return "+inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
