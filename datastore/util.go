/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"fmt"
	"strconv"
)

// Int64 converts a script or command result to an integer.
func Int64(v any) (int64, error) {
	switch tv := v.(type) {
	case int64:
		return tv, nil
	case int:
		return int64(tv), nil
	case bool:
		if tv {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseInt(tv, 10, 64)
	case []byte:
		return strconv.ParseInt(string(tv), 10, 64)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("unexpected result type %T", v)
	}
}

// ListBounds converts inclusive LRANGE style indexes, which may be negative,
// into a half-open slice range over a list of length n.
func ListBounds(n int, start, stop int64) (lo, hi int, ok bool) {
	size := int64(n)
	if start < 0 {
		start += size
	}
	if stop < 0 {
		stop += size
	}
	if start < 0 {
		start = 0
	}
	if stop >= size {
		stop = size - 1
	}
	if start > stop || start >= size {
		return 0, 0, false
	}
	return int(start), int(stop) + 1, true
}

// Arg renders a command argument the way the store receives it.
func Arg(v any) string {
	switch tv := v.(type) {
	case string:
		return tv
	case []byte:
		return string(tv)
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
