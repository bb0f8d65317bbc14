/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package codec

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ToInt64 accepts any Go integer.
func ToInt64(v any) (int64, error) {
	switch tv := v.(type) {
	case int:
		return int64(tv), nil
	case int8:
		return int64(tv), nil
	case int16:
		return int64(tv), nil
	case int32:
		return int64(tv), nil
	case int64:
		return tv, nil
	case uint:
		return int64(tv), nil
	case uint8:
		return int64(tv), nil
	case uint16:
		return int64(tv), nil
	case uint32:
		return int64(tv), nil
	case uint64:
		if tv > 1<<63-1 {
			return 0, fmt.Errorf("codec: %d overflows int64", tv)
		}
		return int64(tv), nil
	}
	return 0, fmt.Errorf("codec: %T is not an integer", v)
}

// ToStrings accepts []string, []any of strings, or a string set.
func ToStrings(v any) ([]string, error) {
	switch tv := v.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return slices.Clone(tv), nil
	case []any:
		out := make([]string, 0, len(tv))
		for _, e := range tv {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("codec: collection element %T is not a string", e)
			}
			out = append(out, s)
		}
		return out, nil
	case map[string]struct{}:
		out := maps.Keys(tv)
		slices.Sort(out)
		return out, nil
	case map[string]bool:
		out := make([]string, 0, len(tv))
		for k, in := range tv {
			if in {
				out = append(out, k)
			}
		}
		slices.Sort(out)
		return out, nil
	}
	return nil, fmt.Errorf("codec: %T is not a string collection", v)
}

// ToPairs accepts []Pair or map[string]string; maps are ordered by key.
func ToPairs(v any) ([]Pair, error) {
	switch tv := v.(type) {
	case nil:
		return []Pair{}, nil
	case []Pair:
		return slices.Clone(tv), nil
	case map[string]string:
		keys := maps.Keys(tv)
		slices.Sort(keys)
		out := make([]Pair, 0, len(keys))
		for _, k := range keys {
			out = append(out, Pair{Key: k, Value: tv[k]})
		}
		return out, nil
	}
	return nil, fmt.Errorf("codec: %T is not a pairs value", v)
}
