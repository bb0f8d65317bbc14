/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package codec converts field values between their native Go form and the
// strings exchanged with the store.
//
// Native forms per kind:
//
//	String    string
//	Bytes     []byte
//	Int       int64 (any Go integer is accepted on encode)
//	Float     float64
//	Bool      bool
//	DateTime  strfmt.DateTime (time.Time is accepted on encode), RFC 3339
//	          with nanoseconds on the wire
//	Set       []string, sorted and without duplicates
//	List      []string
//	Pairs     []Pair
//
// Embedded containers are stored as JSON. Standalone containers are stored
// as a store set, list or hash; see Members and Hash.
//
// Text is transcoded to the store's declared encoding. An empty encoding
// means the store exchanges raw bytes and strings pass through unchanged.
package codec

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-openapi/strfmt"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/suparena/recordstore/schema"
)

// Pair is one entry of a Pairs value.
type Pair struct {
	Key   string
	Value string
}

// MarshalJSON writes the pair as a two element array
func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.Key, p.Value})
}

// UnmarshalJSON reads a two element array
func (p *Pair) UnmarshalJSON(b []byte) error {
	var kv [2]string
	if err := json.Unmarshal(b, &kv); err != nil {
		return err
	}
	p.Key, p.Value = kv[0], kv[1]
	return nil
}

// Codec encodes and decodes field values for one store encoding.
type Codec struct {
	name string
	enc  encoding.Encoding
}

// New returns a Codec for the named text encoding. "" selects raw bytes;
// any name known to the WHATWG encoding index is accepted.
func New(name string) (*Codec, error) {
	c := &Codec{name: name}
	if name == "" {
		return c, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("codec: unsupported encoding %q: %w", name, err)
	}
	if canonical, _ := htmlindex.Name(enc); canonical != "utf-8" {
		c.enc = enc
	}
	return c, nil
}

// Raw returns a Codec for stores that exchange raw bytes
func Raw() *Codec {
	return &Codec{}
}

// Name returns the encoding name the Codec was built with.
func (c *Codec) Name() string {
	return c.name
}

// EncodeText converts native text to the store encoding.
func (c *Codec) EncodeText(s string) (string, error) {
	if c.enc == nil {
		return s, nil
	}
	out, err := c.enc.NewEncoder().String(s)
	if err != nil {
		return "", fmt.Errorf("codec: encode %s: %w", c.name, err)
	}
	return out, nil
}

// DecodeText converts store text to native text.
func (c *Codec) DecodeText(s string) (string, error) {
	if c.enc == nil {
		return s, nil
	}
	out, err := c.enc.NewDecoder().String(s)
	if err != nil {
		return "", fmt.Errorf("codec: decode %s: %w", c.name, err)
	}
	return out, nil
}

// EncodeTexts applies EncodeText to every element.
func (c *Codec) EncodeTexts(in []string) ([]string, error) {
	out := make([]string, len(in))
	for i, s := range in {
		v, err := c.EncodeText(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// DecodeTexts applies DecodeText to every element.
func (c *Codec) DecodeTexts(in []string) ([]string, error) {
	out := make([]string, len(in))
	for i, s := range in {
		v, err := c.DecodeText(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Encode converts a native value to its embedded wire form.
func (c *Codec) Encode(kind schema.Kind, v any) (string, error) {
	switch kind {
	case schema.String:
		s, ok := v.(string)
		if !ok {
			return "", mismatch(kind, v)
		}
		return c.EncodeText(s)
	case schema.Bytes:
		switch tv := v.(type) {
		case []byte:
			return string(tv), nil
		case string:
			return tv, nil
		}
		return "", mismatch(kind, v)
	case schema.Int:
		n, err := ToInt64(v)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	case schema.Float:
		switch tv := v.(type) {
		case float64:
			return strconv.FormatFloat(tv, 'g', -1, 64), nil
		case float32:
			return strconv.FormatFloat(float64(tv), 'g', -1, 32), nil
		}
		if n, err := ToInt64(v); err == nil {
			return strconv.FormatInt(n, 10), nil
		}
		return "", mismatch(kind, v)
	case schema.Bool:
		b, ok := v.(bool)
		if !ok {
			return "", mismatch(kind, v)
		}
		return strconv.FormatBool(b), nil
	case schema.DateTime:
		switch tv := v.(type) {
		case strfmt.DateTime:
			return time.Time(tv).Format(time.RFC3339Nano), nil
		case time.Time:
			return tv.Format(time.RFC3339Nano), nil
		}
		return "", mismatch(kind, v)
	case schema.Set, schema.List:
		items, err := ToStrings(v)
		if err != nil {
			return "", err
		}
		if kind == schema.Set {
			items = normalizeSet(items)
		}
		b, err := json.Marshal(items)
		if err != nil {
			return "", err
		}
		return c.EncodeText(string(b))
	case schema.Pairs:
		pairs, err := ToPairs(v)
		if err != nil {
			return "", err
		}
		b, err := json.Marshal(pairs)
		if err != nil {
			return "", err
		}
		return c.EncodeText(string(b))
	}
	return "", fmt.Errorf("codec: unknown kind %s", kind)
}

// Decode converts an embedded wire value to its native form.
func (c *Codec) Decode(kind schema.Kind, s string) (any, error) {
	switch kind {
	case schema.String:
		return c.DecodeText(s)
	case schema.Bytes:
		return []byte(s), nil
	case schema.Int:
		return strconv.ParseInt(s, 10, 64)
	case schema.Float:
		return strconv.ParseFloat(s, 64)
	case schema.Bool:
		return strconv.ParseBool(s)
	case schema.DateTime:
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return strfmt.DateTime(t), nil
		}
		return strfmt.ParseDateTime(s)
	case schema.Set, schema.List:
		text, err := c.DecodeText(s)
		if err != nil {
			return nil, err
		}
		items := []string{}
		if err := json.Unmarshal([]byte(text), &items); err != nil {
			return nil, fmt.Errorf("codec: decode %s: %w", kind, err)
		}
		if kind == schema.Set {
			return normalizeSet(items), nil
		}
		return items, nil
	case schema.Pairs:
		text, err := c.DecodeText(s)
		if err != nil {
			return nil, err
		}
		pairs := []Pair{}
		if err := json.Unmarshal([]byte(text), &pairs); err != nil {
			return nil, fmt.Errorf("codec: decode %s: %w", kind, err)
		}
		return pairs, nil
	}
	return nil, fmt.Errorf("codec: unknown kind %s", kind)
}

// Members converts a Set or List value to encoded members, in store order.
func (c *Codec) Members(kind schema.Kind, v any) ([]string, error) {
	items, err := ToStrings(v)
	if err != nil {
		return nil, err
	}
	if kind == schema.Set {
		items = normalizeSet(items)
	}
	return c.EncodeTexts(items)
}

// FromMembers converts fetched members back to a native Set or List.
func (c *Codec) FromMembers(kind schema.Kind, members []string) ([]string, error) {
	items, err := c.DecodeTexts(members)
	if err != nil {
		return nil, err
	}
	if kind == schema.Set {
		return normalizeSet(items), nil
	}
	return items, nil
}

// Hash converts a Pairs value to an encoded store hash. Later pairs win on duplicate keys.
func (c *Codec) Hash(v any) (map[string]string, error) {
	pairs, err := ToPairs(v)
	if err != nil {
		return nil, err
	}
	h := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, err := c.EncodeText(p.Key)
		if err != nil {
			return nil, err
		}
		val, err := c.EncodeText(p.Value)
		if err != nil {
			return nil, err
		}
		h[k] = val
	}
	return h, nil
}

// FromHash converts a fetched store hash to Pairs ordered by key.
func (c *Codec) FromHash(h map[string]string) ([]Pair, error) {
	keys := maps.Keys(h)
	slices.Sort(keys)
	pairs := make([]Pair, 0, len(keys))
	for _, k := range keys {
		dk, err := c.DecodeText(k)
		if err != nil {
			return nil, err
		}
		dv, err := c.DecodeText(h[k])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, Pair{Key: dk, Value: dv})
	}
	return pairs, nil
}

func normalizeSet(items []string) []string {
	out := append([]string{}, items...)
	slices.Sort(out)
	return slices.Compact(out)
}

func mismatch(kind schema.Kind, v any) error {
	return fmt.Errorf("codec: %T is not a %s value", v, kind)
}
