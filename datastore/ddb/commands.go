/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/exp/slices"

	"github.com/suparena/recordstore/datastore"
)

// ErrNotInteger mirrors the store error for arithmetic on a non-integer value.
var ErrNotInteger = errors.New("value is not an integer or out of range")

func (c *Conn) getItem(ctx context.Context, pk, sk string) (*item, error) {
	out, err := c.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:      &c.table,
		Key:            keyOf(pk, sk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return &it, nil
}

func (c *Conn) Get(ctx context.Context, key string) (string, bool, error) {
	it, err := c.getItem(ctx, key, skValue)
	if err != nil || it == nil {
		return "", false, err
	}
	if it.N != nil {
		return strconv.FormatInt(*it.N, 10), true, nil
	}
	return string(it.V), true, nil
}

func (c *Conn) HGet(ctx context.Context, key, field string) (string, bool, error) {
	it, err := c.getItem(ctx, key, prefixHash+field)
	if err != nil || it == nil {
		return "", false, err
	}
	return string(it.V), true, nil
}

func (c *Conn) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	items, err := c.queryPrefix(ctx, key, prefixHash, true, 0)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(items))
	for _, it := range items {
		out[member(it.SK, prefixHash)] = string(it.V)
	}
	return out, nil
}

func (c *Conn) SMembers(ctx context.Context, key string) ([]string, error) {
	items, err := c.queryPrefix(ctx, key, prefixSet, true, 0)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, member(it.SK, prefixSet))
	}
	return out, nil
}

func (c *Conn) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	items, err := c.queryPrefix(ctx, key, prefixList, true, 0)
	if err != nil {
		return nil, err
	}
	lo, hi, ok := datastore.ListBounds(len(items), start, stop)
	if !ok {
		return []string{}, nil
	}
	out := make([]string, 0, hi-lo)
	for _, it := range items[lo:hi] {
		out = append(out, string(it.V))
	}
	return out, nil
}

// ZRangeByScore reads the whole ordered set and selects in memory.
func (c *Conn) ZRangeByScore(ctx context.Context, key string, r datastore.ScoreRange) ([]string, error) {
	items, err := c.queryPrefix(ctx, key, prefixZSet, true, 0)
	if err != nil {
		return nil, err
	}
	type scored struct {
		member string
		score  float64
	}
	hits := make([]scored, 0, len(items))
	for _, it := range items {
		if it.S == nil {
			continue
		}
		if *it.S >= r.Min && *it.S <= r.Max {
			hits = append(hits, scored{member(it.SK, prefixZSet), *it.S})
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
	out := make([]string, 0, end-start)
	for _, h := range hits[start:end] {
		out = append(out, h.member)
	}
	return out, nil
}

func (c *Conn) ZCard(ctx context.Context, key string) (int64, error) {
	return c.countPrefix(ctx, key, prefixZSet)
}

// Incr adds delta to a counter with an atomic ADD. A value written with Set
// is converted to a counter first, guarded by a condition on the old value.
func (c *Conn) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	for attempt := 0; attempt < incrAttempts; attempt++ {
		out, err := c.client.UpdateItem(ctx, &sdk.UpdateItemInput{
			TableName:           &c.table,
			Key:                 keyOf(key, skValue),
			UpdateExpression:    aws.String("ADD #n :d"),
			ConditionExpression: aws.String("attribute_not_exists(#v)"),
			ExpressionAttributeNames: map[string]string{
				"#n": attrCounter,
				"#v": attrValue,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":d": &types.AttributeValueMemberN{Value: strconv.FormatInt(delta, 10)},
			},
			ReturnValues: types.ReturnValueUpdatedNew,
		})
		if err == nil {
			var n int64
			if err := attributevalue.Unmarshal(out.Attributes[attrCounter], &n); err != nil {
				return 0, fmt.Errorf("failed to unmarshal counter: %w", err)
			}
			return n, nil
		}
		var cfe *types.ConditionalCheckFailedException
		if !errors.As(err, &cfe) {
			return 0, fmt.Errorf("UpdateItem failed: %w", err)
		}
		if err := c.toCounter(ctx, key); err != nil {
			return 0, err
		}
	}
	return 0, fmt.Errorf("ddb: counter %q kept changing", key)
}

// toCounter replaces the string value at key with an equal counter.
func (c *Conn) toCounter(ctx context.Context, key string) error {
	it, err := c.getItem(ctx, key, skValue)
	if err != nil || it == nil || it.V == nil {
		return err
	}
	n, err := strconv.ParseInt(string(it.V), 10, 64)
	if err != nil {
		return ErrNotInteger
	}
	_, err = c.client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:           &c.table,
		Key:                 keyOf(key, skValue),
		UpdateExpression:    aws.String("SET #n = :n REMOVE #v"),
		ConditionExpression: aws.String("#v = :old"),
		ExpressionAttributeNames: map[string]string{
			"#n": attrCounter,
			"#v": attrValue,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":n":   &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)},
			":old": &types.AttributeValueMemberB{Value: it.V},
		},
	})
	var cfe *types.ConditionalCheckFailedException
	if err != nil && !errors.As(err, &cfe) {
		return fmt.Errorf("UpdateItem failed: %w", err)
	}
	return nil
}

func (c *Conn) Set(ctx context.Context, key, value string) error {
	_, err := c.client.PutItem(ctx, &sdk.PutItemInput{
		TableName: &c.table,
		Item:      valueItem(key, skValue, value),
	})
	if err != nil {
		return fmt.Errorf("PutItem failed: %w", err)
	}
	return nil
}

// Del removes every item of each key's partition.
func (c *Conn) Del(ctx context.Context, keys ...string) error {
	var requests []types.WriteRequest
	for _, key := range unique(keys) {
		items, err := c.queryPrefix(ctx, key, "", true, 0)
		if err != nil {
			return err
		}
		for _, it := range items {
			requests = append(requests, deleteRequest(it.PK, it.SK))
		}
	}
	return c.writeBatch(ctx, requests)
}

func (c *Conn) IncrBy(ctx context.Context, key string, delta int64) error {
	_, err := c.Incr(ctx, key, delta)
	return err
}

func (c *Conn) HSet(ctx context.Context, key string, values map[string]string) error {
	requests := make([]types.WriteRequest, 0, len(values))
	for field, v := range values {
		requests = append(requests, putRequest(valueItem(key, prefixHash+field, v)))
	}
	return c.writeBatch(ctx, requests)
}

func (c *Conn) deletePrefixed(ctx context.Context, key, prefix string, names []string) error {
	requests := make([]types.WriteRequest, 0, len(names))
	for _, name := range unique(names) {
		requests = append(requests, deleteRequest(key, prefix+name))
	}
	return c.writeBatch(ctx, requests)
}

func (c *Conn) HDel(ctx context.Context, key string, fields ...string) error {
	return c.deletePrefixed(ctx, key, prefixHash, fields)
}

func (c *Conn) SAdd(ctx context.Context, key string, members ...string) error {
	requests := make([]types.WriteRequest, 0, len(members))
	for _, m := range unique(members) {
		requests = append(requests, putRequest(keyOf(key, prefixSet+m)))
	}
	return c.writeBatch(ctx, requests)
}

func (c *Conn) SRem(ctx context.Context, key string, members ...string) error {
	return c.deletePrefixed(ctx, key, prefixSet, members)
}

// end returns the position of the first or last list element.
func (c *Conn) end(ctx context.Context, key string, last bool) (*item, int64, error) {
	items, err := c.queryPrefix(ctx, key, prefixList, !last, 1)
	if err != nil || len(items) == 0 {
		return nil, 0, err
	}
	pos, err := listPos(items[0].SK)
	if err != nil {
		return nil, 0, err
	}
	return &items[0], pos, nil
}

// push places values before the head or after the tail. Positions are read
// then written, so concurrent pushes to one list may interleave.
func (c *Conn) push(ctx context.Context, key string, values []string, left bool) error {
	it, pos, err := c.end(ctx, key, !left)
	if err != nil {
		return err
	}
	if it == nil {
		pos = 0
		if left {
			pos = 1
		} else {
			pos = -1
		}
	}
	requests := make([]types.WriteRequest, 0, len(values))
	for _, v := range values {
		if left {
			pos--
		} else {
			pos++
		}
		requests = append(requests, putRequest(valueItem(key, listSK(pos), v)))
	}
	return c.writeBatch(ctx, requests)
}

func (c *Conn) LPush(ctx context.Context, key string, values ...string) error {
	return c.push(ctx, key, values, true)
}

func (c *Conn) RPush(ctx context.Context, key string, values ...string) error {
	return c.push(ctx, key, values, false)
}

func (c *Conn) pop(ctx context.Context, key string, last bool) error {
	it, _, err := c.end(ctx, key, last)
	if err != nil || it == nil {
		return err
	}
	_, err = c.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName: &c.table,
		Key:       keyOf(it.PK, it.SK),
	})
	if err != nil {
		return fmt.Errorf("failed to delete item in DynamoDB: %w", err)
	}
	return nil
}

func (c *Conn) LPop(ctx context.Context, key string) error {
	return c.pop(ctx, key, false)
}

func (c *Conn) RPop(ctx context.Context, key string) error {
	return c.pop(ctx, key, true)
}

// LRem removes up to |count| elements equal to value, from the head when
// count is positive and from the tail when negative; 0 removes all.
func (c *Conn) LRem(ctx context.Context, key string, count int64, value string) error {
	items, err := c.queryPrefix(ctx, key, prefixList, count >= 0, 0)
	if err != nil {
		return err
	}
	limit := count
	if limit < 0 {
		limit = -limit
	}
	var requests []types.WriteRequest
	for _, it := range items {
		if string(it.V) != value {
			continue
		}
		requests = append(requests, deleteRequest(it.PK, it.SK))
		if limit > 0 && int64(len(requests)) == limit {
			break
		}
	}
	return c.writeBatch(ctx, requests)
}

func (c *Conn) ZRem(ctx context.Context, key string, members ...string) error {
	return c.deletePrefixed(ctx, key, prefixZSet, members)
}

func unique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
