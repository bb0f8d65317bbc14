/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package redisstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/suparena/recordstore/datastore"
)

//go:embed scripts/*.lua
var scriptFS embed.FS

// scriptSources maps script names to their embedded source files.
var scriptSources = map[string]string{
	datastore.ScriptPrimaryKeyClaim:   "scripts/primary_key_claim.lua",
	datastore.ScriptUniquenessClaim:   "scripts/uniqueness_claim.lua",
	datastore.ScriptUniquenessRelease: "scripts/uniqueness_release.lua",
}

// ErrUnknownScript is returned for script names without an embedded source.
var ErrUnknownScript = errors.New("redisstore: unknown script")

// Options configures New.
type Options struct {
	// Addrs is a single address for a standalone server, or several for a cluster.
	Addrs        []string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Encoding is the text encoding values are stored in, "" for raw bytes.
	Encoding string
}

// Conn is a datastore.Conn backed by a Redis client.
type Conn struct {
	client   redis.UniversalClient
	encoding string
	scripts  map[string]*redis.Script
}

var _ datastore.Conn = (*Conn)(nil)

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, opts Options) (*Conn, error) {
	if len(opts.Addrs) == 0 {
		return nil, fmt.Errorf("redisstore: no address configured")
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        opts.Addrs,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redisstore: ping %v: %w", opts.Addrs, err)
	}
	return Wrap(client, opts.Encoding)
}

// Wrap builds a Conn on an existing client.
func Wrap(client redis.UniversalClient, encoding string) (*Conn, error) {
	scripts := make(map[string]*redis.Script, len(scriptSources))
	for name, file := range scriptSources {
		src, err := scriptFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("redisstore: read script %s: %w", name, err)
		}
		scripts[name] = redis.NewScript(string(src))
	}
	return &Conn{client: client, encoding: encoding, scripts: scripts}, nil
}

// Client returns the underlying client.
func (c *Conn) Client() redis.UniversalClient {
	return c.client
}

// Close closes the underlying client.
func (c *Conn) Close() error {
	return c.client.Close()
}

// Encoding implements datastore.Conn.
func (c *Conn) Encoding() string {
	return c.encoding
}

// found converts a redis.Nil reply into found == false.
func found(err error) (bool, error) {
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return err == nil, err
}

func strs(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func pairs(values map[string]string) []any {
	out := make([]any, 0, 2*len(values))
	for k, v := range values {
		out = append(out, k, v)
	}
	return out
}

func rangeBy(r datastore.ScoreRange) *redis.ZRangeBy {
	by := &redis.ZRangeBy{
		Min:    datastore.FormatScore(r.Min),
		Max:    datastore.FormatScore(r.Max),
		Offset: r.Offset,
		Count:  r.Count,
	}
	// LIMIT with a count of 0 selects nothing; -1 means all remaining.
	if by.Offset > 0 && by.Count <= 0 {
		by.Count = -1
	}
	return by
}

func (c *Conn) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, key).Result()
	ok, err := found(err)
	return v, ok, err
}

func (c *Conn) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := c.client.HGet(ctx, key, field).Result()
	ok, err := found(err)
	return v, ok, err
}

func (c *Conn) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return c.client.HGetAll(ctx, key).Result()
}

func (c *Conn) SMembers(ctx context.Context, key string) ([]string, error) {
	return c.client.SMembers(ctx, key).Result()
}

func (c *Conn) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return c.client.LRange(ctx, key, start, stop).Result()
}

func (c *Conn) ZRangeByScore(ctx context.Context, key string, r datastore.ScoreRange) ([]string, error) {
	if r.Reverse {
		return c.client.ZRevRangeByScore(ctx, key, rangeBy(r)).Result()
	}
	return c.client.ZRangeByScore(ctx, key, rangeBy(r)).Result()
}

func (c *Conn) ZCard(ctx context.Context, key string) (int64, error) {
	return c.client.ZCard(ctx, key).Result()
}

func (c *Conn) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	return c.client.IncrBy(ctx, key, delta).Result()
}

func (c *Conn) Set(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, key, value, 0).Err()
}

func (c *Conn) Del(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

func (c *Conn) IncrBy(ctx context.Context, key string, delta int64) error {
	return c.client.IncrBy(ctx, key, delta).Err()
}

func (c *Conn) HSet(ctx context.Context, key string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	return c.client.HSet(ctx, key, pairs(values)...).Err()
}

func (c *Conn) HDel(ctx context.Context, key string, fields ...string) error {
	return c.client.HDel(ctx, key, fields...).Err()
}

func (c *Conn) SAdd(ctx context.Context, key string, members ...string) error {
	return c.client.SAdd(ctx, key, strs(members)...).Err()
}

func (c *Conn) SRem(ctx context.Context, key string, members ...string) error {
	return c.client.SRem(ctx, key, strs(members)...).Err()
}

func (c *Conn) LPush(ctx context.Context, key string, values ...string) error {
	return c.client.LPush(ctx, key, strs(values)...).Err()
}

func (c *Conn) RPush(ctx context.Context, key string, values ...string) error {
	return c.client.RPush(ctx, key, strs(values)...).Err()
}

func (c *Conn) LPop(ctx context.Context, key string) error {
	_, err := found(c.client.LPop(ctx, key).Err())
	return err
}

func (c *Conn) RPop(ctx context.Context, key string) error {
	_, err := found(c.client.RPop(ctx, key).Err())
	return err
}

func (c *Conn) LRem(ctx context.Context, key string, count int64, value string) error {
	return c.client.LRem(ctx, key, count, value).Err()
}

func (c *Conn) ZRem(ctx context.Context, key string, members ...string) error {
	return c.client.ZRem(ctx, key, strs(members)...).Err()
}

// Do sends the command as is. A nil reply is returned as nil.
func (c *Conn) Do(ctx context.Context, args ...any) (any, error) {
	v, err := c.client.Do(ctx, args...).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return v, err
}

// LoadScript loads an embedded script into the server's script cache.
func (c *Conn) LoadScript(ctx context.Context, name string) error {
	s, ok := c.scripts[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownScript, name)
	}
	if err := s.Load(ctx, c.client).Err(); err != nil {
		return fmt.Errorf("redisstore: load script %s: %w", name, err)
	}
	return nil
}

// Eval runs a script with EVALSHA, sending the source again if the server
// does not know it.
func (c *Conn) Eval(ctx context.Context, name string, keys []string, args ...any) (any, error) {
	s, ok := c.scripts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScript, name)
	}
	v, err := s.Run(ctx, c.client, keys, args...).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return v, err
}

// Pipeline implements datastore.Conn.
func (c *Conn) Pipeline() datastore.Pipeline {
	return &pipeline{pipe: c.client.Pipeline()}
}
