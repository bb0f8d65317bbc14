/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package redisstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/suparena/recordstore/datastore"
)

// pipeline buffers writes in a go-redis pipeline. Commands are queued
// without a round trip, so every Writer method returns nil until Exec.
type pipeline struct {
	pipe redis.Pipeliner
}

var _ datastore.Pipeline = (*pipeline)(nil)

func (p *pipeline) Len() int { return p.pipe.Len() }

func (p *pipeline) Discard() { p.pipe.Discard() }

// Exec sends the buffered commands. Nil replies, such as a pop from an
// empty list, are not failures.
func (p *pipeline) Exec(ctx context.Context) error {
	if p.pipe.Len() == 0 {
		return nil
	}
	cmds, err := p.pipe.Exec(ctx)
	if err == nil || !errors.Is(err, redis.Nil) {
		return err
	}
	for _, cmd := range cmds {
		if err := cmd.Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
	}
	return nil
}

func (p *pipeline) Set(ctx context.Context, key, value string) error {
	p.pipe.Set(ctx, key, value, 0)
	return nil
}

func (p *pipeline) Del(ctx context.Context, keys ...string) error {
	p.pipe.Del(ctx, keys...)
	return nil
}

func (p *pipeline) IncrBy(ctx context.Context, key string, delta int64) error {
	p.pipe.IncrBy(ctx, key, delta)
	return nil
}

func (p *pipeline) HSet(ctx context.Context, key string, values map[string]string) error {
	if len(values) > 0 {
		p.pipe.HSet(ctx, key, pairs(values)...)
	}
	return nil
}

func (p *pipeline) HDel(ctx context.Context, key string, fields ...string) error {
	p.pipe.HDel(ctx, key, fields...)
	return nil
}

func (p *pipeline) SAdd(ctx context.Context, key string, members ...string) error {
	p.pipe.SAdd(ctx, key, strs(members)...)
	return nil
}

func (p *pipeline) SRem(ctx context.Context, key string, members ...string) error {
	p.pipe.SRem(ctx, key, strs(members)...)
	return nil
}

func (p *pipeline) LPush(ctx context.Context, key string, values ...string) error {
	p.pipe.LPush(ctx, key, strs(values)...)
	return nil
}

func (p *pipeline) RPush(ctx context.Context, key string, values ...string) error {
	p.pipe.RPush(ctx, key, strs(values)...)
	return nil
}

func (p *pipeline) LPop(ctx context.Context, key string) error {
	p.pipe.LPop(ctx, key)
	return nil
}

func (p *pipeline) RPop(ctx context.Context, key string) error {
	p.pipe.RPop(ctx, key)
	return nil
}

func (p *pipeline) LRem(ctx context.Context, key string, count int64, value string) error {
	p.pipe.LRem(ctx, key, count, value)
	return nil
}

func (p *pipeline) ZRem(ctx context.Context, key string, members ...string) error {
	p.pipe.ZRem(ctx, key, strs(members)...)
	return nil
}
