/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock

import (
	"context"
)

// pipeline buffers Writer calls against a Store until Exec.
type pipeline struct {
	store *Store
	ops   []func(ctx context.Context) error
}

func (p *pipeline) add(op func(ctx context.Context) error) error {
	p.ops = append(p.ops, op)
	return nil
}

func (p *pipeline) Len() int { return len(p.ops) }

func (p *pipeline) Discard() { p.ops = nil }

// Exec runs the buffered commands in order. Like a store pipeline it is not a
// transaction: it stops at the first failing command and earlier commands stay applied.
func (p *pipeline) Exec(ctx context.Context) error {
	ops := p.ops
	p.ops = nil
	for _, op := range ops {
		if err := op(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *pipeline) Set(_ context.Context, key, value string) error {
	return p.add(func(ctx context.Context) error { return p.store.Set(ctx, key, value) })
}

func (p *pipeline) Del(_ context.Context, keys ...string) error {
	return p.add(func(ctx context.Context) error { return p.store.Del(ctx, keys...) })
}

func (p *pipeline) IncrBy(_ context.Context, key string, delta int64) error {
	return p.add(func(ctx context.Context) error { return p.store.IncrBy(ctx, key, delta) })
}

func (p *pipeline) HSet(_ context.Context, key string, values map[string]string) error {
	return p.add(func(ctx context.Context) error { return p.store.HSet(ctx, key, values) })
}

func (p *pipeline) HDel(_ context.Context, key string, fields ...string) error {
	return p.add(func(ctx context.Context) error { return p.store.HDel(ctx, key, fields...) })
}

func (p *pipeline) SAdd(_ context.Context, key string, members ...string) error {
	return p.add(func(ctx context.Context) error { return p.store.SAdd(ctx, key, members...) })
}

func (p *pipeline) SRem(_ context.Context, key string, members ...string) error {
	return p.add(func(ctx context.Context) error { return p.store.SRem(ctx, key, members...) })
}

func (p *pipeline) LPush(_ context.Context, key string, values ...string) error {
	return p.add(func(ctx context.Context) error { return p.store.LPush(ctx, key, values...) })
}

func (p *pipeline) RPush(_ context.Context, key string, values ...string) error {
	return p.add(func(ctx context.Context) error { return p.store.RPush(ctx, key, values...) })
}

func (p *pipeline) LPop(_ context.Context, key string) error {
	return p.add(func(ctx context.Context) error { return p.store.LPop(ctx, key) })
}

func (p *pipeline) RPop(_ context.Context, key string) error {
	return p.add(func(ctx context.Context) error { return p.store.RPop(ctx, key) })
}

func (p *pipeline) LRem(_ context.Context, key string, count int64, value string) error {
	return p.add(func(ctx context.Context) error { return p.store.LRem(ctx, key, count, value) })
}

func (p *pipeline) ZRem(_ context.Context, key string, members ...string) error {
	return p.add(func(ctx context.Context) error { return p.store.ZRem(ctx, key, members...) })
}
