/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"

	"github.com/suparena/recordstore/datastore"
)

// pipeline buffers Writer calls until Exec. Exec runs them in order and
// stops at the first failure; earlier writes stay applied.
type pipeline struct {
	conn *Conn
	ops  []func(ctx context.Context) error
}

var _ datastore.Pipeline = (*pipeline)(nil)

func (p *pipeline) add(op func(ctx context.Context) error) error {
	p.ops = append(p.ops, op)
	return nil
}

func (p *pipeline) Len() int { return len(p.ops) }

func (p *pipeline) Discard() { p.ops = nil }

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
	return p.add(func(ctx context.Context) error { return p.conn.Set(ctx, key, value) })
}

func (p *pipeline) Del(_ context.Context, keys ...string) error {
	return p.add(func(ctx context.Context) error { return p.conn.Del(ctx, keys...) })
}

func (p *pipeline) IncrBy(_ context.Context, key string, delta int64) error {
	return p.add(func(ctx context.Context) error { return p.conn.IncrBy(ctx, key, delta) })
}

func (p *pipeline) HSet(_ context.Context, key string, values map[string]string) error {
	return p.add(func(ctx context.Context) error { return p.conn.HSet(ctx, key, values) })
}

func (p *pipeline) HDel(_ context.Context, key string, fields ...string) error {
	return p.add(func(ctx context.Context) error { return p.conn.HDel(ctx, key, fields...) })
}

func (p *pipeline) SAdd(_ context.Context, key string, members ...string) error {
	return p.add(func(ctx context.Context) error { return p.conn.SAdd(ctx, key, members...) })
}

func (p *pipeline) SRem(_ context.Context, key string, members ...string) error {
	return p.add(func(ctx context.Context) error { return p.conn.SRem(ctx, key, members...) })
}

func (p *pipeline) LPush(_ context.Context, key string, values ...string) error {
	return p.add(func(ctx context.Context) error { return p.conn.LPush(ctx, key, values...) })
}

func (p *pipeline) RPush(_ context.Context, key string, values ...string) error {
	return p.add(func(ctx context.Context) error { return p.conn.RPush(ctx, key, values...) })
}

func (p *pipeline) LPop(_ context.Context, key string) error {
	return p.add(func(ctx context.Context) error { return p.conn.LPop(ctx, key) })
}

func (p *pipeline) RPop(_ context.Context, key string) error {
	return p.add(func(ctx context.Context) error { return p.conn.RPop(ctx, key) })
}

func (p *pipeline) LRem(_ context.Context, key string, count int64, value string) error {
	return p.add(func(ctx context.Context) error { return p.conn.LRem(ctx, key, count, value) })
}

func (p *pipeline) ZRem(_ context.Context, key string, members ...string) error {
	return p.add(func(ctx context.Context) error { return p.conn.ZRem(ctx, key, members...) })
}
