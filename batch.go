/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package recordstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"github.com/suparena/recordstore/metrics"
)

// Begin opens a batch scope. While a scope is open every write of the record
// is buffered in one pipeline; scopes nest and only the outermost End
// executes the pipeline. Buffered writes are invisible to every other reader,
// including fresh loads of the same record, until then.
//
// Reads of embedded fields and synchronized containers reflect buffered
// writes immediately. Scripts (unique claims, counters returning values) and
// command proxies bypass the batch.
func (r *Record) Begin(ctx context.Context) {
	if r.depth == 0 {
		r.pipe = r.model.store.conn.Pipeline()
		r.batchID = uuid.NewString()
		r.abort = false
		r.model.store.log.Debug("batch begin",
			slog.String("type", r.model.typ.Name),
			slog.String("pk", r.pk),
			slog.String("batch", r.batchID))
	}
	r.depth++
}

// uniqueClaim is a reverse lookup entry claimed inside a batch scope.
type uniqueClaim struct {
	field string
	key   string
	token string
}

// heldToken reports whether the record's current value of field renders to token.
func (r *Record) heldToken(field, token string) bool {
	v, ok := r.data[field]
	if !ok {
		return false
	}
	held, err := uniqueToken(r.model.typ.Fields[field], v)
	return err == nil && held == token
}

// rollback brings the record back to what the store holds after the
// buffered writes of a scope were dropped or failed, and releases the
// unique values claimed inside the scope that the record does not hold.
func (r *Record) rollback(ctx context.Context, claims []uniqueClaim) error {
	err := r.Reload(ctx)
	var keys, tokens []string
	for _, c := range claims {
		if err == nil && r.heldToken(c.field, c.token) {
			continue
		}
		keys = append(keys, c.key)
		tokens = append(tokens, c.token)
	}
	r.model.releaseUnique(ctx, r.pk, keys, tokens)
	return err
}

// End closes a batch scope. Closing the outermost scope executes the
// buffered writes, or discards them and reloads the record when a Batch
// function failed inside the scope. When the writes are discarded or fail,
// unique values claimed inside the scope are released again and the record
// is reloaded.
func (r *Record) End(ctx context.Context) error {
	if r.depth == 0 {
		return fmt.Errorf("recordstore: End without Begin")
	}
	r.depth--
	if r.depth > 0 {
		return nil
	}

	pipe, id, claims := r.pipe, r.batchID, r.claims
	r.pipe, r.batchID, r.claims = nil, "", nil
	log := r.model.store.log.With(
		slog.String("type", r.model.typ.Name),
		slog.String("pk", r.pk),
		slog.String("batch", id))

	if r.abort {
		r.abort = false
		n := pipe.Len()
		pipe.Discard()
		metrics.BatchCommitInc("discarded")
		log.Debug("batch discarded", slog.Int("commands", n))
		return r.rollback(ctx, claims)
	}

	n := pipe.Len()
	if err := pipe.Exec(ctx); err != nil {
		metrics.BatchCommitInc("error")
		log.Debug("batch commit failed", slog.Int("commands", n), slog.Any("err", err))
		if rerr := r.rollback(ctx, claims); rerr != nil {
			log.Warn("reload after failed batch commit failed", slog.Any("err", rerr))
		}
		return err
	}
	metrics.BatchCommitInc("ok")
	log.Debug("batch committed", slog.Int("commands", n))
	return nil
}

// Batch runs fn inside a batch scope. If fn fails the whole outermost batch
// is discarded and fn's error returned.
func (r *Record) Batch(ctx context.Context, fn func(ctx context.Context) error) error {
	r.Begin(ctx)
	err := fn(ctx)
	if err != nil {
		r.abort = true
	}
	if endErr := r.End(ctx); err == nil {
		err = endErr
	}
	return err
}

// InBatch reports whether a batch scope is open.
func (r *Record) InBatch() bool {
	return r.depth > 0
}
