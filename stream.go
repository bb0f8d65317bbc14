/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package recordstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/suparena/recordstore/datastore"
	"github.com/suparena/recordstore/storagemodels"
)

// Stream loads the selected records page by page on a background goroutine.
// Pages are read from the ordered index by offset, so records created or
// deleted while streaming may shift page boundaries. The channel is closed
// when the range is exhausted, a fatal error was sent, or ctx is done.
func (m *Model) Stream(ctx context.Context, params storagemodels.RangeParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[*Record] {
	// Apply options
	options := storagemodels.DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.PageSize <= 0 {
		options.PageSize = storagemodels.DefaultStreamOptions().PageSize
	}

	resultCh := make(chan storagemodels.StreamResult[*Record], options.BufferSize)
	if err := params.Validate(); err != nil {
		resultCh <- storagemodels.StreamResult[*Record]{Error: err, Meta: storagemodels.StreamMeta{Timestamp: time.Now()}}
		close(resultCh)
		return resultCh
	}

	go m.streamWorker(ctx, params, options, resultCh)
	return resultCh
}

// streamWorker handles the actual streaming logic
func (m *Model) streamWorker(
	ctx context.Context,
	params storagemodels.RangeParams,
	options storagemodels.StreamOptions,
	resultCh chan<- storagemodels.StreamResult[*Record],
) {
	defer close(resultCh)

	var itemIndex int64
	var pageNumber int
	startTime := time.Now()
	var errs []error
	var mu sync.Mutex

	reportProgress := func(next int64) {
		if options.ProgressHandler == nil {
			return
		}
		mu.Lock()
		progress := storagemodels.StreamProgress{
			ItemsProcessed: atomic.LoadInt64(&itemIndex),
			PagesProcessed: pageNumber,
			NextOffset:     next,
			Errors:         append([]error(nil), errs...),
			StartTime:      startTime,
		}
		mu.Unlock()
		if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
			progress.CurrentRate = float64(progress.ItemsProcessed) / elapsed
		}
		options.ProgressHandler(progress)
	}

	fail := func(err error) {
		select {
		case <-ctx.Done():
		case resultCh <- storagemodels.StreamResult[*Record]{
			Error: err,
			Meta: storagemodels.StreamMeta{
				Index:      atomic.LoadInt64(&itemIndex),
				PageNumber: pageNumber,
				Timestamp:  time.Now(),
			},
		}:
		}
	}

	offset := params.Offset
	remaining := params.Limit
	trav := newTraversal()
	failedPages := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		count := options.PageSize
		if params.Limit > 0 && remaining < count {
			count = remaining
		}
		page := params.ScoreRange()
		page.Offset, page.Count = offset, count

		pks, err := m.rangeWithRetry(ctx, page, options)
		if err != nil {
			if options.ErrorHandler == nil || !options.ErrorHandler(err) {
				fail(fmt.Errorf("index range failed: %w", err))
				return
			}
			failedPages++
			if failedPages > options.MaxRetries {
				fail(fmt.Errorf("index range failed on %d consecutive pages: %w", failedPages, err))
				return
			}
			// Skip the page and continue
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			offset += count
			continue
		}
		failedPages = 0

		pageNumber++
		for _, pk := range pks {
			result := m.streamItem(ctx, pk, trav, atomic.LoadInt64(&itemIndex), pageNumber)
			if result.Error == nil && !result.Item.Good() {
				// Index entry without a record
				continue
			}
			atomic.AddInt64(&itemIndex, 1)

			select {
			case <-ctx.Done():
				return
			case resultCh <- result:
			}

			if result.Error != nil {
				mu.Lock()
				errs = append(errs, result.Error)
				mu.Unlock()
			}
		}

		offset += int64(len(pks))
		if params.Limit > 0 {
			remaining -= int64(len(pks))
		}
		if int64(len(pks)) < count || (params.Limit > 0 && remaining <= 0) {
			break
		}
		reportProgress(offset)
	}

	reportProgress(-1)
}

func (m *Model) streamItem(ctx context.Context, pk string, trav *traversal, index int64, pageNumber int) storagemodels.StreamResult[*Record] {
	meta := storagemodels.StreamMeta{
		Index:      index,
		PageNumber: pageNumber,
		Timestamp:  time.Now(),
	}
	r, raw, err := m.fetch(ctx, pk, trav)
	if err != nil {
		return storagemodels.StreamResult[*Record]{Error: fmt.Errorf("load %s %q: %w", m.typ.Name, pk, err), Meta: meta}
	}
	return storagemodels.StreamResult[*Record]{Item: r, Raw: raw, Meta: meta}
}

// rangeWithRetry reads one index page with configurable retry logic
func (m *Model) rangeWithRetry(ctx context.Context, r datastore.ScoreRange, options storagemodels.StreamOptions) ([]string, error) {
	var lastErr error

	for attempt := 0; attempt <= options.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		pks, err := m.store.conn.ZRangeByScore(ctx, m.typ.IndexKey, r)
		if err == nil {
			return pks, nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return nil, err
		}

		// Don't sleep after last attempt
		if attempt < options.MaxRetries {
			backoff := time.Duration(attempt+1) * options.RetryBackoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("index range failed after %d retries: %w", options.MaxRetries, lastErr)
}

// isRetryableError determines if a transport error is worth retrying
func isRetryableError(err error) bool {
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var retryable interface{ IsRetryable() bool }
	if stderrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}
