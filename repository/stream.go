package repository

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-repository-engine/pagination"
	"github.com/goliatone/go-repository-engine/store"
)

const (
	// DefaultMaxRecords caps FindAllPaginated when no bound is given.
	DefaultMaxRecords = 10000
	// DefaultMaxConcurrency bounds parallel batch processing.
	DefaultMaxConcurrency = 5
	// DefaultPollInterval is the wait-and-check granularity of the parallel
	// batch scheduler.
	DefaultPollInterval = 50 * time.Millisecond
)

// FindStream walks the full result set lazily, one page per pull. Each
// yielded batch is one page's rows in display order; empty batches are never
// yielded. The stream ends when no further page exists, when a page fetch
// fails (the error is yielded once) or when the context is cancelled between
// pages. A stream is not resumable mid-flight: restart with a fresh call,
// seeding req.Cursor from the last processed row.
//
// The request's cursor, limit and direction drive the traversal exactly as
// in CursorList, so a backward stream walks pages toward the beginning of
// the set.
func (p *Paginated[T]) FindStream(ctx context.Context, req pagination.PageRequest, extra ...store.QueryOption) iter.Seq2[[]T, error] {
	req = req.Normalize()

	return func(yield func([]T, error) bool) {
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			page, err := p.CursorList(ctx, req, extra...)
			if err != nil {
				yield(nil, err)
				return
			}

			if len(page.Data) > 0 {
				if !yield(page.Data, nil) {
					return
				}
			}

			if req.Direction == pagination.DirectionBackward {
				if !page.PageInfo.HasPreviousPage {
					return
				}
				req.Cursor = page.PageInfo.StartCursor
			} else {
				if !page.PageInfo.HasNextPage {
					return
				}
				req.Cursor = page.PageInfo.EndCursor
			}
		}
	}
}

// FindAllPaginated drains a stream into memory. maxRecords (DefaultMaxRecords
// when <= 0) is the safety valve against unbounded growth: the result is
// truncated there and a warning logged, but no error is returned.
func (p *Paginated[T]) FindAllPaginated(ctx context.Context, req pagination.PageRequest, maxRecords int, extra ...store.QueryOption) ([]T, error) {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}

	var out []T
	for batch, err := range p.FindStream(ctx, req, extra...) {
		if err != nil {
			return nil, err
		}
		for _, rec := range batch {
			if len(out) >= maxRecords {
				p.logger.WarnContext(ctx, "result set truncated",
					"namespace", p.Namespace(),
					"max_records", maxRecords,
				)
				return out, nil
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

// BatchProcessor handles one streamed batch.
type BatchProcessor[T store.Record] func(ctx context.Context, batch []T) error

// BatchOptions configure ProcessBatch.
type BatchOptions struct {
	// Request drives the underlying stream; Request.Limit is the batch size.
	Request pagination.PageRequest
	// Parallel processes batches concurrently instead of in order.
	Parallel bool
	// MaxConcurrency bounds in-flight batches in parallel mode.
	// DefaultMaxConcurrency when <= 0.
	MaxConcurrency int
	// PollInterval is how often the scheduler re-checks for a free slot.
	// DefaultPollInterval when <= 0.
	PollInterval time.Duration
}

// ProcessBatch feeds every streamed batch to fn. Sequential mode preserves
// order and stops at the first failure. Parallel mode keeps at most
// MaxConcurrency batches in flight, waiting for a slot by polling rather
// than by a blocking primitive; the poll granularity is a throughput
// ceiling, acceptable while batches are coarse. The first error stops the
// stream, already-running batches finish, and that error is returned.
func (p *Paginated[T]) ProcessBatch(ctx context.Context, opts BatchOptions, fn BatchProcessor[T], extra ...store.QueryOption) error {
	if fn == nil {
		return NewValidationError("batch processor required")
	}

	if !opts.Parallel {
		for batch, err := range p.FindStream(ctx, opts.Request, extra...) {
			if err != nil {
				return err
			}
			if err := fn(ctx, batch); err != nil {
				return err
			}
		}
		return nil
	}

	maxConcurrency := opts.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	var (
		wg       sync.WaitGroup
		inFlight atomic.Int64
		failed   atomic.Bool
		once     sync.Once
		firstErr error
	)
	recordErr := func(err error) {
		once.Do(func() { firstErr = err })
		failed.Store(true)
	}

	for batch, err := range p.FindStream(ctx, opts.Request, extra...) {
		if err != nil {
			recordErr(err)
			break
		}

		for inFlight.Load() >= int64(maxConcurrency) && !failed.Load() && ctx.Err() == nil {
			time.Sleep(poll)
		}
		if failed.Load() || ctx.Err() != nil {
			break
		}

		inFlight.Add(1)
		wg.Add(1)
		go func(batch []T) {
			defer wg.Done()
			defer inFlight.Add(-1)
			if err := fn(ctx, batch); err != nil {
				recordErr(err)
			}
		}(batch)
	}

	wg.Wait()
	if firstErr == nil {
		return ctx.Err()
	}
	return firstErr
}
