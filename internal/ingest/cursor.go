package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/DjordjeVuckovic/product-stream/internal/apperr"
	"github.com/DjordjeVuckovic/product-stream/internal/reader"
)

const (
	DefaultFetchSize = 500

	releaseTimeout = 10 * time.Second
)

type StreamState int

const (
	StreamNotStarted StreamState = iota
	StreamActive
	StreamDrained
	StreamCompleted
	StreamFailed
	StreamClosed
)

func (s StreamState) String() string {
	switch s {
	case StreamNotStarted:
		return "not_started"
	case StreamActive:
		return "active"
	case StreamDrained:
		return "drained"
	case StreamCompleted:
		return "completed"
	case StreamFailed:
		return "failed"
	case StreamClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// RowCursor streams rows from a QuerySource one page at a time. The owning
// transaction is opened on the first call to Next and released exactly once.
// Draining the rows does not commit: the transaction stays open until Close
// commits it or Abort rolls it back. Failures inside Next roll back at once.
//
// RowCursor is not safe for concurrent use.
type RowCursor struct {
	src       QuerySource
	limit     *int
	fetchSize int

	pager Pager
	page  []reader.RawRow
	pos   int
	last  bool
	row   reader.RawRow

	state    StreamState
	terminal StreamState
	err      error
	fetched  int64
}

type CursorOption func(*RowCursor)

func WithFetchSize(size int) CursorOption {
	return func(c *RowCursor) {
		if size > 0 {
			c.fetchSize = size
		}
	}
}

// OpenCursor prepares a cursor over src. Nothing is fetched, and no
// transaction is opened, until the first call to Next.
func OpenCursor(src QuerySource, limit *int, opts ...CursorOption) *RowCursor {
	c := &RowCursor{
		src:       src,
		limit:     limit,
		fetchSize: DefaultFetchSize,
		state:     StreamNotStarted,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RowCursor) Next(ctx context.Context) bool {
	switch c.state {
	case StreamNotStarted:
		if err := ctx.Err(); err != nil {
			c.err = apperr.NewCancellation(err)
			c.terminal, c.state = StreamFailed, StreamClosed
			return false
		}
		pager, err := c.src.Begin(ctx, c.limit)
		if err != nil {
			c.err = c.classify(ctx, "begin", err)
			c.terminal, c.state = StreamFailed, StreamClosed
			return false
		}
		c.pager = pager
		c.state = StreamActive
	case StreamActive:
	default:
		return false
	}

	if err := ctx.Err(); err != nil {
		c.finish(ctx, apperr.NewCancellation(err))
		return false
	}

	if c.pos >= len(c.page) {
		if c.last {
			c.drain()
			return false
		}
		page, err := c.pager.FetchPage(ctx, c.fetchSize)
		if err != nil {
			c.finish(ctx, c.classify(ctx, "fetch", err))
			return false
		}
		c.page, c.pos = page, 0
		c.last = len(page) < c.fetchSize
		if len(page) == 0 {
			c.drain()
			return false
		}
	}

	c.row = c.page[c.pos]
	c.page[c.pos] = nil
	c.pos++
	c.fetched++
	return true
}

// Value returns the row read by the last successful Next.
func (c *RowCursor) Value() reader.RawRow {
	return c.row
}

func (c *RowCursor) Err() error {
	return c.err
}

// Fetched returns how many rows were handed out so far.
func (c *RowCursor) Fetched() int64 {
	return c.fetched
}

func (c *RowCursor) State() StreamState {
	return c.state
}

// Terminal returns StreamCompleted or StreamFailed once the cursor has
// closed, the current state before that.
func (c *RowCursor) Terminal() StreamState {
	if c.state != StreamClosed {
		return c.state
	}
	return c.terminal
}

// Close releases the cursor. A drained cursor commits; closing it before
// that is a consumer-initiated cancellation and rolls the transaction back.
// Close is idempotent; it only returns an error when it performed the
// release itself and that failed.
func (c *RowCursor) Close(ctx context.Context) error {
	switch c.state {
	case StreamDrained:
		c.finish(ctx, nil)
		if c.terminal == StreamFailed {
			return c.err
		}
		return nil
	default:
		return c.Abort(ctx, apperr.NewCancellation(nil))
	}
}

// Abort rolls the transaction back with cause as the cursor error, drained
// or not. It is a no-op on a closed cursor and returns an error only when
// the rollback itself failed.
func (c *RowCursor) Abort(ctx context.Context, cause error) error {
	switch c.state {
	case StreamNotStarted:
		c.err = cause
		c.terminal, c.state = StreamFailed, StreamClosed
		return nil
	case StreamActive, StreamDrained:
		c.finish(ctx, cause)
		var ce *apperr.CursorError
		if errors.As(c.err, &ce) && ce.Op == "rollback" {
			return ce
		}
		return nil
	default:
		return nil
	}
}

func (c *RowCursor) drain() {
	c.page, c.row = nil, nil
	c.state = StreamDrained
}

// finish performs the single terminal transition and releases the
// transaction. cause == nil commits.
func (c *RowCursor) finish(ctx context.Context, cause error) {
	c.page, c.row = nil, nil

	// Release must run even when ctx is already cancelled.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if cause == nil {
		if err := c.pager.Commit(rctx); err != nil {
			c.err = apperr.NewCursor("commit", err)
			c.terminal = StreamFailed
		} else {
			c.terminal = StreamCompleted
		}
		c.state = StreamClosed
		return
	}

	c.err = cause
	c.terminal = StreamFailed
	if err := c.pager.Rollback(rctx); err != nil {
		c.err = errors.Join(cause, apperr.NewCursor("rollback", err))
	}
	c.state = StreamClosed
}

func (c *RowCursor) classify(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return apperr.NewCancellation(err)
	}
	return apperr.NewCursor(op, err)
}
