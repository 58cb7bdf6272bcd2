package engine

import (
	"context"
)

// ScoreQueue decouples rescoring from the request that triggered it.
// Submissions coalesce: while one rescore is pending, further submissions
// are no-ops, since the pending run will read the latest item pool anyway.
type ScoreQueue struct {
	engine  *Engine
	pending chan struct{}
	errs    chan error
}

// NewScoreQueue creates a queue bound to e. Call Run to start the worker.
func NewScoreQueue(e *Engine) *ScoreQueue {
	return &ScoreQueue{
		engine:  e,
		pending: make(chan struct{}, 1),
		errs:    make(chan error, 16),
	}
}

// Submit requests a rescore of all undone items. Never blocks.
func (q *ScoreQueue) Submit() {
	select {
	case q.pending <- struct{}{}:
	default:
	}
}

// Errors reports failed rescores. Errors are dropped when nobody drains it.
func (q *ScoreQueue) Errors() <-chan error {
	return q.errs
}

// Run processes submissions until ctx is cancelled.
func (q *ScoreQueue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-q.pending:
			if _, err := q.engine.ScoreAll(ctx); err != nil {
				q.engine.obs.Log().Warn().Err(err).Msg("background rescore failed")
				select {
				case q.errs <- err:
				default:
				}
			}
		}
	}
}
