//
// Copyright (C) 2026 Nimbus Authors. All rights reserved.
//
// nimbus is licensed under the Apache License Version 2.0.
//

package eval

import (
	"context"
	"fmt"

	"github.com/panjf2000/ants/v2"

	"github.com/nimbus-ai/nimbus/log"
)

const defaultWorkerPoolSize = 4

// Worker runs judge evaluations off the request's critical path on a
// bounded goroutine pool.
type Worker struct {
	judge *Judge
	pool  *ants.Pool
}

// NewWorker creates a worker with a pool of the given size. A non-positive
// size selects the default.
func NewWorker(judge *Judge, size int) (*Worker, error) {
	if size <= 0 {
		size = defaultWorkerPoolSize
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("create evaluation worker pool: %w", err)
	}
	return &Worker{judge: judge, pool: pool}, nil
}

// Submit schedules an evaluation of the input. The task is detached from
// the request context so the response can be sent before judging finishes;
// trace causality is preserved.
func (w *Worker) Submit(ctx context.Context, input Input) {
	detached := context.WithoutCancel(ctx)
	err := w.pool.Submit(func() {
		w.judge.Evaluate(detached, input)
	})
	if err != nil {
		log.Errorf("Submit evaluation for %s: %v", input.ResponseID, err)
	}
}

// Release stops the pool. Pending tasks already running are allowed to
// finish; queued submissions after Release fail.
func (w *Worker) Release() {
	w.pool.Release()
}
