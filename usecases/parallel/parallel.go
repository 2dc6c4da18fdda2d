//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2025 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

// Package parallel runs independent per-partition tasks, either in the
// calling goroutine or on a bounded pool.
package parallel

import (
	"context"
	"runtime"

	"github.com/sirupsen/logrus"

	enterrors "github.com/weaviate/tablestore/entities/errors"
)

// Executor runs n tasks. Every task is attempted; the first error is
// returned once all of them have finished.
type Executor interface {
	Run(ctx context.Context, n int, task func(ctx context.Context, i int) error) error
}

// Local runs tasks one after another.
type Local struct{}

func (Local) Run(ctx context.Context, n int, task func(ctx context.Context, i int) error) error {
	var first error
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			if first == nil {
				first = err
			}
			break
		}
		if err := task(ctx, i); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Pool runs tasks concurrently, at most Parallelism at a time. Panics in a
// task are recovered and reported as errors.
type Pool struct {
	Parallelism int
	Logger      logrus.FieldLogger
}

func NewPool(parallelism int, logger logrus.FieldLogger) *Pool {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	return &Pool{Parallelism: parallelism, Logger: logger}
}

func (p *Pool) Run(ctx context.Context, n int, task func(ctx context.Context, i int) error) error {
	eg := enterrors.NewErrorGroupWrapper(p.Logger)
	eg.SetLimit(p.Parallelism)
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return task(ctx, i)
		}, i)
	}
	return eg.Wait()
}

// Map applies f to every item on exec and returns the results in input
// order.
func Map[In, Out any](ctx context.Context, exec Executor, items []In,
	f func(ctx context.Context, item In) (Out, error),
) ([]Out, error) {
	results := make([]Out, len(items))
	err := exec.Run(ctx, len(items), func(ctx context.Context, i int) error {
		out, err := f(ctx, items[i])
		if err != nil {
			return err
		}
		results[i] = out
		return nil
	})
	return results, err
}
