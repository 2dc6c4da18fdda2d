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

package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ConstantBackoff retries maxRetries times after the first attempt, waiting
// interval between attempts.
func ConstantBackoff(maxRetries int, interval time.Duration) backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(maxRetries))
}

// After maxElapsedTime the backoff.BackOff returns Stop.
// It never stops if maxElapsedTime == 0.
func NewExponentialBackoff(initialInterval, maxElapsedTime time.Duration) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = initialInterval
	eb.MaxElapsedTime = maxElapsedTime
	return eb
}

// Do runs op until it succeeds, b stops, or op returns an error for which
// retryable is false. The error of the last attempt is returned unchanged.
// onRetry, if set, is called before each pause.
func Do(ctx context.Context, b backoff.BackOff, retryable func(error) bool,
	onRetry func(err error, next time.Duration), op func() error,
) error {
	wrapped := func() error {
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		if onRetry != nil {
			onRetry(err, next)
		}
	}
	return backoff.RetryNotify(wrapped, backoff.WithContext(b, ctx), notify)
}
