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

package modfss3

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/minio/minio-go/v7"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/weaviate/tablestore/entities/retry"
)

func TestConfigDefaults(t *testing.T) {
	c := Config{}
	assert.Equal(t, DEFAULT_ENDPOINT, c.endpoint())
	assert.Equal(t, DEFAULT_BUCKET, c.bucket())

	c = Config{Endpoint: "localhost:9000", Bucket: "tables"}
	assert.Equal(t, "localhost:9000", c.endpoint())
	assert.Equal(t, "tables", c.bucket())
}

func TestObjectNames(t *testing.T) {
	s := &Store{config: Config{Prefix: "/warehouse/"}}
	assert.Equal(t, "warehouse/t1/.meta/001.commit", s.objectName("t1/.meta/001.commit"))
	assert.Equal(t, "warehouse", s.objectName(""))
	assert.Equal(t, "t1/p1", s.relPath("warehouse/t1/p1/"))

	s = &Store{}
	assert.Equal(t, "t1/a", s.objectName("/t1/a"))
	assert.Equal(t, "t1/a", s.relPath("t1/a"))
}

func TestConditionalPutErrors(t *testing.T) {
	exists := minio.ErrorResponse{Code: "PreconditionFailed", StatusCode: http.StatusPreconditionFailed}
	conflict := minio.ErrorResponse{Code: "ConditionalRequestConflict", StatusCode: http.StatusConflict}

	assert.True(t, isPreconditionFailed(exists))
	assert.True(t, isPreconditionFailed(minio.ErrorResponse{StatusCode: http.StatusPreconditionFailed}))
	assert.False(t, isPreconditionFailed(conflict))

	assert.True(t, isConditionalConflict(conflict))
	assert.False(t, isConditionalConflict(exists))
	assert.False(t, isConditionalConflict(errors.New("connection reset")))
}

func TestRetryConflicts(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	s := &Store{
		logger:          logger,
		conflictBackoff: func() backoff.BackOff { return retry.ConstantBackoff(3, time.Millisecond) },
	}
	conflict := minio.ErrorResponse{Code: "ConditionalRequestConflict", StatusCode: http.StatusConflict}

	t.Run("conflicts are retried until the put resolves", func(t *testing.T) {
		hook.Reset()
		attempts := 0
		err := s.retryConflicts(context.Background(), "t1/.meta/001.commit", func() error {
			attempts++
			if attempts < 3 {
				return conflict
			}
			return minio.ErrorResponse{Code: "PreconditionFailed", StatusCode: http.StatusPreconditionFailed}
		})
		assert.True(t, isPreconditionFailed(err))
		assert.Equal(t, 3, attempts)
		assert.Len(t, hook.AllEntries(), 2)
	})

	t.Run("other errors are returned at once", func(t *testing.T) {
		attempts := 0
		injected := errors.New("access denied")
		err := s.retryConflicts(context.Background(), "t1/a", func() error {
			attempts++
			return injected
		})
		assert.Same(t, injected, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("bounded", func(t *testing.T) {
		attempts := 0
		err := s.retryConflicts(context.Background(), "t1/a", func() error {
			attempts++
			return conflict
		})
		assert.True(t, isConditionalConflict(err))
		assert.Equal(t, 4, attempts)
	})
}
