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
package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrIO(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewErrIO(cause)

	assert.True(t, IsIO(err))
	assert.ErrorIs(t, err, cause)
	wrapped := fmt.Errorf("list: %w", err)
	assert.Equal(t, wrapped, NewErrIO(wrapped), "an error already carrying ErrIO is kept")
	assert.Nil(t, NewErrIO(nil))
	assert.False(t, IsIO(cause))
}

func TestTaxonomy(t *testing.T) {
	assert.True(t, IsTransient(NewInvalidState("instant %s exists", "001")))
	assert.False(t, IsTransient(NewConcurrentModification("revert %s", "001")))
	assert.False(t, IsTransient(NewTableNotFound("base/.meta/table.json")))
	assert.ErrorIs(t, NewTableNotFound("base/.meta/table.json"), ErrTableNotFound)
	assert.ErrorIs(t, NewConcurrentModification("revert %s", "001"), ErrConcurrentModification)
	assert.ErrorIs(t, NewUnsupportedTableType("BOTH"), ErrUnsupportedTableType)
	assert.Contains(t, NewUnsupportedTableType("BOTH").Error(), `"BOTH"`)
}

func TestErrorGroupWrapperRecoversPanics(t *testing.T) {
	logger, hook := test.NewNullLogger()
	eg := NewErrorGroupWrapper(logger, "rollback")
	eg.Go(func() error { return nil })
	eg.Go(func() error { panic("boom") }, "partition-1")

	err := eg.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "error_group_recover", hook.LastEntry().Data["action"])
}
