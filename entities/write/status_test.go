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

package write

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalsSumsPerStatusCounts(t *testing.T) {
	a := &Status{FileID: "a"}
	for i := 0; i < 60; i++ {
		a.MarkSuccess()
	}
	b := &Status{FileID: "b"}
	for i := 0; i < 30; i++ {
		b.MarkSuccess()
	}
	for i := 0; i < 10; i++ {
		b.MarkFailure(Key{RecordKey: string(rune('a' + i)), PartitionPath: "p"}, errors.New("boom"))
	}

	records, errs := Totals([]*Status{a, b, nil})
	assert.Equal(t, int64(100), records)
	assert.Equal(t, int64(10), errs)
	assert.False(t, a.HasErrors())
	assert.True(t, b.HasErrors())
	assert.Len(t, b.Errors, 10)
}

func TestParseOperation(t *testing.T) {
	op, err := ParseOperation("UPSERT")
	require.NoError(t, err)
	assert.Equal(t, Upsert, op)

	op, err = ParseOperation("bulk_insert")
	require.NoError(t, err)
	assert.Equal(t, BulkInsert, op)

	_, err = ParseOperation("merge")
	assert.Error(t, err)
}
