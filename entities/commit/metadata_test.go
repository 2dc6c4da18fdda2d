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

package commit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/tablestore/entities/write"
)

func TestMetadataCheckpointRoundTrip(t *testing.T) {
	statuses := []*write.Status{
		{FileID: "f1", PartitionPath: "2024/01/01", Path: "2024/01/01/f1_0-1_20240101000000.parquet", TotalRecords: 10, TotalErrorRecords: 1},
		{FileID: "f2", PartitionPath: "2024/01/02", Path: "2024/01/02/f2_0-1_20240101000000.parquet", TotalRecords: 5},
	}
	md := NewMetadata(write.Upsert, statuses, map[string]string{
		CheckpointKey:      "offset-42",
		CheckpointResetKey: "earliest",
	})

	data, err := md.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)

	cp, ok := got.Checkpoint()
	require.True(t, ok)
	assert.Equal(t, "offset-42", cp)
	assert.Equal(t, "earliest", got.ExtraMetadata[CheckpointResetKey])
	assert.Equal(t, write.Upsert, got.OperationType)
	require.Len(t, got.PartitionToWriteStats["2024/01/01"], 1)
	assert.Equal(t, int64(9), got.PartitionToWriteStats["2024/01/01"][0].NumWrites)
	assert.ElementsMatch(t, []string{
		"2024/01/01/f1_0-1_20240101000000.parquet",
		"2024/01/02/f2_0-1_20240101000000.parquet",
	}, got.WrittenPaths())
}

func TestUnmarshalEmptyPayload(t *testing.T) {
	md, err := Unmarshal(nil)
	require.NoError(t, err)
	_, ok := md.Checkpoint()
	assert.False(t, ok)

	_, err = Unmarshal([]byte("{not json"))
	assert.Error(t, err)
}
