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

package tablefs

import (
	"context"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/tablestore/entities/datafile"
	"github.com/weaviate/tablestore/entities/filestore"
	modfsmem "github.com/weaviate/tablestore/modules/filestore-memory"
)

const base = "warehouse/trips"

func TestAllPartitionPaths(t *testing.T) {
	ctx := context.Background()
	store := modfsmem.New()
	for _, p := range []string{"2024/01/01", "2024/01/02", "2024/02/01"} {
		require.NoError(t, CreatePartitionMetadata(ctx, store, base, p, "001"))
		require.NoError(t, filestore.WriteFile(ctx, store,
			path.Join(base, p, datafile.BaseFileName("f", "t", "001")), nil, false))
	}
	// not a partition: no metadata file
	require.NoError(t, filestore.WriteFile(ctx, store, path.Join(base, "2024/03/01/stray"), nil, false))
	require.NoError(t, filestore.WriteFile(ctx, store, path.Join(base, ".meta/001.commit"), nil, false))

	t.Run("recursive", func(t *testing.T) {
		got, err := AllPartitionPaths(ctx, store, base, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"2024/01/01", "2024/01/02", "2024/02/01"}, got)
	})

	t.Run("date partitioned", func(t *testing.T) {
		got, err := AllPartitionPaths(ctx, store, base, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"2024/01/01", "2024/01/02", "2024/02/01", "2024/03/01"}, got)
	})
}

func TestNonPartitionedTable(t *testing.T) {
	ctx := context.Background()
	store := modfsmem.New()
	require.NoError(t, CreatePartitionMetadata(ctx, store, base, "", "001"))
	require.NoError(t, CreatePartitionMetadata(ctx, store, base, "", "002"), "existing marker is kept")

	got, err := AllPartitionPaths(ctx, store, base, false)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, got)

	data, err := filestore.ReadFile(ctx, store, path.Join(base, ".partition_metadata"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "commitTime=001")
}

func TestDataFiles(t *testing.T) {
	ctx := context.Background()
	store := modfsmem.New()
	partition := "p1"
	names := []string{
		datafile.BaseFileName("f1", "t", "001"),
		datafile.LogFileName("f1", "001", 1, "t"),
		".partition_metadata",
		"notes.txt",
	}
	for _, n := range names {
		require.NoError(t, filestore.WriteFile(ctx, store, path.Join(base, partition, n), nil, false))
	}

	files, err := DataFiles(ctx, store, base, partition)
	require.NoError(t, err)
	require.Len(t, files, 2)
}
