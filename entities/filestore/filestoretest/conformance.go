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

// Package filestoretest holds behaviour every filestore.FileStore backend
// must share.
package filestoretest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/tablestore/entities/filestore"
)

func Run(t *testing.T, newStore func(t *testing.T) filestore.FileStore) {
	ctx := context.Background()

	t.Run("exclusive create", func(t *testing.T) {
		fs := newStore(t)
		require.NoError(t, filestore.WriteFile(ctx, fs, "t/.meta/001.commit.requested", nil, false))

		err := filestore.WriteFile(ctx, fs, "t/.meta/001.commit.requested", []byte("x"), false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, filestore.ErrAlreadyExists))
	})

	t.Run("overwrite replaces content", func(t *testing.T) {
		fs := newStore(t)
		require.NoError(t, filestore.WriteFile(ctx, fs, "t/f", []byte("one"), false))
		require.NoError(t, filestore.WriteFile(ctx, fs, "t/f", []byte("two"), true))

		data, err := filestore.ReadFile(ctx, fs, "t/f")
		require.NoError(t, err)
		assert.Equal(t, "two", string(data))
	})

	t.Run("open missing", func(t *testing.T) {
		fs := newStore(t)
		_, err := fs.Open(ctx, "t/missing")
		assert.True(t, errors.Is(err, filestore.ErrNotFound))
	})

	t.Run("rename does not clobber", func(t *testing.T) {
		fs := newStore(t)
		require.NoError(t, filestore.WriteFile(ctx, fs, "t/a", []byte("a"), false))
		require.NoError(t, filestore.WriteFile(ctx, fs, "t/b", []byte("b"), false))

		ok, err := fs.Rename(ctx, "t/a", "t/b")
		require.NoError(t, err)
		assert.False(t, ok)

		data, err := filestore.ReadFile(ctx, fs, "t/b")
		require.NoError(t, err)
		assert.Equal(t, "b", string(data))

		ok, err = fs.Rename(ctx, "t/a", "t/c")
		require.NoError(t, err)
		assert.True(t, ok)

		exists, err := fs.Exists(ctx, "t/a")
		require.NoError(t, err)
		assert.False(t, exists)

		ok, err = fs.Rename(ctx, "t/a", "t/d")
		require.NoError(t, err)
		assert.False(t, ok, "missing source")
	})

	t.Run("list immediate children", func(t *testing.T) {
		fs := newStore(t)
		for _, p := range []string{"t/p1/a", "t/p1/b", "t/p2/x/y", "t/top"} {
			require.NoError(t, filestore.WriteFile(ctx, fs, p, []byte(p), false))
		}

		entries, err := fs.List(ctx, "t")
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, filestore.FileInfo{Path: "t/p1", IsDir: true}, entries[0])
		assert.Equal(t, filestore.FileInfo{Path: "t/p2", IsDir: true}, entries[1])
		assert.Equal(t, "t/top", entries[2].Path)
		assert.False(t, entries[2].IsDir)
		assert.Equal(t, int64(len("t/top")), entries[2].Size)

		all, err := filestore.ListRecursive(ctx, fs, "t")
		require.NoError(t, err)
		var paths []string
		for _, e := range all {
			paths = append(paths, e.Path)
		}
		assert.Equal(t, []string{"t/p1/a", "t/p1/b", "t/p2/x/y", "t/top"}, paths)

		entries, err = fs.List(ctx, "nope")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("delete", func(t *testing.T) {
		fs := newStore(t)
		require.NoError(t, filestore.WriteFile(ctx, fs, "t/d/a", nil, false))
		require.NoError(t, filestore.WriteFile(ctx, fs, "t/d/e/b", nil, false))

		ok, err := fs.Delete(ctx, "t/d/a", false)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = fs.Delete(ctx, "t/d/a", false)
		require.NoError(t, err)
		assert.False(t, ok, "already absent")

		ok, err = fs.Delete(ctx, "t/d", true)
		require.NoError(t, err)
		assert.True(t, ok)

		exists, err := fs.Exists(ctx, "t/d/e/b")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("mkdir makes dir visible", func(t *testing.T) {
		fs := newStore(t)
		require.NoError(t, fs.MkdirAll(ctx, "t/.meta/archived"))

		exists, err := fs.Exists(ctx, "t/.meta")
		require.NoError(t, err)
		assert.True(t, exists)
	})
}
