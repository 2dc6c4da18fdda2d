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

package modfslocal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/tablestore/entities/filestore"
	"github.com/weaviate/tablestore/entities/filestore/filestoretest"
)

func TestConformance(t *testing.T) {
	logger, _ := test.NewNullLogger()
	filestoretest.Run(t, func(t *testing.T) filestore.FileStore {
		s, err := New(t.TempDir(), logger)
		require.NoError(t, err)
		return s
	})
}

func TestNewRejectsRelativeRoot(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := New("relative/dir", logger)
	assert.Error(t, err)
	_, err = New("", logger)
	assert.Error(t, err)
}

func TestOverwriteLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	root := t.TempDir()
	s, err := New(root, logger)
	require.NoError(t, err)

	require.NoError(t, filestore.WriteFile(ctx, s, "t/.meta/001.commit.inflight", nil, false))
	require.NoError(t, filestore.WriteFile(ctx, s, "t/.meta/001.commit.inflight", []byte("payload"), true))

	entries, err := os.ReadDir(filepath.Join(root, "t", ".meta"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "001.commit.inflight", entries[0].Name())
}
