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

package table

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enterrors "github.com/weaviate/tablestore/entities/errors"
)

func TestParseType(t *testing.T) {
	typ, err := ParseType("copy_on_write")
	require.NoError(t, err)
	assert.Equal(t, CopyOnWrite, typ)

	typ, err = ParseType(" MERGE_ON_READ ")
	require.NoError(t, err)
	assert.Equal(t, MergeOnRead, typ)

	_, err = ParseType("APPEND_ONLY")
	require.Error(t, err)
	assert.True(t, errors.Is(err, enterrors.ErrUnsupportedTableType))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{Name: "trips", Type: MergeOnRead}.Validate())
	assert.ErrorIs(t, Config{Name: "trips", Type: "BOGUS"}.Validate(), enterrors.ErrUnsupportedTableType)
}
