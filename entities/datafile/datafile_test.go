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

package datafile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseFileNaming(t *testing.T) {
	token := NewWriteToken()
	name := BaseFileName("f-1", token, "20240101120000")

	b, ok := ParseBaseFile("2024/01/01/" + name)
	require.True(t, ok)
	assert.Equal(t, "f-1", b.FileID)
	assert.Equal(t, token, b.WriteToken)
	assert.Equal(t, "20240101120000", b.InstantTime)
	assert.False(t, IsLogFile(name))
}

func TestLogFileNaming(t *testing.T) {
	name := LogFileName("f-1", "20240101120000", 3, "tok")
	assert.Equal(t, ".f-1_20240101120000.log.3_tok", name)

	l, ok := ParseLogFile(name)
	require.True(t, ok)
	assert.Equal(t, LogFile{FileID: "f-1", BaseInstant: "20240101120000", Version: 3, WriteToken: "tok"}, l)
	assert.False(t, IsBaseFile(name))
}

func TestCommitTime(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		ok       bool
	}{
		{name: BaseFileName("a", "t", "001"), expected: "001", ok: true},
		{name: LogFileName("a", "002", 1, "t"), expected: "002", ok: true},
		{name: ".partition_metadata", ok: false},
		{name: "readme.txt", ok: false},
		{name: ".a_001.log.x_t", ok: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := CommitTime(tc.name)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, got)
		})
	}
}
