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
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironmentRetryInterval(t *testing.T) {
	factors := []struct {
		name        string
		value       []string
		expected    time.Duration
		expectedErr bool
	}{
		{"Valid", []string{"500ms"}, 500 * time.Millisecond, false},
		{"not given", []string{}, DefaultStartCommitRetryInterval, false},
		{"not parsable", []string{"soon"}, 0, true},
	}
	for _, tt := range factors {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.value) == 1 {
				t.Setenv("WRITE_START_COMMIT_RETRY_INTERVAL", tt.value[0])
			}
			conf := Defaults()
			err := FromEnv(&conf)

			if tt.expectedErr {
				require.NotNil(t, err)
			} else {
				require.Nil(t, err)
				require.Equal(t, tt.expected, conf.Write.StartCommitRetryInterval)
			}
		})
	}
}

func TestEnvironmentRollbackParallelism(t *testing.T) {
	factors := []struct {
		name        string
		value       []string
		expected    int
		expectedErr bool
	}{
		{"Valid", []string{"4"}, 4, false},
		{"not given", []string{}, 0, false},
		{"zero", []string{"0"}, -1, true},
		{"negative", []string{"-2"}, -1, true},
		{"not parsable", []string{"many"}, -1, true},
	}
	for _, tt := range factors {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.value) == 1 {
				t.Setenv("ROLLBACK_PARALLELISM", tt.value[0])
			}
			conf := Defaults()
			err := FromEnv(&conf)

			if tt.expectedErr {
				require.NotNil(t, err)
			} else {
				require.Nil(t, err)
				require.Equal(t, tt.expected, conf.Rollback.Parallelism)
			}
		})
	}
}

func TestEnvironmentFlags(t *testing.T) {
	t.Setenv("ROLLBACK_USE_MARKERS", "true")
	t.Setenv("ROLLBACK_DELETE_INSTANTS", "false")
	t.Setenv("WRITE_COMMIT_ON_ERRORS", "on")
	t.Setenv("WRITE_FILTER_DUPES", "1")
	t.Setenv("PROMETHEUS_MONITORING_ENABLED", "enabled")
	t.Setenv("STORAGE_BACKEND", "gcs")
	t.Setenv("STORAGE_GCS_BUCKET", "lake")
	t.Setenv("LOG_FORMAT", "text")

	conf := Defaults()
	require.Nil(t, FromEnv(&conf))

	assert.True(t, conf.Rollback.UseMarkers)
	assert.False(t, conf.Rollback.DeleteInstants)
	assert.True(t, conf.Write.CommitOnErrors)
	assert.True(t, conf.Write.FilterDupes)
	assert.True(t, conf.Monitoring.Enabled)
	assert.Equal(t, BackendGCS, conf.Storage.Backend)
	assert.Equal(t, "lake", conf.Storage.GCS.Bucket)
	assert.Equal(t, "text", conf.Logging.Format)
}

func TestEnabled(t *testing.T) {
	for _, v := range []string{"on", "enabled", "1", "true"} {
		assert.True(t, enabled(v), v)
	}
	for _, v := range []string{"", "off", "0", "false", "TRUE"} {
		assert.False(t, enabled(v), v)
	}
}
