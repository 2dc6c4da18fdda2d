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
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// FromEnv takes a *Config as it will respect initial config that has been
// provided by other means (e.g. a config file) and will only extend those that
// are set
func FromEnv(config *Config) error {
	if v := os.Getenv("TABLE_BASE_PATH"); v != "" {
		config.Table.BasePath = v
	}
	if v := os.Getenv("TABLE_NAME"); v != "" {
		config.Table.Name = v
	}
	if v := os.Getenv("TABLE_TYPE"); v != "" {
		config.Table.Type = v
	}
	if v := os.Getenv("TABLE_PAYLOAD_KIND"); v != "" {
		config.Table.PayloadKind = v
	}

	if v := os.Getenv("WRITE_OPERATION"); v != "" {
		config.Write.Operation = v
	}
	if v := os.Getenv("WRITE_COMMIT_ON_ERRORS"); v != "" {
		config.Write.CommitOnErrors = enabled(v)
	}
	if v := os.Getenv("WRITE_FILTER_DUPES"); v != "" {
		config.Write.FilterDupes = enabled(v)
	}
	if v := os.Getenv("WRITE_CHECKPOINT_RESET"); v != "" {
		config.Write.CheckpointReset = v
	}
	if v := os.Getenv("WRITE_START_COMMIT_RETRY_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "parse WRITE_START_COMMIT_RETRY_INTERVAL as duration")
		}
		config.Write.StartCommitRetryInterval = d
	}
	if v := os.Getenv("WRITE_ASYNC_COMPACTION"); v != "" {
		config.Write.AsyncCompaction = enabled(v)
	}
	if v := os.Getenv("WRITE_CATALOG_SYNC"); v != "" {
		config.Write.CatalogSync = enabled(v)
	}
	if err := parsePositiveInt("WRITE_PARALLELISM", func(val int) {
		config.Write.Parallelism = val
	}); err != nil {
		return err
	}

	if v := os.Getenv("ROLLBACK_USE_MARKERS"); v != "" {
		config.Rollback.UseMarkers = enabled(v)
	}
	if v := os.Getenv("ROLLBACK_DELETE_INSTANTS"); v != "" {
		config.Rollback.DeleteInstants = enabled(v)
	}
	if v := os.Getenv("ROLLBACK_SKIP_TIMELINE_PUBLISH"); v != "" {
		config.Rollback.SkipTimelinePublish = enabled(v)
	}
	if v := os.Getenv("ROLLBACK_ASSUME_DATE_PARTITIONING"); v != "" {
		config.Rollback.AssumeDatePartitioning = enabled(v)
	}
	if err := parsePositiveInt("ROLLBACK_PARALLELISM", func(val int) {
		config.Rollback.Parallelism = val
	}); err != nil {
		return err
	}

	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = v
	}
	if v := os.Getenv("STORAGE_FILESYSTEM_PATH"); v != "" {
		config.Storage.Path = v
	}
	if v := os.Getenv("STORAGE_S3_ENDPOINT"); v != "" {
		config.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("STORAGE_S3_BUCKET"); v != "" {
		config.Storage.S3.Bucket = v
	}
	if v := os.Getenv("STORAGE_S3_PATH"); v != "" {
		config.Storage.S3.Prefix = v
	}
	if v := os.Getenv("STORAGE_S3_USE_SSL"); v != "" {
		config.Storage.S3.UseSSL = enabled(v)
	}
	if v := os.Getenv("STORAGE_GCS_BUCKET"); v != "" {
		config.Storage.GCS.Bucket = v
	}
	if v := os.Getenv("STORAGE_GCS_PATH"); v != "" {
		config.Storage.GCS.Prefix = v
	}
	if v := os.Getenv("STORAGE_AZURE_CONTAINER"); v != "" {
		config.Storage.Azure.Container = v
	}
	if v := os.Getenv("STORAGE_AZURE_PATH"); v != "" {
		config.Storage.Azure.Prefix = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		config.Logging.Format = v
	}

	if v := os.Getenv("PROMETHEUS_MONITORING_ENABLED"); v != "" {
		config.Monitoring.Enabled = enabled(v)
	}

	return nil
}

func parsePositiveInt(varName string, cb func(val int)) error {
	if v := os.Getenv(varName); v != "" {
		asInt, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "parse %s as int", varName)
		}
		if asInt <= 0 {
			return errors.Errorf("%s must be an integer greater than 0. Got: %v", varName, asInt)
		}
		cb(asInt)
	}
	return nil
}

func enabled(value string) bool {
	if value == "" {
		return false
	}

	if value == "on" || value == "enabled" || value == "1" || value == "true" {
		return true
	}

	return false
}
