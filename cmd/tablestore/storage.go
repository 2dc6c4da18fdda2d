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
package main

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/tablestore/entities/filestore"
	modfsazure "github.com/weaviate/tablestore/modules/filestore-azure"
	modfsgcs "github.com/weaviate/tablestore/modules/filestore-gcs"
	modfslocal "github.com/weaviate/tablestore/modules/filestore-local"
	modfsmem "github.com/weaviate/tablestore/modules/filestore-memory"
	modfss3 "github.com/weaviate/tablestore/modules/filestore-s3"
	"github.com/weaviate/tablestore/usecases/config"
)

// newStore opens the file store backend named in cfg.
func newStore(ctx context.Context, cfg config.Storage, logger logrus.FieldLogger) (filestore.FileStore, error) {
	switch cfg.Backend {
	case config.BackendFilesystem:
		root, err := filepath.Abs(cfg.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve storage path %q", cfg.Path)
		}
		return modfslocal.New(root, logger)
	case config.BackendMemory:
		return modfsmem.New(), nil
	case config.BackendS3:
		return modfss3.New(ctx, modfss3.Config{
			Endpoint:        cfg.S3.Endpoint,
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			UseSSL:          cfg.S3.UseSSL,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		}, logger)
	case config.BackendGCS:
		return modfsgcs.New(ctx, modfsgcs.Config{
			Bucket: cfg.GCS.Bucket,
			Prefix: cfg.GCS.Prefix,
		}, logger)
	case config.BackendAzure:
		return modfsazure.New(ctx, modfsazure.Config{
			Container:        cfg.Azure.Container,
			Prefix:           cfg.Azure.Prefix,
			ConnectionString: cfg.Azure.ConnectionString,
		}, logger)
	default:
		return nil, errors.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
