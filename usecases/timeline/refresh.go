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

package timeline

import (
	"context"

	"github.com/sirupsen/logrus"

	enterrors "github.com/weaviate/tablestore/entities/errors"
	"github.com/weaviate/tablestore/entities/filestore"
	"github.com/weaviate/tablestore/entities/table"
)

// Refresh returns the completed write instants of the table at basePath.
// An absent table is initialized from cfg and nil is returned.
func Refresh(ctx context.Context, store filestore.FileStore, basePath string,
	cfg table.Config, logger logrus.FieldLogger,
) (*Timeline, error) {
	exists, err := store.Exists(ctx, basePath)
	if err != nil {
		return nil, enterrors.NewErrIO(err)
	}
	if !exists {
		if _, err := InitTable(ctx, store, basePath, cfg, logger); err != nil {
			return nil, err
		}
		return nil, nil
	}

	meta, err := NewMetaClient(ctx, store, basePath, logger)
	if err != nil {
		return nil, err
	}
	if _, err := table.ParseType(string(meta.TableType())); err != nil {
		return nil, err
	}
	return meta.CommitTimeline().FilterCompleted(), nil
}
