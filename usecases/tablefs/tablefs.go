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

// Package tablefs discovers partitions and data files of a table.
package tablefs

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/weaviate/tablestore/entities/datafile"
	enterrors "github.com/weaviate/tablestore/entities/errors"
	"github.com/weaviate/tablestore/entities/filestore"
	"github.com/weaviate/tablestore/usecases/timeline"
)

const datePartitionDepth = 3

// AllPartitionPaths returns partition paths relative to basePath. With
// assumeDatePartitioning the partitions are the directories exactly three
// levels down (yyyy/mm/dd). Otherwise every directory holding a partition
// metadata file is a partition; the table root itself shows up as "".
func AllPartitionPaths(ctx context.Context, store filestore.FileStore, basePath string,
	assumeDatePartitioning bool,
) ([]string, error) {
	basePath = filestore.Clean(basePath)
	if assumeDatePartitioning {
		return datePartitions(ctx, store, basePath)
	}

	var out []string
	var walk func(dir string) error
	walk = func(dir string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := store.List(ctx, dir)
		if err != nil {
			return enterrors.NewErrIO(err)
		}
		for _, e := range entries {
			if !e.IsDir && e.Name() == timeline.PartitionMetadataFile {
				out = append(out, filestore.Rel(basePath, dir))
				break
			}
		}
		for _, e := range entries {
			if e.IsDir && !isHidden(e.Name()) {
				if err := walk(e.Path); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(basePath); err != nil {
		return nil, err
	}
	return out, nil
}

func datePartitions(ctx context.Context, store filestore.FileStore, basePath string) ([]string, error) {
	level := []string{basePath}
	for depth := 0; depth < datePartitionDepth; depth++ {
		var next []string
		for _, dir := range level {
			entries, err := store.List(ctx, dir)
			if err != nil {
				return nil, enterrors.NewErrIO(err)
			}
			for _, e := range entries {
				if e.IsDir && !isHidden(e.Name()) {
					next = append(next, e.Path)
				}
			}
		}
		level = next
	}
	out := make([]string, 0, len(level))
	for _, dir := range level {
		out = append(out, filestore.Rel(basePath, dir))
	}
	return out, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// CreatePartitionMetadata marks partition as a partition of the table. An
// existing marker is left untouched.
func CreatePartitionMetadata(ctx context.Context, store filestore.FileStore, basePath, partition,
	instantTime string,
) error {
	depth := 0
	if partition != "" {
		depth = len(strings.Split(partition, "/"))
	}
	p := path.Join(basePath, partition, timeline.PartitionMetadataFile)
	content := fmt.Sprintf("commitTime=%s\npartitionDepth=%d\n", instantTime, depth)
	err := filestore.WriteFile(ctx, store, p, []byte(content), false)
	if err != nil && !errors.Is(err, filestore.ErrAlreadyExists) {
		return enterrors.NewErrIO(err)
	}
	return nil
}

// DataFiles lists base and log files directly inside a partition.
func DataFiles(ctx context.Context, store filestore.FileStore, basePath, partition string) ([]filestore.FileInfo, error) {
	entries, err := store.List(ctx, path.Join(basePath, partition))
	if err != nil {
		return nil, enterrors.NewErrIO(err)
	}
	out := entries[:0]
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		if datafile.IsBaseFile(e.Name()) || datafile.IsLogFile(e.Name()) {
			out = append(out, e)
		}
	}
	return out, nil
}
