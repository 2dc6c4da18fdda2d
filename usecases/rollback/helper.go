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

package rollback

import (
	"context"
	"path"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/tablestore/entities/datafile"
	enterrors "github.com/weaviate/tablestore/entities/errors"
	"github.com/weaviate/tablestore/entities/filestore"
	"github.com/weaviate/tablestore/entities/instant"
	"github.com/weaviate/tablestore/entities/rollback"
	"github.com/weaviate/tablestore/usecases/markers"
	"github.com/weaviate/tablestore/usecases/parallel"
	"github.com/weaviate/tablestore/usecases/tablefs"
	"github.com/weaviate/tablestore/usecases/timeline"
)

// Helper carries out rollback requests, one task per partition.
type Helper struct {
	meta                *timeline.MetaClient
	exec                parallel.Executor
	rollbackInstantTime string
	logger              logrus.FieldLogger
}

func NewHelper(meta *timeline.MetaClient, exec parallel.Executor, rollbackInstantTime string,
	logger logrus.FieldLogger,
) *Helper {
	return &Helper{meta: meta, exec: exec, rollbackInstantTime: rollbackInstantTime, logger: logger}
}

// PerformRollback executes reqs against target. Failed deletes are recorded
// in the stats; any other failure aborts the partition it happened in and
// is returned once all partitions are done.
func (h *Helper) PerformRollback(ctx context.Context, target instant.Instant,
	reqs []rollback.Request,
) ([]*rollback.Stat, error) {
	partitions, grouped := rollback.GroupByPartition(reqs)
	stats, err := parallel.Map(ctx, h.exec, partitions,
		func(ctx context.Context, partition string) (*rollback.Stat, error) {
			return h.rollbackPartition(ctx, target, partition, grouped[partition])
		})
	if err != nil {
		return nil, err
	}
	return rollback.MergeByPartition(stats), nil
}

func (h *Helper) rollbackPartition(ctx context.Context, target instant.Instant, partition string,
	reqs []rollback.Request,
) (*rollback.Stat, error) {
	var stat *rollback.Stat
	ensureStat := func() *rollback.Stat {
		if stat == nil {
			stat = rollback.NewStat(partition)
		}
		return stat
	}

	for _, req := range reqs {
		switch req.Action {
		case rollback.DeleteDataAndLogFiles:
			s := ensureStat()
			if req.TargetPath != "" {
				h.deleteFile(ctx, s, req.TargetPath)
				continue
			}
			if err := h.deletePartitionFiles(ctx, s, target, partition); err != nil {
				return nil, err
			}
		case rollback.AppendRollbackBlock:
			if err := h.appendRollbackBlock(ctx, ensureStat(), target, req); err != nil {
				return nil, err
			}
		case rollback.DeleteMarkerFiles:
			if _, err := markers.NewTracker(h.meta, target.Timestamp).DeleteMarkerDir(ctx); err != nil {
				return nil, err
			}
		default:
			return nil, errors.Errorf("unknown rollback action %q", req.Action)
		}
	}
	return stat, nil
}

// deleteFile records the outcome of deleting a file given relative to the
// table base path. A file that is already gone is neither.
func (h *Helper) deleteFile(ctx context.Context, stat *rollback.Stat, rel string) {
	deleted, err := h.meta.Store().Delete(ctx, path.Join(h.meta.BasePath(), rel), false)
	switch {
	case err != nil:
		h.logger.WithField("action", "rollback_delete").
			WithField("partition", stat.PartitionPath).
			WithError(err).
			Warnf("failed to delete %s", rel)
		stat.AddFailure(rel)
	case deleted:
		stat.AddSuccess(rel)
	}
}

func (h *Helper) deletePartitionFiles(ctx context.Context, stat *rollback.Stat, target instant.Instant,
	partition string,
) error {
	files, err := tablefs.DataFiles(ctx, h.meta.Store(), h.meta.BasePath(), partition)
	if err != nil {
		return err
	}
	for _, f := range files {
		if commitTime, ok := datafile.CommitTime(f.Name()); ok && commitTime == target.Timestamp {
			h.deleteFile(ctx, stat, filestore.Rel(h.meta.BasePath(), f.Path))
		}
	}
	return nil
}

// appendRollbackBlock writes a new version of the file group's log holding a
// command block that voids the target's appended records.
func (h *Helper) appendRollbackBlock(ctx context.Context, stat *rollback.Stat, target instant.Instant,
	req rollback.Request,
) error {
	files, err := tablefs.DataFiles(ctx, h.meta.Store(), h.meta.BasePath(), req.PartitionPath)
	if err != nil {
		return err
	}
	version := 0
	for _, f := range files {
		lf, ok := datafile.ParseLogFile(f.Name())
		if ok && lf.FileID == req.FileID && lf.BaseInstant == req.BaseInstant && lf.Version > version {
			version = lf.Version
		}
	}

	block := rollback.NewCommandBlock(h.rollbackInstantTime, target.Timestamp, req.FileID, req.BaseInstant)
	payload, err := block.Marshal()
	if err != nil {
		return err
	}
	name := datafile.LogFileName(req.FileID, req.BaseInstant, version+1, datafile.NewWriteToken())
	rel := path.Join(req.PartitionPath, name)
	if err := filestore.WriteFile(ctx, h.meta.Store(), path.Join(h.meta.BasePath(), rel), payload, false); err != nil {
		return enterrors.NewErrIO(errors.Wrapf(err, "append rollback block to %s", rel))
	}
	stat.AddCommandBlock(rel, int64(len(payload)))
	return nil
}
