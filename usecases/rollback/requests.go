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

	"github.com/pkg/errors"

	"github.com/weaviate/tablestore/entities/datafile"
	"github.com/weaviate/tablestore/entities/rollback"
	"github.com/weaviate/tablestore/usecases/markers"
	"github.com/weaviate/tablestore/usecases/tablefs"
	"github.com/weaviate/tablestore/usecases/timeline"
)

// ListingRequests asks for a full scan of every partition of the table.
func ListingRequests(ctx context.Context, meta *timeline.MetaClient,
	assumeDatePartitioning bool,
) ([]rollback.Request, error) {
	partitions, err := tablefs.AllPartitionPaths(ctx, meta.Store(), meta.BasePath(), assumeDatePartitioning)
	if err != nil {
		return nil, errors.Wrap(err, "generate rollback requests")
	}
	reqs := make([]rollback.Request, 0, len(partitions))
	for _, p := range partitions {
		reqs = append(reqs, rollback.NewDeletePartitionRequest(p))
	}
	return reqs, nil
}

// MarkerRequests turns every marker of the instant into exact work: created
// and merged files are deleted, appended log files get a rollback block.
// The marker files themselves are removed last.
func MarkerRequests(ctx context.Context, tracker *markers.Tracker) ([]rollback.Request, error) {
	all, err := tracker.AllMarkers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "generate rollback requests")
	}
	reqs := make([]rollback.Request, 0, len(all)+1)
	for _, m := range all {
		switch m.IOType {
		case markers.Create, markers.Merge:
			reqs = append(reqs, rollback.NewDeleteFileRequest(m.PartitionPath, m.DataFilePath()))
		case markers.Append:
			lf, ok := datafile.ParseLogFile(m.DataFileName)
			if !ok {
				return nil, errors.Errorf("append marker for non log file %q", m.DataFilePath())
			}
			reqs = append(reqs, rollback.NewAppendRollbackBlockRequest(m.PartitionPath, lf.FileID, lf.BaseInstant))
		}
	}
	return append(reqs, rollback.NewDeleteMarkerFilesRequest()), nil
}
