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
// Package client drives the instants of one table: it starts commits, hands
// records to the writer, completes or rolls back the instant and schedules
// compactions.
package client

import (
	"context"

	"github.com/weaviate/tablestore/entities/write"
	"github.com/weaviate/tablestore/usecases/markers"
	"github.com/weaviate/tablestore/usecases/parallel"
	"github.com/weaviate/tablestore/usecases/timeline"
)

// WriteContext is what a RecordWriter needs to write files for an inflight
// instant. Every data file written must be marked with Markers before it is
// created.
type WriteContext struct {
	InstantTime string
	Meta        *timeline.MetaClient
	Markers     *markers.Tracker
	// Exec runs the per-file writes of a batch, sized by write.parallelism.
	Exec parallel.Executor
}

// RecordWriter writes the data files of a batch. It reports per file
// outcomes; a returned error means the write failed as a whole.
type RecordWriter interface {
	Insert(ctx context.Context, wc WriteContext, records []write.Record) ([]*write.Status, error)
	Upsert(ctx context.Context, wc WriteContext, records []write.Record) ([]*write.Status, error)
	BulkInsert(ctx context.Context, wc WriteContext, records []write.Record) ([]*write.Status, error)
}

// CompactionPlanner decides whether the completed instants warrant a
// compaction and returns the serialized plan.
type CompactionPlanner interface {
	Plan(ctx context.Context, completed *timeline.Timeline) (plan []byte, ok bool, err error)
}
