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
// Package commit turns batches of records into instants on the table's
// timeline. Each batch is written under a new instant that is either
// committed or rolled back before the next batch starts.
package commit

import (
	"context"
	"fmt"

	"github.com/weaviate/tablestore/entities/write"
)

// State of the coordinator while it processes a batch.
type State string

const (
	StateIdle        State = "IDLE"
	StateStarting    State = "STARTING"
	StateInsert      State = "INSERT"
	StateUpsert      State = "UPSERT"
	StateBulkInsert  State = "BULK_INSERT"
	StateCommitting  State = "COMMITTING"
	StateRollingBack State = "ROLLING_BACK"
)

func writeState(op write.Operation) State {
	switch op {
	case write.Insert:
		return StateInsert
	case write.BulkInsert:
		return StateBulkInsert
	default:
		return StateUpsert
	}
}

// WriteClient is the part of the table client the coordinator drives.
type WriteClient interface {
	StartCommit(ctx context.Context) (string, error)
	Write(ctx context.Context, ts string, op write.Operation, records []write.Record) ([]*write.Status, error)
	Commit(ctx context.Context, ts string, op write.Operation, statuses []*write.Status, extra map[string]string) bool
	Rollback(ctx context.Context, ts string) (bool, error)
	ScheduleCompaction(ctx context.Context) (string, bool, error)
}

// KeyIndex reports which keys already exist in the table.
type KeyIndex interface {
	Existing(ctx context.Context, keys []write.Key) (map[write.Key]bool, error)
}

// KeyRecorder is implemented by key indexes that learn the keys of
// committed batches.
type KeyRecorder interface {
	Add(ctx context.Context, instantTime string, keys []write.Key) error
}

// CatalogSyncer publishes the table to an external catalog.
type CatalogSyncer interface {
	Sync(ctx context.Context, tableName, basePath string) error
}

// Batch is one unit of work. Checkpoint is the source position the batch
// ends at and is stored with the commit.
type Batch struct {
	Records    []write.Record
	Checkpoint string
}

type Result struct {
	InstantTime       string
	Operation         write.Operation
	TotalRecords      int64
	TotalErrorRecords int64
	// CompactionInstant is set when a compaction was scheduled after the
	// commit.
	CompactionInstant string
}

// ErrCommitRolledBack is returned when a batch could not be committed and
// its instant was rolled back. The batch must not be considered written.
type ErrCommitRolledBack struct {
	InstantTime string
	Cause       error
}

func (e ErrCommitRolledBack) Error() string {
	return fmt.Sprintf("commit %s failed and rolled back: %v", e.InstantTime, e.Cause)
}

func (e ErrCommitRolledBack) Unwrap() error {
	return e.Cause
}
