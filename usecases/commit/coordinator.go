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
package commit

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/tablestore/entities/commit"
	enterrors "github.com/weaviate/tablestore/entities/errors"
	"github.com/weaviate/tablestore/entities/filestore"
	"github.com/weaviate/tablestore/entities/retry"
	"github.com/weaviate/tablestore/entities/write"
	"github.com/weaviate/tablestore/usecases/config"
	"github.com/weaviate/tablestore/usecases/monitoring"
	"github.com/weaviate/tablestore/usecases/timeline"
)

const (
	// start commit is attempted once more than this
	startCommitRetries = 2
	// statuses with errors logged before a rollback
	maxLoggedErrors = 100
)

// Coordinator processes one batch at a time.
type Coordinator struct {
	store   filestore.FileStore
	config  *config.Config
	op      write.Operation
	client  WriteClient
	keys    KeyIndex
	catalog CatalogSyncer
	logger  logrus.Ext1FieldLogger
	metrics *monitoring.Metrics

	mu        sync.Mutex
	state     State
	completed *timeline.Timeline
}

// NewCoordinator needs keys when duplicates are filtered and catalog when the
// catalog is synced, both may be nil otherwise.
func NewCoordinator(store filestore.FileStore, cfg *config.Config, client WriteClient, keys KeyIndex,
	catalog CatalogSyncer, logger logrus.FieldLogger, metrics *monitoring.Metrics,
) (*Coordinator, error) {
	op, err := write.ParseOperation(cfg.Write.Operation)
	if err != nil {
		return nil, errors.Wrap(err, "write operation")
	}
	if cfg.Write.FilterDupes && keys == nil {
		return nil, errors.New("filtering duplicates needs a key index")
	}
	if cfg.Write.CatalogSync && catalog == nil {
		return nil, errors.New("catalog sync needs a catalog syncer")
	}
	return &Coordinator{
		store:   store,
		config:  cfg,
		op:      op,
		client:  client,
		keys:    keys,
		catalog: catalog,
		logger: logger.WithField("action", "write_batch").
			WithField("table", cfg.Table.Name),
		metrics: metrics,
		state:   StateIdle,
	}, nil
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// CompletedTimeline is the timeline of completed writes as of the start of
// the last batch. It is nil before the first batch and when the table was
// created by it.
func (c *Coordinator) CompletedTimeline() *timeline.Timeline {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// Process writes batch under a new instant. A batch that cannot be committed
// is rolled back and ErrCommitRolledBack is returned.
func (c *Coordinator) Process(ctx context.Context, batch Batch) (*Result, error) {
	defer c.setState(StateIdle)

	if err := c.refreshTimeline(ctx); err != nil {
		return nil, err
	}

	op, records := c.op, batch.Records
	if c.config.Write.FilterDupes {
		if op == write.Upsert {
			op = write.Insert
		}
		var err error
		if records, err = c.dropDuplicates(ctx, records); err != nil {
			return nil, errors.Wrap(err, "filter duplicates")
		}
	}
	empty := len(records) == 0

	c.setState(StateStarting)
	ts, err := c.startCommit(ctx)
	if err != nil {
		c.metrics.CommitOutcome(c.config.Table.Name, monitoring.OutcomeFailed)
		return nil, err
	}
	logger := c.logger.WithField("instant", ts)
	logger.Infof("starting commit %s", ts)

	c.setState(writeState(op))
	statuses, err := c.client.Write(ctx, ts, op, records)
	if err != nil {
		return nil, c.rollback(ctx, ts, errors.Wrap(err, "write records"))
	}

	totalRecords, totalErrors := write.Totals(statuses)
	c.metrics.Records(c.config.Table.Name, totalRecords, totalErrors)
	result := &Result{
		InstantTime:       ts,
		Operation:         op,
		TotalRecords:      totalRecords,
		TotalErrorRecords: totalErrors,
	}

	hasErrors := totalErrors > 0
	if hasErrors && !c.config.Write.CommitOnErrors {
		logger.Errorf("found errors when writing. Errors/Total=%d/%d", totalErrors, totalRecords)
		c.logErrors(logger, statuses)
		return nil, c.rollback(ctx, ts,
			errors.Errorf("%d of %d records failed", totalErrors, totalRecords))
	}

	c.setState(StateCommitting)
	if hasErrors {
		logger.Warnf("some records failed to be written but forcing commit since commit on errors is set. "+
			"Errors/Total=%d/%d", totalErrors, totalRecords)
	}
	if !c.client.Commit(ctx, ts, op, statuses, c.checkpointMetadata(batch)) {
		return nil, c.rollback(ctx, ts, errors.Errorf("commit %s failed", ts))
	}
	logger.Infof("commit %s successful", ts)
	c.metrics.CommitOutcome(c.config.Table.Name, monitoring.OutcomeCommitted)

	if rec, ok := c.keys.(KeyRecorder); ok && !empty {
		if err := rec.Add(ctx, ts, committedKeys(records, statuses)); err != nil {
			return result, errors.Wrapf(err, "record keys of %s", ts)
		}
	}

	if c.config.Write.AsyncCompaction {
		compaction, ok, err := c.client.ScheduleCompaction(ctx)
		if err != nil {
			return result, errors.Wrapf(err, "schedule compaction after %s", ts)
		}
		if ok {
			result.CompactionInstant = compaction
		}
	}

	if !empty && c.config.Write.CatalogSync {
		logger.Infof("syncing table with catalog, base path: %s", c.config.Table.BasePath)
		if err := c.catalog.Sync(ctx, c.config.Table.Name, c.config.Table.BasePath); err != nil {
			return result, errors.Wrapf(err, "catalog sync after %s", ts)
		}
	}
	return result, nil
}

// refreshTimeline creates the table when it does not exist yet.
func (c *Coordinator) refreshTimeline(ctx context.Context) error {
	tl, err := timeline.Refresh(ctx, c.store, c.config.Table.BasePath, c.config.Table.TableConfig(), c.logger)
	if err != nil {
		return errors.Wrap(err, "refresh timeline")
	}
	c.mu.Lock()
	c.completed = tl
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) startCommit(ctx context.Context) (string, error) {
	var ts string
	onRetry := func(err error, next time.Duration) {
		c.metrics.StartCommitRetry(c.config.Table.Name)
		c.logger.WithError(err).
			Errorf("got error trying to start a new commit, retrying after %s", next)
	}
	err := retry.Do(ctx, retry.ConstantBackoff(startCommitRetries, c.config.Write.StartCommitRetryInterval),
		enterrors.IsTransient, onRetry, func() error {
			var err error
			ts, err = c.client.StartCommit(ctx)
			return err
		})
	if err != nil {
		return "", err
	}
	return ts, nil
}

func (c *Coordinator) dropDuplicates(ctx context.Context, records []write.Record) ([]write.Record, error) {
	if len(records) == 0 {
		return records, nil
	}
	keys := make([]write.Key, len(records))
	for i, r := range records {
		keys[i] = r.Key
	}
	existing, err := c.keys.Existing(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make([]write.Record, 0, len(records))
	for _, r := range records {
		if !existing[r.Key] {
			out = append(out, r)
		}
	}
	if dropped := len(records) - len(out); dropped > 0 {
		c.logger.Infof("dropped %d duplicate records", dropped)
	}
	return out, nil
}

// committedKeys leaves out the records the writer reported as failed.
func committedKeys(records []write.Record, statuses []*write.Status) []write.Key {
	failed := map[write.Key]struct{}{}
	for _, s := range statuses {
		if s == nil {
			continue
		}
		for k := range s.Errors {
			failed[k] = struct{}{}
		}
	}
	out := make([]write.Key, 0, len(records))
	for _, r := range records {
		if _, ok := failed[r.Key]; !ok {
			out = append(out, r.Key)
		}
	}
	return out
}

func (c *Coordinator) checkpointMetadata(batch Batch) map[string]string {
	md := map[string]string{commit.CheckpointKey: batch.Checkpoint}
	if c.config.Write.CheckpointReset != "" {
		md[commit.CheckpointResetKey] = c.config.Write.CheckpointReset
	}
	return md
}

func (c *Coordinator) logErrors(logger logrus.Ext1FieldLogger, statuses []*write.Status) {
	logger.Errorf("printing out the top %d errors", maxLoggedErrors)
	logged := 0
	for _, s := range statuses {
		if s == nil || !s.HasErrors() {
			continue
		}
		if logged == maxLoggedErrors {
			return
		}
		logged++
		logger.WithError(s.GlobalError).
			WithField("file_id", s.FileID).
			WithField("partition", s.PartitionPath).
			Error("global error")
		for key, err := range s.Errors {
			logger.Tracef("error for key %s is %v", key, err)
		}
	}
}

func (c *Coordinator) rollback(ctx context.Context, ts string, cause error) error {
	c.setState(StateRollingBack)
	c.logger.WithField("instant", ts).WithError(cause).Warnf("rolling back %s", ts)

	if _, err := c.client.Rollback(ctx, ts); err != nil {
		c.metrics.CommitOutcome(c.config.Table.Name, monitoring.OutcomeFailed)
		return multierror.Append(cause, errors.Wrapf(err, "rollback %s", ts))
	}
	c.metrics.CommitOutcome(c.config.Table.Name, monitoring.OutcomeRolledBack)
	return ErrCommitRolledBack{InstantTime: ts, Cause: cause}
}
