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
package client

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/weaviate/tablestore/entities/commit"
	enterrors "github.com/weaviate/tablestore/entities/errors"
	"github.com/weaviate/tablestore/entities/filestore"
	"github.com/weaviate/tablestore/entities/instant"
	"github.com/weaviate/tablestore/entities/table"
	"github.com/weaviate/tablestore/entities/write"
	"github.com/weaviate/tablestore/usecases/config"
	"github.com/weaviate/tablestore/usecases/markers"
	"github.com/weaviate/tablestore/usecases/monitoring"
	"github.com/weaviate/tablestore/usecases/parallel"
	"github.com/weaviate/tablestore/usecases/rollback"
	"github.com/weaviate/tablestore/usecases/timeline"
)

// Client loads the table's meta client fresh for every operation, so it
// always acts on the timeline as it is on storage.
type Client struct {
	store   filestore.FileStore
	config  *config.Config
	writer  RecordWriter
	planner CompactionPlanner
	exec    parallel.Executor
	writes  parallel.Executor
	times   *timeline.InstantTimeGenerator
	logger  logrus.FieldLogger
	metrics *monitoring.Metrics
}

// New returns a client for the table at config.Table.BasePath. planner may be
// nil when compaction is never scheduled. exec runs rollback tasks; nil
// means a pool sized by config.Rollback.Parallelism. Writes run on a pool
// sized by config.Write.Parallelism.
func New(store filestore.FileStore, cfg *config.Config, writer RecordWriter, planner CompactionPlanner,
	exec parallel.Executor, logger logrus.FieldLogger, metrics *monitoring.Metrics,
) *Client {
	if exec == nil {
		exec = parallel.NewPool(cfg.Rollback.Parallelism, logger)
	}
	return &Client{
		store:   store,
		config:  cfg,
		writer:  writer,
		planner: planner,
		exec:    exec,
		writes:  parallel.NewPool(cfg.Write.Parallelism, logger),
		times:   timeline.NewInstantTimeGenerator(nil),
		logger:  logger.WithField("table", cfg.Table.Name),
		metrics: metrics,
	}
}

// WithInstantTimes replaces the generator new instant times are taken from.
func (c *Client) WithInstantTimes(g *timeline.InstantTimeGenerator) *Client {
	c.times = g
	return c
}

func (c *Client) meta(ctx context.Context) (*timeline.MetaClient, error) {
	return timeline.NewMetaClient(ctx, c.store, c.config.Table.BasePath, c.logger)
}

// nextInstantTime returns a time after every instant on the timeline.
func (c *Client) nextInstantTime(active *timeline.ActiveTimeline) string {
	if last, ok := active.Last(); ok {
		c.times.Observe(last.Timestamp)
	}
	return c.times.Next()
}

// StartCommit creates the requested instant of a new write and returns its
// time.
func (c *Client) StartCommit(ctx context.Context) (string, error) {
	meta, err := c.meta(ctx)
	if err != nil {
		return "", err
	}
	ts := c.nextInstantTime(meta.ActiveTimeline())
	if err := c.startCommit(ctx, meta, ts); err != nil {
		return "", err
	}
	return ts, nil
}

// StartCommitWithTime is StartCommit with a caller chosen time. The time must
// be after every instant on the timeline.
func (c *Client) StartCommitWithTime(ctx context.Context, ts string) error {
	meta, err := c.meta(ctx)
	if err != nil {
		return err
	}
	return c.startCommit(ctx, meta, ts)
}

func (c *Client) startCommit(ctx context.Context, meta *timeline.MetaClient, ts string) error {
	active := meta.ActiveTimeline()
	if last, ok := active.Last(); ok && instant.CompareTimestamps(ts, last.Timestamp) <= 0 {
		return enterrors.NewInvalidState("instant time %s is not after latest instant %s", ts, last)
	}
	requested := instant.New(instant.Requested, meta.CommitActionType(), ts)
	if err := active.CreateNewInstant(ctx, requested, nil); err != nil {
		return err
	}
	c.logger.WithField("action", "start_commit").
		WithField("instant", ts).
		Info("started commit")
	return nil
}

func (c *Client) Insert(ctx context.Context, ts string, records []write.Record) ([]*write.Status, error) {
	return c.write(ctx, ts, write.Insert, records)
}

func (c *Client) Upsert(ctx context.Context, ts string, records []write.Record) ([]*write.Status, error) {
	return c.write(ctx, ts, write.Upsert, records)
}

func (c *Client) BulkInsert(ctx context.Context, ts string, records []write.Record) ([]*write.Status, error) {
	return c.write(ctx, ts, write.BulkInsert, records)
}

// Write dispatches records to the writer method for op.
func (c *Client) Write(ctx context.Context, ts string, op write.Operation,
	records []write.Record,
) ([]*write.Status, error) {
	return c.write(ctx, ts, op, records)
}

func (c *Client) write(ctx context.Context, ts string, op write.Operation,
	records []write.Record,
) ([]*write.Status, error) {
	meta, err := c.meta(ctx)
	if err != nil {
		return nil, err
	}
	active := meta.ActiveTimeline()
	current, ok := active.Get(instant.New(instant.Requested, meta.CommitActionType(), ts))
	if !ok {
		return nil, enterrors.NewInvalidState("no pending %s at %s", meta.CommitActionType(), ts)
	}
	switch {
	case current.IsCompleted():
		return nil, enterrors.NewInvalidState("instant %s is already completed", current)
	case current.IsRequested():
		if _, err := active.TransitionRequestedToInflight(ctx, current, nil); err != nil {
			return nil, err
		}
	}

	wc := WriteContext{InstantTime: ts, Meta: meta, Markers: markers.NewTracker(meta, ts), Exec: c.writes}
	c.logger.WithField("action", "write").
		WithField("instant", ts).
		WithField("operation", op).
		Debugf("writing %d records", len(records))

	switch op {
	case write.Insert:
		return c.writer.Insert(ctx, wc, records)
	case write.Upsert:
		return c.writer.Upsert(ctx, wc, records)
	case write.BulkInsert:
		return c.writer.BulkInsert(ctx, wc, records)
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
}

// Commit completes the inflight instant ts with the write stats of statuses
// and extra as metadata. It reports false when the instant could not be
// completed.
func (c *Client) Commit(ctx context.Context, ts string, op write.Operation, statuses []*write.Status,
	extra map[string]string,
) bool {
	logger := c.logger.WithField("action", "commit").WithField("instant", ts)
	if err := c.commit(ctx, ts, op, statuses, extra); err != nil {
		logger.WithError(err).Errorf("commit %s failed", ts)
		return false
	}
	logger.Infof("committed %s", ts)
	return true
}

func (c *Client) commit(ctx context.Context, ts string, op write.Operation, statuses []*write.Status,
	extra map[string]string,
) error {
	meta, err := c.meta(ctx)
	if err != nil {
		return err
	}
	payload, err := commit.NewMetadata(op, statuses, extra).Marshal()
	if err != nil {
		return err
	}
	inflight := instant.New(instant.Inflight, meta.CommitActionType(), ts)
	if _, err := meta.ActiveTimeline().SaveAsComplete(ctx, inflight, payload); err != nil {
		return err
	}
	if _, err := markers.NewTracker(meta, ts).DeleteMarkerDir(ctx); err != nil {
		// the instant is already completed
		c.logger.WithField("action", "commit").
			WithField("instant", ts).
			WithError(err).
			Warn("could not delete marker dir")
	}
	return nil
}

// CommitMetadata reads the metadata of the completed write instant ts.
func (c *Client) CommitMetadata(ctx context.Context, ts string) (*commit.Metadata, error) {
	meta, err := c.meta(ctx)
	if err != nil {
		return nil, err
	}
	completed := instant.New(instant.Completed, meta.CommitActionType(), ts)
	data, err := meta.ActiveTimeline().InstantDetails(ctx, completed)
	if err != nil {
		return nil, err
	}
	return commit.Unmarshal(data)
}

func (c *Client) rollbackOptions() rollback.Options {
	return rollback.Options{
		UseMarkers:             c.config.Rollback.UseMarkers,
		DeleteInstants:         c.config.Rollback.DeleteInstants,
		SkipTimelinePublish:    c.config.Rollback.SkipTimelinePublish,
		AssumeDatePartitioning: c.config.Rollback.AssumeDatePartitioning,
	}
}

// Rollback undoes the write instant ts in whatever state it is in. It reports
// false when ts is not on the timeline.
func (c *Client) Rollback(ctx context.Context, ts string) (bool, error) {
	meta, err := c.meta(ctx)
	if err != nil {
		return false, err
	}
	target, ok := meta.CommitsTimeline().Find(ts)
	if !ok {
		c.logger.WithField("action", "rollback").
			WithField("instant", ts).
			Warnf("cannot find instant %s in the timeline for rollback", ts)
		return false, nil
	}
	return true, c.rollback(ctx, meta, target)
}

func (c *Client) rollback(ctx context.Context, meta *timeline.MetaClient, target instant.Instant) error {
	rollbackTime := c.nextInstantTime(meta.ActiveTimeline())
	executor := rollback.NewActionExecutor(meta, c.exec, c.rollbackOptions(), rollbackTime, target,
		c.logger, c.metrics)
	_, err := executor.Execute(ctx)
	return err
}

// RollbackPendingCommits rolls back every requested or inflight write,
// newest first, and returns their times.
func (c *Client) RollbackPendingCommits(ctx context.Context) ([]string, error) {
	meta, err := c.meta(ctx)
	if err != nil {
		return nil, err
	}
	pending := meta.CommitsTimeline().FilterPending().Reverse()
	done := make([]string, 0, len(pending))
	for _, target := range pending {
		if err := c.rollback(ctx, meta, target); err != nil {
			return done, err
		}
		done = append(done, target.Timestamp)
	}
	return done, nil
}

// ScheduleCompaction asks the planner for a compaction plan and, if there is
// one, writes it as a requested compaction. Only merge-on-read tables are
// compacted.
func (c *Client) ScheduleCompaction(ctx context.Context) (string, bool, error) {
	if c.planner == nil {
		return "", false, nil
	}
	meta, err := c.meta(ctx)
	if err != nil {
		return "", false, err
	}
	if meta.TableType() != table.MergeOnRead {
		return "", false, nil
	}
	active := meta.ActiveTimeline()
	plan, ok, err := c.planner.Plan(ctx, active.FilterCompleted())
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	ts := c.nextInstantTime(active)
	if err := active.CreateNewInstant(ctx, instant.New(instant.Requested, instant.Compaction, ts), plan); err != nil {
		return "", false, err
	}
	c.logger.WithField("action", "schedule_compaction").
		WithField("instant", ts).
		Info("scheduled compaction")
	return ts, true, nil
}

// Markers returns the marker tracker of the write instant ts.
func (c *Client) Markers(ctx context.Context, ts string) (*markers.Tracker, error) {
	meta, err := c.meta(ctx)
	if err != nil {
		return nil, err
	}
	return markers.NewTracker(meta, ts), nil
}
