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
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	enterrors "github.com/weaviate/tablestore/entities/errors"
	"github.com/weaviate/tablestore/entities/instant"
	"github.com/weaviate/tablestore/entities/rollback"
	"github.com/weaviate/tablestore/entities/table"
	"github.com/weaviate/tablestore/usecases/markers"
	"github.com/weaviate/tablestore/usecases/monitoring"
	"github.com/weaviate/tablestore/usecases/parallel"
	"github.com/weaviate/tablestore/usecases/timeline"
)

type Options struct {
	UseMarkers             bool
	DeleteInstants         bool
	SkipTimelinePublish    bool
	AssumeDatePartitioning bool
}

// ActionExecutor rolls back one instant of a table. Running it again for the
// same instant is safe.
type ActionExecutor struct {
	meta        *timeline.MetaClient
	exec        parallel.Executor
	opts        Options
	instantTime string
	target      instant.Instant
	logger      logrus.FieldLogger
	metrics     *monitoring.Metrics
}

// NewActionExecutor prepares the rollback of target under the new rollback
// instant instantTime.
func NewActionExecutor(meta *timeline.MetaClient, exec parallel.Executor, opts Options,
	instantTime string, target instant.Instant, logger logrus.FieldLogger, metrics *monitoring.Metrics,
) *ActionExecutor {
	return &ActionExecutor{
		meta:        meta,
		exec:        exec,
		opts:        opts,
		instantTime: instantTime,
		target:      target,
		logger: logger.WithField("action", "rollback").
			WithField("table", meta.TableConfig().Name).
			WithField("instant", target.Timestamp),
		metrics: metrics,
	}
}

// Strategy is picked from the options alone.
func (e *ActionExecutor) Strategy() Strategy {
	helper := NewHelper(e.meta, e.exec, e.instantTime, e.logger)
	listing := NewListingBased(e.meta, helper, e.opts.AssumeDatePartitioning)
	if e.opts.UseMarkers {
		return NewMarkerBased(e.meta, helper, listing, e.logger)
	}
	return listing
}

func (e *ActionExecutor) Execute(ctx context.Context) ([]*rollback.Stat, error) {
	started := time.Now()

	active, err := e.meta.ReloadActiveTimeline(ctx)
	if err != nil {
		return nil, err
	}
	// the state on disk may differ from the one the caller saw
	resolved, ok := active.Get(e.target)
	if !ok {
		e.logger.Info("instant not on the timeline, nothing to roll back")
		return nil, nil
	}
	if err := e.validate(active.Timeline, resolved); err != nil {
		return nil, err
	}

	if resolved.IsCompleted() {
		e.logger.Infof("unpublishing instant %s", resolved)
		if resolved, err = active.RevertToInflight(ctx, resolved); err != nil {
			return nil, err
		}
		if _, err := e.meta.ReloadActiveTimeline(ctx); err != nil {
			return nil, err
		}
	}

	var stats []*rollback.Stat
	strategy := e.Strategy()
	// a requested instant wrote nothing, only its markers need to go
	if !resolved.IsRequested() {
		e.logger.WithField("strategy", strategy.Name()).
			Infof("clean out all files written by %s", resolved)
		if stats, err = strategy.Execute(ctx, resolved); err != nil {
			return nil, err
		}
	}

	if err := e.deleteInflightAndRequested(ctx, active, resolved); err != nil {
		return nil, err
	}

	took := time.Since(started)
	if !e.opts.SkipTimelinePublish {
		if err := e.finishRollback(ctx, started, took, stats); err != nil {
			return nil, err
		}
	}

	e.metrics.RollbackDone(e.meta.TableConfig().Name, strategy.Name(), stats, took)
	e.logger.WithField("took", took).Infof("finished rollback of %s", resolved)
	return stats, nil
}

func (e *ActionExecutor) validate(tl *timeline.Timeline, resolved instant.Instant) error {
	if e.meta.TableType() != table.CopyOnWrite || !resolved.IsCompleted() {
		return nil
	}
	later := tl.FilterByActions(instant.Commit, instant.DeltaCommit).
		FilterCompleted().
		FindInstantsAfter(resolved.Timestamp)
	if !later.Empty() {
		first, _ := later.First()
		return errors.Wrapf(enterrors.ErrRollbackSequence, "found commit %s after %s, roll back newer commits first",
			first.Timestamp, resolved.Timestamp)
	}
	return nil
}

func (e *ActionExecutor) deleteInflightAndRequested(ctx context.Context, active *timeline.ActiveTimeline,
	resolved instant.Instant,
) error {
	if !e.opts.DeleteInstants {
		e.logger.Warnf("rollback finished without deleting inflight instant file of %s", resolved)
		return nil
	}
	if err := active.DeletePending(ctx, resolved.WithState(instant.Inflight)); err != nil {
		return err
	}
	return active.DeletePending(ctx, resolved.WithState(instant.Requested))
}

// finishRollback removes the target's markers and publishes the rollback
// instant with its metadata.
func (e *ActionExecutor) finishRollback(ctx context.Context, started time.Time, took time.Duration,
	stats []*rollback.Stat,
) error {
	if _, err := markers.NewTracker(e.meta, e.target.Timestamp).DeleteMarkerDir(ctx); err != nil {
		return err
	}

	md := rollback.NewMetadata(started.UTC().Format(timeline.InstantTimeFormat), took.Milliseconds(),
		[]string{e.target.Timestamp}, stats)
	payload, err := md.Marshal()
	if err != nil {
		return err
	}

	active, err := e.meta.ReloadActiveTimeline(ctx)
	if err != nil {
		return err
	}
	inflight := instant.New(instant.Inflight, instant.Rollback, e.instantTime)
	existing, ok := active.Get(inflight)
	switch {
	case ok && existing.IsCompleted():
		return nil
	case !ok:
		if err := active.CreateNewInstant(ctx, inflight, nil); err != nil {
			return err
		}
	}
	if _, err := active.SaveAsComplete(ctx, inflight, payload); err != nil {
		return err
	}
	_, err = e.meta.ReloadActiveTimeline(ctx)
	return err
}
