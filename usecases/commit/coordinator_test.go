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
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/tablestore/entities/commit"
	enterrors "github.com/weaviate/tablestore/entities/errors"
	"github.com/weaviate/tablestore/entities/instant"
	"github.com/weaviate/tablestore/entities/table"
	"github.com/weaviate/tablestore/entities/write"
	modfsmem "github.com/weaviate/tablestore/modules/filestore-memory"
	modkibolt "github.com/weaviate/tablestore/modules/keyindex-bolt"
	"github.com/weaviate/tablestore/usecases/client"
	"github.com/weaviate/tablestore/usecases/client/clienttest"
	"github.com/weaviate/tablestore/usecases/config"
	"github.com/weaviate/tablestore/usecases/monitoring"
	"github.com/weaviate/tablestore/usecases/parallel"
	"github.com/weaviate/tablestore/usecases/timeline"
)

const basePath = "warehouse/trips"

type fakeClient struct {
	mock.Mock
}

func (f *fakeClient) StartCommit(ctx context.Context) (string, error) {
	args := f.Called(ctx)
	return args.String(0), args.Error(1)
}

func (f *fakeClient) Write(ctx context.Context, ts string, op write.Operation,
	records []write.Record,
) ([]*write.Status, error) {
	args := f.Called(ctx, ts, op, records)
	statuses, _ := args.Get(0).([]*write.Status)
	return statuses, args.Error(1)
}

func (f *fakeClient) Commit(ctx context.Context, ts string, op write.Operation, statuses []*write.Status,
	extra map[string]string,
) bool {
	args := f.Called(ctx, ts, op, statuses, extra)
	return args.Bool(0)
}

func (f *fakeClient) Rollback(ctx context.Context, ts string) (bool, error) {
	args := f.Called(ctx, ts)
	return args.Bool(0), args.Error(1)
}

func (f *fakeClient) ScheduleCompaction(ctx context.Context) (string, bool, error) {
	args := f.Called(ctx)
	return args.String(0), args.Bool(1), args.Error(2)
}

type fakeKeyIndex struct {
	mock.Mock
}

func (f *fakeKeyIndex) Existing(ctx context.Context, keys []write.Key) (map[write.Key]bool, error) {
	args := f.Called(ctx, keys)
	existing, _ := args.Get(0).(map[write.Key]bool)
	return existing, args.Error(1)
}

type fakeCatalog struct {
	mock.Mock
}

func (f *fakeCatalog) Sync(ctx context.Context, tableName, basePath string) error {
	return f.Called(ctx, tableName, basePath).Error(0)
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Table.BasePath = basePath
	cfg.Table.Name = "trips"
	cfg.Write.StartCommitRetryInterval = time.Millisecond
	return &cfg
}

type fixture struct {
	store   *modfsmem.Store
	config  *config.Config
	writer  *clienttest.Writer
	client  *client.Client
	metrics *monitoring.Metrics
	logger  *logrus.Logger
	hook    *test.Hook
}

// newFixture wires the coordinator to a real client on an empty store.
func newFixture(t *testing.T, modify func(*config.Config)) *fixture {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.TraceLevel)
	cfg := testConfig()
	if modify != nil {
		modify(cfg)
	}
	store := modfsmem.New()
	f := &fixture{
		store:   store,
		config:  cfg,
		writer:  clienttest.NewWriter(store),
		metrics: monitoring.NewMetrics(prometheus.NewRegistry()),
		logger:  logger,
		hook:    hook,
	}
	f.client = client.New(store, cfg, f.writer, nil, parallel.Local{}, logger, f.metrics)
	return f
}

func (f *fixture) coordinator(t *testing.T, keys KeyIndex, catalog CatalogSyncer) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(f.store, f.config, f.client, keys, catalog, f.logger, f.metrics)
	require.NoError(t, err)
	return c
}

func (f *fixture) timeline(t *testing.T) *timeline.ActiveTimeline {
	t.Helper()
	meta, err := timeline.NewMetaClient(context.Background(), f.store, basePath, f.logger)
	require.NoError(t, err)
	return meta.ActiveTimeline()
}

func (f *fixture) dataFiles() []string {
	var out []string
	for _, p := range f.store.Files() {
		if strings.HasSuffix(p, ".parquet") {
			out = append(out, p)
		}
	}
	return out
}

func (f *fixture) outcome(outcome string) float64 {
	return testutil.ToFloat64(f.metrics.Commits.WithLabelValues("trips", outcome))
}

func TestProcessCommitsCleanBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	c := f.coordinator(t, nil, nil)

	res, err := c.Process(ctx, Batch{Records: clienttest.Records(100, "p1", "p2"), Checkpoint: "offset-100"})
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.TotalRecords)
	assert.Equal(t, int64(0), res.TotalErrorRecords)
	assert.Equal(t, StateIdle, c.State())
	// the first batch created the table
	assert.Nil(t, c.CompletedTimeline())

	completed := f.timeline(t).FilterByActions(instant.Commit).FilterCompleted()
	require.Equal(t, 1, completed.Count())
	md, err := f.client.CommitMetadata(ctx, res.InstantTime)
	require.NoError(t, err)
	checkpoint, ok := md.Checkpoint()
	require.True(t, ok)
	assert.Equal(t, "offset-100", checkpoint)
	_, hasReset := md.ExtraMetadata[commit.CheckpointResetKey]
	assert.False(t, hasReset)
	assert.Len(t, f.dataFiles(), 2)
	assert.Equal(t, float64(1), f.outcome(monitoring.OutcomeCommitted))

	res2, err := c.Process(ctx, Batch{Records: clienttest.Records(5, "p1"), Checkpoint: "offset-105"})
	require.NoError(t, err)
	assert.Greater(t, res2.InstantTime, res.InstantTime)
	require.NotNil(t, c.CompletedTimeline())
	assert.Equal(t, 1, c.CompletedTimeline().Count())
}

func TestProcessStoresCheckpointReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(cfg *config.Config) { cfg.Write.CheckpointReset = "earliest" })
	c := f.coordinator(t, nil, nil)

	res, err := c.Process(ctx, Batch{Records: clienttest.Records(1), Checkpoint: "offset-1"})
	require.NoError(t, err)

	md, err := f.client.CommitMetadata(ctx, res.InstantTime)
	require.NoError(t, err)
	assert.Equal(t, "earliest", md.ExtraMetadata[commit.CheckpointResetKey])
}

func TestProcessRollsBackOnErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	for i := 0; i < 10; i++ {
		f.writer.FailKeys[clienttest.Records(100)[i*10].Key.RecordKey] = true
	}
	c := f.coordinator(t, nil, nil)

	_, err := c.Process(ctx, Batch{Records: clienttest.Records(100, "p1", "p2")})
	require.Error(t, err)
	var rolledBack ErrCommitRolledBack
	require.ErrorAs(t, err, &rolledBack)
	assert.NotEmpty(t, rolledBack.InstantTime)
	assert.Contains(t, err.Error(), "10 of 100 records failed")
	assert.Equal(t, StateIdle, c.State())

	tl := f.timeline(t)
	assert.True(t, tl.FilterByActions(instant.Commit).Empty())
	assert.Equal(t, 1, tl.FilterByActions(instant.Rollback).FilterCompleted().Count())
	assert.Empty(t, f.dataFiles())
	assert.Equal(t, float64(1), f.outcome(monitoring.OutcomeRolledBack))
	assert.Equal(t, float64(10), testutil.ToFloat64(f.metrics.ErrorRecords.WithLabelValues("trips")))

	var traced int
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.TraceLevel && strings.HasPrefix(e.Message, "error for key") {
			traced++
		}
	}
	assert.Equal(t, 10, traced)
}

func TestProcessCommitOnErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(cfg *config.Config) { cfg.Write.CommitOnErrors = true })
	f.writer.FailKeys["key-0"] = true
	c := f.coordinator(t, nil, nil)

	res, err := c.Process(ctx, Batch{Records: clienttest.Records(10, "p1")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.TotalErrorRecords)
	assert.Equal(t, 1, f.timeline(t).FilterByActions(instant.Commit).FilterCompleted().Count())

	var warned bool
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.WarnLevel && strings.Contains(e.Message, "forcing commit") {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestProcessEmptyBatchSkipsCatalogSync(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(cfg *config.Config) { cfg.Write.CatalogSync = true })
	catalog := &fakeCatalog{}
	catalog.On("Sync", mock.Anything, "trips", basePath).Return(nil)
	c := f.coordinator(t, nil, catalog)

	res, err := c.Process(ctx, Batch{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.TotalRecords)
	assert.Equal(t, 1, f.timeline(t).FilterByActions(instant.Commit).FilterCompleted().Count())
	catalog.AssertNotCalled(t, "Sync", mock.Anything, mock.Anything, mock.Anything)

	_, err = c.Process(ctx, Batch{Records: clienttest.Records(1)})
	require.NoError(t, err)
	catalog.AssertNumberOfCalls(t, "Sync", 1)
}

func TestFilterDupesAgainstCommittedKeys(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(cfg *config.Config) { cfg.Write.FilterDupes = true })
	f.writer.FailKeys["key-4"] = true
	idx, err := modkibolt.Open(filepath.Join(t.TempDir(), "keys.db"), f.logger)
	require.NoError(t, err)
	defer idx.Close()
	c := f.coordinator(t, idx, nil)

	_, err = c.Process(ctx, Batch{Records: clienttest.Records(5, "p")})
	require.Error(t, err, "a failed record rolls the batch back")

	f.writer.FailKeys = map[string]bool{}
	res, err := c.Process(ctx, Batch{Records: clienttest.Records(5, "p")})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.TotalRecords, "keys of a rolled back batch are not recorded")

	res, err = c.Process(ctx, Batch{Records: clienttest.Records(7, "p")})
	require.NoError(t, err)
	assert.Equal(t, write.Insert, res.Operation)
	assert.Equal(t, int64(2), res.TotalRecords)
	assert.Equal(t, []write.Operation{write.Insert, write.Insert, write.Insert}, f.writer.Calls())
}

func TestProcessRejectsUnsupportedTable(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) { cfg.Table.Type = "BOTH" })
	c := f.coordinator(t, nil, nil)

	_, err := c.Process(context.Background(), Batch{})
	assert.ErrorIs(t, err, enterrors.ErrUnsupportedTableType)
}

// mocked client from here on

func newMockedCoordinator(t *testing.T, modify func(*config.Config), keys KeyIndex) (*Coordinator, *fakeClient,
	*monitoring.Metrics,
) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	cfg := testConfig()
	if modify != nil {
		modify(cfg)
	}
	fc := &fakeClient{}
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	c, err := NewCoordinator(modfsmem.New(), cfg, fc, keys, nil, logger, metrics)
	require.NoError(t, err)
	return c, fc, metrics
}

func TestStartCommitRetries(t *testing.T) {
	t.Run("gives up after three attempts", func(t *testing.T) {
		c, fc, metrics := newMockedCoordinator(t, nil, nil)
		injected := enterrors.NewInvalidState("instant time is not after latest instant")
		fc.On("StartCommit", mock.Anything).Return("", injected)

		_, err := c.Process(context.Background(), Batch{})
		assert.Equal(t, injected, err)
		fc.AssertNumberOfCalls(t, "StartCommit", 3)
		fc.AssertNotCalled(t, "Rollback", mock.Anything, mock.Anything)
		assert.Equal(t, float64(2), testutil.ToFloat64(metrics.StartCommitRetries.WithLabelValues("trips")))
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		c, fc, _ := newMockedCoordinator(t, nil, nil)
		injected := errors.New("storage unavailable")
		fc.On("StartCommit", mock.Anything).Return("", injected)

		_, err := c.Process(context.Background(), Batch{})
		assert.Equal(t, injected, err)
		fc.AssertNumberOfCalls(t, "StartCommit", 1)
	})

	t.Run("missing table is not retried", func(t *testing.T) {
		c, fc, metrics := newMockedCoordinator(t, nil, nil)
		injected := enterrors.NewTableNotFound("warehouse/trips/.meta/table.json")
		fc.On("StartCommit", mock.Anything).Return("", injected)

		_, err := c.Process(context.Background(), Batch{})
		assert.ErrorIs(t, err, enterrors.ErrTableNotFound)
		fc.AssertNumberOfCalls(t, "StartCommit", 1)
		assert.Equal(t, float64(0), testutil.ToFloat64(metrics.StartCommitRetries.WithLabelValues("trips")))
	})

	t.Run("succeeds on a later attempt", func(t *testing.T) {
		c, fc, _ := newMockedCoordinator(t, nil, nil)
		fc.On("StartCommit", mock.Anything).Return("", enterrors.NewInvalidState("busy")).Once()
		fc.On("StartCommit", mock.Anything).Return("20240301120000", nil).Once()
		fc.On("Write", mock.Anything, "20240301120000", write.Upsert, mock.Anything).
			Return([]*write.Status{}, nil)
		fc.On("Commit", mock.Anything, "20240301120000", write.Upsert, mock.Anything, mock.Anything).
			Return(true)

		res, err := c.Process(context.Background(), Batch{})
		require.NoError(t, err)
		assert.Equal(t, "20240301120000", res.InstantTime)
		fc.AssertNumberOfCalls(t, "StartCommit", 2)
	})
}

func TestFailedCommitIsRolledBack(t *testing.T) {
	c, fc, metrics := newMockedCoordinator(t, nil, nil)
	ts := "20240301120000"
	fc.On("StartCommit", mock.Anything).Return(ts, nil)
	fc.On("Write", mock.Anything, ts, write.Upsert, mock.Anything).
		Return([]*write.Status{{TotalRecords: 1}}, nil)
	fc.On("Commit", mock.Anything, ts, write.Upsert, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { assert.Equal(t, StateCommitting, c.State()) }).
		Return(false)
	fc.On("Rollback", mock.Anything, ts).
		Run(func(mock.Arguments) { assert.Equal(t, StateRollingBack, c.State()) }).
		Return(true, nil)

	_, err := c.Process(context.Background(), Batch{Records: clienttest.Records(1)})
	var rolledBack ErrCommitRolledBack
	require.ErrorAs(t, err, &rolledBack)
	assert.Equal(t, ts, rolledBack.InstantTime)
	fc.AssertExpectations(t)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Commits.WithLabelValues("trips", monitoring.OutcomeRolledBack)))
}

func TestWriteErrorIsRolledBack(t *testing.T) {
	c, fc, _ := newMockedCoordinator(t, func(cfg *config.Config) { cfg.Write.Operation = "bulk_insert" }, nil)
	ts := "20240301120000"
	writeErr := errors.New("disk full")
	fc.On("StartCommit", mock.Anything).Return(ts, nil)
	fc.On("Write", mock.Anything, ts, write.BulkInsert, mock.Anything).
		Run(func(mock.Arguments) { assert.Equal(t, StateBulkInsert, c.State()) }).
		Return(nil, writeErr)
	fc.On("Rollback", mock.Anything, ts).Return(true, nil)

	_, err := c.Process(context.Background(), Batch{Records: clienttest.Records(1)})
	var rolledBack ErrCommitRolledBack
	require.ErrorAs(t, err, &rolledBack)
	assert.ErrorIs(t, err, writeErr)
	fc.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFailedRollbackIsReported(t *testing.T) {
	c, fc, metrics := newMockedCoordinator(t, nil, nil)
	ts := "20240301120000"
	fc.On("StartCommit", mock.Anything).Return(ts, nil)
	fc.On("Write", mock.Anything, ts, write.Upsert, mock.Anything).Return(nil, errors.New("disk full"))
	fc.On("Rollback", mock.Anything, ts).Return(false, errors.New("store offline"))

	_, err := c.Process(context.Background(), Batch{Records: clienttest.Records(1)})
	require.Error(t, err)
	var rolledBack ErrCommitRolledBack
	assert.False(t, errors.As(err, &rolledBack))
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), "store offline")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Commits.WithLabelValues("trips", monitoring.OutcomeFailed)))
}

func TestFilterDupesDemotesUpserts(t *testing.T) {
	keys := &fakeKeyIndex{}
	c, fc, _ := newMockedCoordinator(t, func(cfg *config.Config) { cfg.Write.FilterDupes = true }, keys)
	records := clienttest.Records(4)
	keys.On("Existing", mock.Anything, mock.Anything).
		Return(map[write.Key]bool{records[1].Key: true, records[3].Key: true}, nil)

	ts := "20240301120000"
	fc.On("StartCommit", mock.Anything).Return(ts, nil)
	fc.On("Write", mock.Anything, ts, write.Insert, []write.Record{records[0], records[2]}).
		Run(func(mock.Arguments) { assert.Equal(t, StateInsert, c.State()) }).
		Return([]*write.Status{{TotalRecords: 2}}, nil)
	fc.On("Commit", mock.Anything, ts, write.Insert, mock.Anything, mock.Anything).Return(true)

	res, err := c.Process(context.Background(), Batch{Records: records})
	require.NoError(t, err)
	assert.Equal(t, write.Insert, res.Operation)
	fc.AssertExpectations(t)

	// the configured operation is kept for the next batch
	assert.Equal(t, write.Upsert, c.op)
}

func TestAsyncCompactionIsScheduledAfterCommit(t *testing.T) {
	c, fc, _ := newMockedCoordinator(t, func(cfg *config.Config) {
		cfg.Table.Type = string(table.MergeOnRead)
		cfg.Write.AsyncCompaction = true
	}, nil)
	ts := "20240301120000"
	fc.On("StartCommit", mock.Anything).Return(ts, nil)
	fc.On("Write", mock.Anything, ts, write.Upsert, mock.Anything).Return([]*write.Status{}, nil)
	fc.On("Commit", mock.Anything, ts, write.Upsert, mock.Anything, mock.Anything).Return(true)
	fc.On("ScheduleCompaction", mock.Anything).Return("20240301120001", true, nil)

	res, err := c.Process(context.Background(), Batch{})
	require.NoError(t, err)
	assert.Equal(t, "20240301120001", res.CompactionInstant)
}

func TestNewCoordinatorValidatesDependencies(t *testing.T) {
	logger, _ := test.NewNullLogger()

	cfg := testConfig()
	cfg.Write.FilterDupes = true
	_, err := NewCoordinator(modfsmem.New(), cfg, &fakeClient{}, nil, nil, logger, nil)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Write.Operation = "merge"
	_, err = NewCoordinator(modfsmem.New(), cfg, &fakeClient{}, nil, nil, logger, nil)
	assert.Error(t, err)
}
