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

package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/weaviate/tablestore/entities/rollback"
)

const namespace = "tablestore"

const (
	OutcomeCommitted  = "committed"
	OutcomeRolledBack = "rolled_back"
	OutcomeFailed     = "failed"
)

type Metrics struct {
	Commits            *prometheus.CounterVec
	StartCommitRetries *prometheus.CounterVec
	Rollbacks          *prometheus.CounterVec
	RollbackFiles      *prometheus.CounterVec
	RollbackDuration   *prometheus.HistogramVec
	WrittenRecords     *prometheus.CounterVec
	ErrorRecords       *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Commits: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commits_total",
				Help:      "Write batches by outcome",
			},
			[]string{"table", "outcome"}, // outcome: committed/rolled_back/failed
		),
		StartCommitRetries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "start_commit_retries_total",
				Help:      "Retried attempts to start a commit",
			},
			[]string{"table"},
		),
		Rollbacks: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rollbacks_total",
				Help:      "Executed rollbacks by strategy",
			},
			[]string{"table", "strategy"},
		),
		RollbackFiles: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rollback_files_total",
				Help:      "Files touched by rollbacks",
			},
			[]string{"table", "outcome"}, // outcome: deleted/failed/command_block
		),
		RollbackDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rollback_duration_seconds",
				Help:      "Duration of rollbacks",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"table", "strategy"},
		),
		WrittenRecords: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "written_records_total",
				Help:      "Records handed to the write path",
			},
			[]string{"table"},
		),
		ErrorRecords: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "error_records_total",
				Help:      "Records the write path failed to write",
			},
			[]string{"table"},
		),
	}
}

func (m *Metrics) CommitOutcome(table, outcome string) {
	if m == nil {
		return
	}
	m.Commits.WithLabelValues(table, outcome).Inc()
}

func (m *Metrics) StartCommitRetry(table string) {
	if m == nil {
		return
	}
	m.StartCommitRetries.WithLabelValues(table).Inc()
}

func (m *Metrics) Records(table string, total, errs int64) {
	if m == nil {
		return
	}
	m.WrittenRecords.WithLabelValues(table).Add(float64(total))
	m.ErrorRecords.WithLabelValues(table).Add(float64(errs))
}

func (m *Metrics) RollbackDone(table, strategy string, stats []*rollback.Stat, took time.Duration) {
	if m == nil {
		return
	}
	m.Rollbacks.WithLabelValues(table, strategy).Inc()
	m.RollbackDuration.WithLabelValues(table, strategy).Observe(took.Seconds())

	var deleted, failed, blocks int
	for _, s := range stats {
		deleted += len(s.SuccessDeletes)
		failed += len(s.FailedDeletes)
		blocks += len(s.CommandBlocksCount)
	}
	m.RollbackFiles.WithLabelValues(table, "deleted").Add(float64(deleted))
	m.RollbackFiles.WithLabelValues(table, "failed").Add(float64(failed))
	m.RollbackFiles.WithLabelValues(table, "command_block").Add(float64(blocks))
}
