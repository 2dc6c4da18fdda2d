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

package timeline

import (
	"context"
	"encoding/json"
	"errors"
	"path"

	"github.com/sirupsen/logrus"

	enterrors "github.com/weaviate/tablestore/entities/errors"
	"github.com/weaviate/tablestore/entities/filestore"
	"github.com/weaviate/tablestore/entities/instant"
	"github.com/weaviate/tablestore/entities/table"
)

const (
	MetaFolderName        = ".meta"
	TempFolderName        = ".temp"
	TableConfigFileName   = "table.json"
	PartitionMetadataFile = ".partition_metadata"
)

// MetaClient gives access to the meta folder of one table: its persisted
// config and its active timeline.
type MetaClient struct {
	store    filestore.FileStore
	basePath string
	config   table.Config
	logger   logrus.FieldLogger

	active *ActiveTimeline
}

// InitTable lays out a new table below basePath and returns a client for it.
func InitTable(ctx context.Context, store filestore.FileStore, basePath string,
	cfg table.Config, logger logrus.FieldLogger,
) (*MetaClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Version == 0 {
		cfg.Version = table.ConfigVersion
	}
	if cfg.ArchiveFolder == "" {
		cfg.ArchiveFolder = table.DefaultArchiveFolder
	}

	m := &MetaClient{store: store, basePath: filestore.Clean(basePath), config: cfg, logger: logger}
	for _, dir := range []string{m.MetaPath(), m.TempPath(), m.ArchivePath()} {
		if err := store.MkdirAll(ctx, dir); err != nil {
			return nil, enterrors.NewErrIO(err)
		}
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	if err := filestore.WriteFile(ctx, store, m.tableConfigPath(), data, false); err != nil {
		return nil, enterrors.NewErrIO(err)
	}

	logger.WithField("action", "init_table").
		WithField("table", cfg.Name).
		WithField("table_type", cfg.Type).
		Infof("initialized table at %s", m.basePath)

	m.active = newActiveTimeline(m, nil)
	return m, nil
}

// NewMetaClient loads the config and active timeline of an existing table.
func NewMetaClient(ctx context.Context, store filestore.FileStore, basePath string,
	logger logrus.FieldLogger,
) (*MetaClient, error) {
	m := &MetaClient{store: store, basePath: filestore.Clean(basePath), logger: logger}

	data, err := filestore.ReadFile(ctx, store, m.tableConfigPath())
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return nil, enterrors.NewTableNotFound(m.tableConfigPath())
		}
		return nil, enterrors.NewErrIO(err)
	}
	if err := json.Unmarshal(data, &m.config); err != nil {
		return nil, enterrors.NewErrIO(err)
	}
	if err := m.config.Validate(); err != nil {
		return nil, err
	}
	if m.config.ArchiveFolder == "" {
		m.config.ArchiveFolder = table.DefaultArchiveFolder
	}

	if _, err := m.ReloadActiveTimeline(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MetaClient) Store() filestore.FileStore {
	return m.store
}

func (m *MetaClient) Logger() logrus.FieldLogger {
	return m.logger
}

func (m *MetaClient) TableConfig() table.Config {
	return m.config
}

func (m *MetaClient) TableType() table.Type {
	return m.config.Type
}

func (m *MetaClient) BasePath() string {
	return m.basePath
}

func (m *MetaClient) MetaPath() string {
	return path.Join(m.basePath, MetaFolderName)
}

func (m *MetaClient) TempPath() string {
	return path.Join(m.MetaPath(), TempFolderName)
}

func (m *MetaClient) ArchivePath() string {
	return path.Join(m.MetaPath(), m.archiveFolder())
}

func (m *MetaClient) archiveFolder() string {
	if m.config.ArchiveFolder == "" {
		return table.DefaultArchiveFolder
	}
	return m.config.ArchiveFolder
}

// MarkerDir is where writers of the given instant leave their markers.
func (m *MetaClient) MarkerDir(instantTime string) string {
	return path.Join(m.TempPath(), instantTime)
}

func (m *MetaClient) PartitionPath(partition string) string {
	return path.Join(m.basePath, partition)
}

func (m *MetaClient) tableConfigPath() string {
	return path.Join(m.MetaPath(), TableConfigFileName)
}

// CommitActionType is the action a write produces on this table type.
func (m *MetaClient) CommitActionType() instant.Action {
	return CommitActionType(m.config.Type)
}

func CommitActionType(t table.Type) instant.Action {
	if t == table.MergeOnRead {
		return instant.DeltaCommit
	}
	return instant.Commit
}

func (m *MetaClient) ActiveTimeline() *ActiveTimeline {
	return m.active
}

// ReloadActiveTimeline lists the meta folder again.
func (m *MetaClient) ReloadActiveTimeline(ctx context.Context) (*ActiveTimeline, error) {
	entries, err := m.store.List(ctx, m.MetaPath())
	if err != nil {
		return nil, enterrors.NewErrIO(err)
	}
	instants := make([]instant.Instant, 0, len(entries))
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		if ins, ok := instant.Parse(e.Name()); ok {
			instants = append(instants, ins)
		}
	}
	m.active = newActiveTimeline(m, instants)
	return m.active, nil
}

// CommitTimeline holds the write actions of this table type.
func (m *MetaClient) CommitTimeline() *Timeline {
	return m.active.FilterByActions(m.CommitActionType())
}

// CommitsTimeline holds commits and deltacommits.
func (m *MetaClient) CommitsTimeline() *Timeline {
	return m.active.FilterByActions(instant.Commit, instant.DeltaCommit)
}
