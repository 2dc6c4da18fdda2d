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
package config

import (
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/weaviate/tablestore/entities/table"
	"github.com/weaviate/tablestore/entities/write"
)

// DefaultConfigFile is the default file when no config file is provided
const DefaultConfigFile string = "./tablestore.yaml"

const (
	DefaultStartCommitRetryInterval = time.Second
	DefaultPayloadKind              = "default"
	DefaultStorageBackend           = BackendFilesystem
)

// storage backends
const (
	BackendFilesystem = "filesystem"
	BackendMemory     = "memory"
	BackendS3         = "s3"
	BackendGCS        = "gcs"
	BackendAzure      = "azure"
)

// Flags are input options
type Flags struct {
	ConfigFile string `long:"config-file" description:"path to config file (default: ./tablestore.yaml)"`
	BasePath   string `long:"base-path" description:"table base path, overrides table.base_path"`
	LogLevel   string `long:"log-level" description:"log level, overrides logging.level"`
}

// Config outline of the config file
type Config struct {
	Table      Table      `json:"table" yaml:"table"`
	Write      Write      `json:"write" yaml:"write"`
	Rollback   Rollback   `json:"rollback" yaml:"rollback"`
	Storage    Storage    `json:"storage" yaml:"storage"`
	Logging    Logging    `json:"logging" yaml:"logging"`
	Monitoring Monitoring `json:"monitoring" yaml:"monitoring"`
}

type Table struct {
	BasePath      string `json:"base_path" yaml:"base_path"`
	Name          string `json:"name" yaml:"name"`
	Type          string `json:"type" yaml:"type"`
	PayloadKind   string `json:"payload_kind" yaml:"payload_kind"`
	ArchiveFolder string `json:"archive_folder" yaml:"archive_folder"`
}

// TableConfig is the config persisted when the table does not exist yet.
func (t Table) TableConfig() table.Config {
	typ, err := table.ParseType(t.Type)
	if err != nil {
		typ = table.Type(t.Type)
	}
	return table.Config{
		Name:          t.Name,
		Type:          typ,
		PayloadKind:   t.PayloadKind,
		ArchiveFolder: t.ArchiveFolder,
		Version:       table.ConfigVersion,
	}
}

func (t Table) Validate() error {
	var result *multierror.Error
	if t.BasePath == "" {
		result = multierror.Append(result, errors.New("table.base_path is required"))
	}
	if t.Name == "" {
		result = multierror.Append(result, errors.New("table.name is required"))
	}
	if _, err := table.ParseType(t.Type); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "table.type"))
	}
	return result.ErrorOrNil()
}

type Write struct {
	Operation                string        `json:"operation" yaml:"operation"`
	CommitOnErrors           bool          `json:"commit_on_errors" yaml:"commit_on_errors"`
	FilterDupes              bool          `json:"filter_dupes" yaml:"filter_dupes"`
	CheckpointReset          string        `json:"checkpoint_reset" yaml:"checkpoint_reset"`
	StartCommitRetryInterval time.Duration `json:"start_commit_retry_interval" yaml:"start_commit_retry_interval"`
	AsyncCompaction          bool          `json:"async_compaction" yaml:"async_compaction"`
	CatalogSync              bool          `json:"catalog_sync" yaml:"catalog_sync"`
	Parallelism              int           `json:"parallelism" yaml:"parallelism"`
}

func (w Write) Validate() error {
	var result *multierror.Error
	if _, err := write.ParseOperation(w.Operation); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "write.operation"))
	}
	if w.StartCommitRetryInterval < 0 {
		result = multierror.Append(result,
			errors.Errorf("write.start_commit_retry_interval must not be negative, got %s", w.StartCommitRetryInterval))
	}
	if w.Parallelism < 0 {
		result = multierror.Append(result,
			errors.Errorf("write.parallelism must not be negative, got %d", w.Parallelism))
	}
	return result.ErrorOrNil()
}

type Rollback struct {
	UseMarkers             bool `json:"use_markers" yaml:"use_markers"`
	DeleteInstants         bool `json:"delete_instants" yaml:"delete_instants"`
	SkipTimelinePublish    bool `json:"skip_timeline_publish" yaml:"skip_timeline_publish"`
	AssumeDatePartitioning bool `json:"assume_date_partitioning" yaml:"assume_date_partitioning"`
	// Parallelism of the pool deleting files, 0 means one worker per CPU
	Parallelism int `json:"parallelism" yaml:"parallelism"`
}

func (r Rollback) Validate() error {
	if r.Parallelism < 0 {
		return errors.Errorf("rollback.parallelism must not be negative, got %d", r.Parallelism)
	}
	return nil
}

type Storage struct {
	Backend string `json:"backend" yaml:"backend"`
	// Path is the root directory of the filesystem backend
	Path  string `json:"path" yaml:"path"`
	S3    S3     `json:"s3" yaml:"s3"`
	GCS   GCS    `json:"gcs" yaml:"gcs"`
	Azure Azure  `json:"azure" yaml:"azure"`
}

type S3 struct {
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	Bucket          string `json:"bucket" yaml:"bucket"`
	Prefix          string `json:"prefix" yaml:"prefix"`
	UseSSL          bool   `json:"use_ssl" yaml:"use_ssl"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

type GCS struct {
	Bucket string `json:"bucket" yaml:"bucket"`
	Prefix string `json:"prefix" yaml:"prefix"`
}

type Azure struct {
	Container        string `json:"container" yaml:"container"`
	Prefix           string `json:"prefix" yaml:"prefix"`
	ConnectionString string `json:"connection_string" yaml:"connection_string"`
}

func (s Storage) Validate() error {
	switch s.Backend {
	case BackendFilesystem:
		if s.Path == "" {
			return errors.Errorf("storage.path is required for backend %q", s.Backend)
		}
	case BackendMemory, BackendS3:
	case BackendAzure:
		if s.Azure.Container == "" {
			return errors.Errorf("storage.azure.container is required for backend %q", s.Backend)
		}
	case BackendGCS:
		if s.GCS.Bucket == "" {
			return errors.Errorf("storage.gcs.bucket is required for backend %q", s.Backend)
		}
	default:
		return errors.Errorf("storage.backend: unknown backend %q", s.Backend)
	}
	return nil
}

type Logging struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

func (l Logging) Validate() error {
	if l.Level != "" {
		if _, err := logLevelFromString(l.Level); err != nil {
			return errors.Wrapf(err, "logging.level %q", l.Level)
		}
	}
	switch l.Format {
	case "", "json", "text":
		return nil
	default:
		return errors.Errorf("logging.format must be json or text, got %q", l.Format)
	}
}

type Monitoring struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Defaults returns a config with every optional value filled in.
func Defaults() Config {
	return Config{
		Table: Table{
			Type:          string(table.CopyOnWrite),
			PayloadKind:   DefaultPayloadKind,
			ArchiveFolder: table.DefaultArchiveFolder,
		},
		Write: Write{
			Operation:                string(write.Upsert),
			StartCommitRetryInterval: DefaultStartCommitRetryInterval,
		},
		Rollback: Rollback{
			DeleteInstants: true,
		},
		Storage: Storage{
			Backend: DefaultStorageBackend,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadFile reads the YAML file at path on top of the defaults. A missing file
// at the default location is not an error.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "read config file %q", path)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config file %q", path)
	}
	return cfg, nil
}

// Load builds the config from defaults, the config file and the environment,
// applies the flags and validates the result.
func Load(flags Flags) (*Config, error) {
	cfg, err := LoadFile(flags.ConfigFile)
	if err != nil {
		return nil, err
	}
	if err := FromEnv(&cfg); err != nil {
		return nil, errors.Wrap(err, "config from environment")
	}
	if flags.BasePath != "" {
		cfg.Table.BasePath = flags.BasePath
	}
	if flags.LogLevel != "" {
		cfg.Logging.Level = flags.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate the configuration
func (c *Config) Validate() error {
	var result *multierror.Error
	for _, v := range []interface{ Validate() error }{
		c.Table, c.Write, c.Rollback, c.Storage, c.Logging,
	} {
		if err := v.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return configErr(err)
	}
	return nil
}

func configErr(err error) error {
	return errors.Wrap(err, "invalid config")
}
