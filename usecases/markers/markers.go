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

// Package markers tracks the data files an inflight instant writes. Each
// written file leaves a marker below the instant's marker directory:
//
//	<marker dir>/<partition>/<data file>.marker.<IO type>
package markers

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	enterrors "github.com/weaviate/tablestore/entities/errors"
	"github.com/weaviate/tablestore/entities/filestore"
	"github.com/weaviate/tablestore/usecases/timeline"
)

type IOType string

const (
	Create IOType = "CREATE"
	Merge  IOType = "MERGE"
	Append IOType = "APPEND"
)

const markerInfix = ".marker."

type Marker struct {
	PartitionPath string
	DataFileName  string
	IOType        IOType
}

// DataFilePath is the path of the marked data file relative to the table
// base path.
func (m Marker) DataFilePath() string {
	return path.Join(m.PartitionPath, m.DataFileName)
}

func (m Marker) fileName() string {
	return m.DataFileName + markerInfix + string(m.IOType)
}

func parseMarker(partition, name string) (Marker, bool) {
	idx := strings.LastIndex(name, markerInfix)
	if idx <= 0 {
		return Marker{}, false
	}
	ioType := IOType(name[idx+len(markerInfix):])
	switch ioType {
	case Create, Merge, Append:
	default:
		return Marker{}, false
	}
	return Marker{PartitionPath: partition, DataFileName: name[:idx], IOType: ioType}, true
}

// Tracker manages the markers of one instant.
type Tracker struct {
	store       filestore.FileStore
	markerDir   string
	instantTime string
}

func NewTracker(meta *timeline.MetaClient, instantTime string) *Tracker {
	return &Tracker{
		store:       meta.Store(),
		markerDir:   meta.MarkerDir(instantTime),
		instantTime: instantTime,
	}
}

func (t *Tracker) InstantTime() string {
	return t.instantTime
}

func (t *Tracker) Dir() string {
	return t.markerDir
}

// Create records that the data file is being written. Creating the same
// marker twice is not an error, so retried writer tasks can call it again.
func (t *Tracker) Create(ctx context.Context, partition, dataFileName string, ioType IOType) (string, error) {
	m := Marker{PartitionPath: partition, DataFileName: dataFileName, IOType: ioType}
	p := path.Join(t.markerDir, partition, m.fileName())
	err := filestore.WriteFile(ctx, t.store, p, nil, false)
	if err != nil && !errors.Is(err, filestore.ErrAlreadyExists) {
		return "", enterrors.NewErrIO(fmt.Errorf("create marker %s: %w", p, err))
	}
	return p, nil
}

func (t *Tracker) Exists(ctx context.Context) (bool, error) {
	ok, err := t.store.Exists(ctx, t.markerDir)
	if err != nil {
		return false, enterrors.NewErrIO(err)
	}
	return ok, nil
}

func (t *Tracker) AllMarkers(ctx context.Context) ([]Marker, error) {
	files, err := filestore.ListRecursive(ctx, t.store, t.markerDir)
	if err != nil {
		return nil, enterrors.NewErrIO(err)
	}
	out := make([]Marker, 0, len(files))
	for _, f := range files {
		partition := filestore.Rel(t.markerDir, path.Dir(f.Path))
		if m, ok := parseMarker(partition, f.Name()); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// CreatedPaths lists data files created or merged by the instant, relative
// to the table base path.
func (t *Tracker) CreatedPaths(ctx context.Context) ([]string, error) {
	all, err := t.AllMarkers(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range all {
		if m.IOType == Create || m.IOType == Merge {
			out = append(out, m.DataFilePath())
		}
	}
	return out, nil
}

func (t *Tracker) DeleteMarkerDir(ctx context.Context) (bool, error) {
	ok, err := t.store.Delete(ctx, t.markerDir, true)
	if err != nil {
		return false, enterrors.NewErrIO(err)
	}
	return ok, nil
}
