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
// Package clienttest provides a RecordWriter that writes real data files and
// markers, for tests of the write path.
package clienttest

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"sync"

	"github.com/weaviate/tablestore/entities/datafile"
	"github.com/weaviate/tablestore/entities/filestore"
	"github.com/weaviate/tablestore/entities/write"
	"github.com/weaviate/tablestore/usecases/client"
	"github.com/weaviate/tablestore/usecases/markers"
	"github.com/weaviate/tablestore/usecases/parallel"
	"github.com/weaviate/tablestore/usecases/tablefs"
)

// Writer writes one base file per partition of a batch. Records whose key is
// in FailKeys are reported as failed and left out of the file.
type Writer struct {
	Store    filestore.FileStore
	FailKeys map[string]bool
	// Err, if set, fails every write after the files were written.
	Err error

	mu    sync.Mutex
	calls []write.Operation
}

func NewWriter(store filestore.FileStore) *Writer {
	return &Writer{Store: store, FailKeys: map[string]bool{}}
}

// Calls returns the operations invoked so far.
func (w *Writer) Calls() []write.Operation {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]write.Operation(nil), w.calls...)
}

func (w *Writer) Insert(ctx context.Context, wc client.WriteContext, records []write.Record) ([]*write.Status, error) {
	return w.write(ctx, wc, write.Insert, markers.Create, records)
}

func (w *Writer) Upsert(ctx context.Context, wc client.WriteContext, records []write.Record) ([]*write.Status, error) {
	return w.write(ctx, wc, write.Upsert, markers.Merge, records)
}

func (w *Writer) BulkInsert(ctx context.Context, wc client.WriteContext, records []write.Record) ([]*write.Status, error) {
	return w.write(ctx, wc, write.BulkInsert, markers.Create, records)
}

func (w *Writer) write(ctx context.Context, wc client.WriteContext, op write.Operation, ioType markers.IOType,
	records []write.Record,
) ([]*write.Status, error) {
	w.mu.Lock()
	w.calls = append(w.calls, op)
	w.mu.Unlock()

	byPartition := map[string][]write.Record{}
	for _, r := range records {
		byPartition[r.Key.PartitionPath] = append(byPartition[r.Key.PartitionPath], r)
	}
	partitions := make([]string, 0, len(byPartition))
	for p := range byPartition {
		partitions = append(partitions, p)
	}
	sort.Strings(partitions)

	exec := wc.Exec
	if exec == nil {
		exec = parallel.Local{}
	}
	base := wc.Meta.BasePath()
	statuses, err := parallel.Map(ctx, exec, partitions, func(ctx context.Context, partition string) (*write.Status, error) {
		fileID := datafile.NewFileID()
		name := datafile.BaseFileName(fileID, datafile.NewWriteToken(), wc.InstantTime)
		status := &write.Status{
			FileID:        fileID,
			PartitionPath: partition,
			Path:          path.Join(partition, name),
		}

		var buf bytes.Buffer
		for _, r := range byPartition[partition] {
			if w.FailKeys[r.Key.RecordKey] {
				status.MarkFailure(r.Key, fmt.Errorf("cannot write record %s", r.Key))
				continue
			}
			status.MarkSuccess()
			buf.Write(r.Payload)
			buf.WriteByte('\n')
		}

		if err := tablefs.CreatePartitionMetadata(ctx, w.Store, base, partition, wc.InstantTime); err != nil {
			return nil, err
		}
		if _, err := wc.Markers.Create(ctx, partition, name, ioType); err != nil {
			return nil, err
		}
		if err := filestore.WriteFile(ctx, w.Store, path.Join(base, status.Path), buf.Bytes(), false); err != nil {
			return nil, err
		}
		return status, nil
	})
	if err != nil {
		return nil, err
	}

	if w.Err != nil {
		return nil, w.Err
	}
	return statuses, nil
}

// Records builds n records spread over partitions, keyed key-0 to key-(n-1).
func Records(n int, partitions ...string) []write.Record {
	if len(partitions) == 0 {
		partitions = []string{""}
	}
	out := make([]write.Record, n)
	for i := range out {
		key := write.Key{RecordKey: fmt.Sprintf("key-%d", i), PartitionPath: partitions[i%len(partitions)]}
		out[i] = write.Record{Key: key, Payload: []byte(fmt.Sprintf(`{"id":%d}`, i))}
	}
	return out
}
