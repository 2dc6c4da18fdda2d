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

package write

import (
	"fmt"
	"strings"
)

// Operation is the kind of write applied to a batch of records.
type Operation string

const (
	Insert     Operation = "insert"
	Upsert     Operation = "upsert"
	BulkInsert Operation = "bulk_insert"
)

func ParseOperation(s string) (Operation, error) {
	switch op := Operation(strings.ToLower(strings.TrimSpace(s))); op {
	case Insert, Upsert, BulkInsert:
		return op, nil
	default:
		return "", fmt.Errorf("unknown operation %q", s)
	}
}

// Key identifies a record within a table.
type Key struct {
	RecordKey     string
	PartitionPath string
}

func (k Key) String() string {
	return k.PartitionPath + "/" + k.RecordKey
}

type Record struct {
	Key     Key
	Payload []byte
}

// Status is produced by the write path for every file group it touched.
type Status struct {
	FileID        string
	PartitionPath string
	// Path of the written file relative to the table base path.
	Path string

	TotalRecords      int64
	TotalErrorRecords int64
	Errors            map[Key]error
	GlobalError       error
}

func (s *Status) HasErrors() bool {
	return s.TotalErrorRecords > 0
}

// MarkFailure records a per-record failure.
func (s *Status) MarkFailure(key Key, err error) {
	if s.Errors == nil {
		s.Errors = make(map[Key]error)
	}
	s.Errors[key] = err
	s.TotalErrorRecords++
	s.TotalRecords++
}

// MarkSuccess records a successfully written record.
func (s *Status) MarkSuccess() {
	s.TotalRecords++
}

// Totals sums record and error counts across statuses.
func Totals(statuses []*Status) (records, errors int64) {
	for _, s := range statuses {
		if s == nil {
			continue
		}
		records += s.TotalRecords
		errors += s.TotalErrorRecords
	}
	return records, errors
}
