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
	"encoding/json"
	"fmt"

	"github.com/weaviate/tablestore/entities/write"
)

const (
	// CheckpointKey holds the source checkpoint the commit covers.
	CheckpointKey = "checkpoint"
	// CheckpointResetKey holds the configured checkpoint reset, if any.
	CheckpointResetKey = "checkpoint-reset"
)

// WriteStat is the per file summary stored in a commit.
type WriteStat struct {
	FileID           string `json:"fileId"`
	PartitionPath    string `json:"partitionPath"`
	Path             string `json:"path"`
	NumWrites        int64  `json:"numWrites"`
	TotalWriteErrors int64  `json:"totalWriteErrors"`
	PrevCommit       string `json:"prevCommit,omitempty"`
	TotalWriteBytes  int64  `json:"totalWriteBytes,omitempty"`
}

// Metadata is the payload of a completed commit or deltacommit instant.
type Metadata struct {
	PartitionToWriteStats map[string][]WriteStat `json:"partitionToWriteStats"`
	OperationType         write.Operation        `json:"operationType"`
	ExtraMetadata         map[string]string      `json:"extraMetadata"`
}

func NewMetadata(op write.Operation, statuses []*write.Status, extra map[string]string) *Metadata {
	md := &Metadata{
		PartitionToWriteStats: make(map[string][]WriteStat),
		OperationType:         op,
		ExtraMetadata:         make(map[string]string, len(extra)),
	}
	for _, s := range statuses {
		if s == nil {
			continue
		}
		md.PartitionToWriteStats[s.PartitionPath] = append(md.PartitionToWriteStats[s.PartitionPath], WriteStat{
			FileID:           s.FileID,
			PartitionPath:    s.PartitionPath,
			Path:             s.Path,
			NumWrites:        s.TotalRecords - s.TotalErrorRecords,
			TotalWriteErrors: s.TotalErrorRecords,
		})
	}
	for k, v := range extra {
		md.ExtraMetadata[k] = v
	}
	return md
}

// Checkpoint returns the checkpoint recorded in the metadata.
func (m *Metadata) Checkpoint() (string, bool) {
	if m == nil || m.ExtraMetadata == nil {
		return "", false
	}
	cp, ok := m.ExtraMetadata[CheckpointKey]
	return cp, ok
}

// WrittenPaths lists every file path referenced by the write stats.
func (m *Metadata) WrittenPaths() []string {
	var paths []string
	for _, stats := range m.PartitionToWriteStats {
		for _, s := range stats {
			if s.Path != "" {
				paths = append(paths, s.Path)
			}
		}
	}
	return paths
}

func (m *Metadata) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func Unmarshal(data []byte) (*Metadata, error) {
	var md Metadata
	if len(data) == 0 {
		return &md, nil
	}
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("unmarshal commit metadata: %w", err)
	}
	return &md, nil
}
