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

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// MetadataVersion is the serialization version of rollback payloads.
	MetadataVersion = 1

	kindRollbackMetadata = "rollback_metadata"
	kindCommandBlock     = "command_block"
)

// container wraps every persisted rollback payload so the format can be
// evolved without breaking readers of older instants.
type container struct {
	Version uint32 `msgpack:"version"`
	Kind    string `msgpack:"kind"`
	Data    []byte `msgpack:"data"`
}

type PartitionMetadata struct {
	PartitionPath    string           `msgpack:"partition_path"`
	SuccessDeletes   []string         `msgpack:"success_deletes"`
	FailedDeletes    []string         `msgpack:"failed_deletes"`
	RollbackLogFiles map[string]int64 `msgpack:"rollback_log_files"`
}

// Metadata is the payload of a completed rollback instant.
type Metadata struct {
	StartRollbackTime string                       `msgpack:"start_rollback_time"`
	TimeTakenMs       int64                        `msgpack:"time_taken_ms"`
	TotalFilesDeleted int                          `msgpack:"total_files_deleted"`
	InstantsRollback  []string                     `msgpack:"instants_rollback"`
	Partitions        map[string]PartitionMetadata `msgpack:"partitions"`
}

func NewMetadata(startTime string, timeTakenMs int64, instants []string, stats []*Stat) *Metadata {
	md := &Metadata{
		StartRollbackTime: startTime,
		TimeTakenMs:       timeTakenMs,
		InstantsRollback:  instants,
		Partitions:        make(map[string]PartitionMetadata, len(stats)),
	}
	for _, s := range stats {
		md.TotalFilesDeleted += len(s.SuccessDeletes)
		md.Partitions[s.PartitionPath] = PartitionMetadata{
			PartitionPath:    s.PartitionPath,
			SuccessDeletes:   s.SuccessDeletes,
			FailedDeletes:    s.FailedDeletes,
			RollbackLogFiles: s.CommandBlocksCount,
		}
	}
	return md
}

func (m *Metadata) Marshal() ([]byte, error) {
	return marshalContainer(kindRollbackMetadata, m)
}

func UnmarshalMetadata(data []byte) (*Metadata, error) {
	var md Metadata
	if err := unmarshalContainer(kindRollbackMetadata, data, &md); err != nil {
		return nil, err
	}
	return &md, nil
}

// CommandBlock is appended to a log file to mark the records of the target
// instant as rolled back.
type CommandBlock struct {
	Type          string `msgpack:"type"`
	InstantTime   string `msgpack:"instant_time"`
	TargetInstant string `msgpack:"target_instant"`
	FileID        string `msgpack:"file_id"`
	BaseInstant   string `msgpack:"base_instant"`
}

const CommandRollbackPrevious = "ROLLBACK_PREVIOUS_BLOCK"

func NewCommandBlock(instantTime, targetInstant, fileID, baseInstant string) CommandBlock {
	return CommandBlock{
		Type:          CommandRollbackPrevious,
		InstantTime:   instantTime,
		TargetInstant: targetInstant,
		FileID:        fileID,
		BaseInstant:   baseInstant,
	}
}

func (b CommandBlock) Marshal() ([]byte, error) {
	return marshalContainer(kindCommandBlock, b)
}

func UnmarshalCommandBlock(data []byte) (CommandBlock, error) {
	var b CommandBlock
	err := unmarshalContainer(kindCommandBlock, data, &b)
	return b, err
}

func marshalContainer(kind string, v interface{}) ([]byte, error) {
	inner, err := msgpack.Marshal(v)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s", kind)
	}
	out, err := msgpack.Marshal(container{Version: MetadataVersion, Kind: kind, Data: inner})
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s container", kind)
	}
	return out, nil
}

func unmarshalContainer(kind string, data []byte, v interface{}) error {
	var c container
	if err := msgpack.Unmarshal(data, &c); err != nil {
		return errors.Wrapf(err, "unmarshal %s container", kind)
	}
	if c.Version != MetadataVersion {
		return errors.Errorf("unsupported %s version %d", kind, c.Version)
	}
	if c.Kind != kind {
		return errors.Errorf("expected %s payload, got %q", kind, c.Kind)
	}
	if err := msgpack.Unmarshal(c.Data, v); err != nil {
		return errors.Wrapf(err, "unmarshal %s", kind)
	}
	return nil
}
