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

// Action is the kind of work a Request asks the rollback helper to do.
type Action string

const (
	DeleteDataAndLogFiles Action = "DELETE_DATA_AND_LOG_FILES"
	AppendRollbackBlock   Action = "APPEND_ROLLBACK_BLOCK"
	DeleteMarkerFiles     Action = "DELETE_MARKER_FILES"
)

// Request describes one unit of rollback work within a partition.
//
// A DeleteDataAndLogFiles request without TargetPath means the whole
// partition is scanned for files written by the instant.
type Request struct {
	PartitionPath string
	Action        Action
	TargetPath    string
	FileID        string
	BaseInstant   string
}

func NewDeletePartitionRequest(partition string) Request {
	return Request{PartitionPath: partition, Action: DeleteDataAndLogFiles}
}

func NewDeleteFileRequest(partition, targetPath string) Request {
	return Request{PartitionPath: partition, Action: DeleteDataAndLogFiles, TargetPath: targetPath}
}

func NewAppendRollbackBlockRequest(partition, fileID, baseInstant string) Request {
	return Request{
		PartitionPath: partition,
		Action:        AppendRollbackBlock,
		FileID:        fileID,
		BaseInstant:   baseInstant,
	}
}

func NewDeleteMarkerFilesRequest() Request {
	return Request{Action: DeleteMarkerFiles}
}

// GroupByPartition buckets requests by partition, keeping the order in
// which partitions first appear.
func GroupByPartition(reqs []Request) (partitions []string, grouped map[string][]Request) {
	grouped = make(map[string][]Request)
	for _, r := range reqs {
		if _, ok := grouped[r.PartitionPath]; !ok {
			partitions = append(partitions, r.PartitionPath)
		}
		grouped[r.PartitionPath] = append(grouped[r.PartitionPath], r)
	}
	return partitions, grouped
}
