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

import "sort"

// Stat is the outcome of rolling back one partition.
type Stat struct {
	PartitionPath      string
	SuccessDeletes     []string
	FailedDeletes      []string
	CommandBlocksCount map[string]int64
}

func NewStat(partition string) *Stat {
	return &Stat{PartitionPath: partition, CommandBlocksCount: map[string]int64{}}
}

func (s *Stat) AddSuccess(path string) {
	s.SuccessDeletes = append(s.SuccessDeletes, path)
}

func (s *Stat) AddFailure(path string) {
	s.FailedDeletes = append(s.FailedDeletes, path)
}

func (s *Stat) AddCommandBlock(path string, size int64) {
	if s.CommandBlocksCount == nil {
		s.CommandBlocksCount = map[string]int64{}
	}
	s.CommandBlocksCount[path] += size
}

// Merge returns the union of two stats for the same partition. Delete lists
// are deduplicated, command block counts are summed.
func Merge(a, b *Stat) *Stat {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	out := NewStat(a.PartitionPath)
	out.SuccessDeletes = union(a.SuccessDeletes, b.SuccessDeletes)
	out.FailedDeletes = union(a.FailedDeletes, b.FailedDeletes)
	for k, v := range a.CommandBlocksCount {
		out.CommandBlocksCount[k] += v
	}
	for k, v := range b.CommandBlocksCount {
		out.CommandBlocksCount[k] += v
	}
	return out
}

// MergeByPartition folds stats so there is exactly one per partition. The
// result is sorted by partition path.
func MergeByPartition(stats []*Stat) []*Stat {
	byPartition := map[string]*Stat{}
	for _, s := range stats {
		if s == nil {
			continue
		}
		byPartition[s.PartitionPath] = Merge(byPartition[s.PartitionPath], s)
	}
	out := make([]*Stat, 0, len(byPartition))
	for _, s := range byPartition {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PartitionPath < out[j].PartitionPath
	})
	return out
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, p := range list {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
