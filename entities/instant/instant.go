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

// Package instant models a single timestamped unit of change on a table
// timeline and the marker file that represents it on the file store.
package instant

import (
	"fmt"
	"strings"
)

type Action string

const (
	Commit      Action = "commit"
	DeltaCommit Action = "deltacommit"
	Rollback    Action = "rollback"
	Compaction  Action = "compaction"
	Clean       Action = "clean"
)

var knownActions = map[Action]struct{}{
	Commit:      {},
	DeltaCommit: {},
	Rollback:    {},
	Compaction:  {},
	Clean:       {},
}

type State string

const (
	Requested State = "REQUESTED"
	Inflight  State = "INFLIGHT"
	Completed State = "COMPLETED"
)

// order of states, used to resolve several marker files of one instant
var stateRank = map[State]int{
	Requested: 0,
	Inflight:  1,
	Completed: 2,
}

const (
	requestedExtension = ".requested"
	inflightExtension  = ".inflight"
)

// Instant is identified by (Timestamp, Action).
type Instant struct {
	Timestamp string
	Action    Action
	State     State
}

func New(state State, action Action, timestamp string) Instant {
	return Instant{Timestamp: timestamp, Action: action, State: state}
}

func (i Instant) IsRequested() bool { return i.State == Requested }
func (i Instant) IsInflight() bool  { return i.State == Inflight }
func (i Instant) IsCompleted() bool { return i.State == Completed }

// WithState returns a copy of i in the given state.
func (i Instant) WithState(s State) Instant {
	i.State = s
	return i
}

// SameIdentity reports whether both instants describe the same unit of
// change, irrespective of state.
func (i Instant) SameIdentity(o Instant) bool {
	return i.Timestamp == o.Timestamp && i.Action == o.Action
}

// FileName is the marker file name, <timestamp>.<action>[.requested|.inflight].
func (i Instant) FileName() string {
	name := i.Timestamp + "." + string(i.Action)
	switch i.State {
	case Requested:
		return name + requestedExtension
	case Inflight:
		return name + inflightExtension
	default:
		return name
	}
}

func (i Instant) String() string {
	return fmt.Sprintf("[%s__%s__%s]", i.Timestamp, i.Action, i.State)
}

// Parse turns a marker file name back into an instant. Names that are not
// instant markers (table config, temp folders) return false.
func Parse(fileName string) (Instant, bool) {
	parts := strings.Split(fileName, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return Instant{}, false
	}
	ts, action := parts[0], Action(parts[1])
	if ts == "" || !isDigits(ts) {
		return Instant{}, false
	}
	if _, ok := knownActions[action]; !ok {
		return Instant{}, false
	}
	state := Completed
	if len(parts) == 3 {
		switch "." + parts[2] {
		case requestedExtension:
			state = Requested
		case inflightExtension:
			state = Inflight
		default:
			return Instant{}, false
		}
	}
	return New(state, action, ts), true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Compare orders instants by timestamp, then action, then state.
func Compare(a, b Instant) int {
	if c := CompareTimestamps(a.Timestamp, b.Timestamp); c != 0 {
		return c
	}
	if a.Action != b.Action {
		if a.Action < b.Action {
			return -1
		}
		return 1
	}
	return stateRank[a.State] - stateRank[b.State]
}

// CompareTimestamps compares instant times. Instant times are fixed-width
// digit strings, a shorter one sorts first.
func CompareTimestamps(a, b string) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return strings.Compare(a, b)
}

// MoreAdvanced reports whether state a is further along than state b.
func MoreAdvanced(a, b State) bool {
	return stateRank[a] > stateRank[b]
}
