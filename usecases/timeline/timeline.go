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
	"sort"

	"github.com/weaviate/tablestore/entities/instant"
)

// Timeline is an immutable, ordered view over instants.
type Timeline struct {
	instants []instant.Instant
}

// NewTimeline sorts instants and collapses multiple states of one identity
// into the most advanced one.
func NewTimeline(instants []instant.Instant) *Timeline {
	latest := make(map[[2]string]instant.Instant, len(instants))
	for _, ins := range instants {
		id := [2]string{ins.Timestamp, string(ins.Action)}
		if cur, ok := latest[id]; !ok || instant.MoreAdvanced(ins.State, cur.State) {
			latest[id] = ins
		}
	}
	out := make([]instant.Instant, 0, len(latest))
	for _, ins := range latest {
		out = append(out, ins)
	}
	sort.Slice(out, func(i, j int) bool { return instant.Compare(out[i], out[j]) < 0 })
	return &Timeline{instants: out}
}

func (t *Timeline) filter(keep func(instant.Instant) bool) *Timeline {
	out := make([]instant.Instant, 0, len(t.instants))
	for _, ins := range t.instants {
		if keep(ins) {
			out = append(out, ins)
		}
	}
	return &Timeline{instants: out}
}

func (t *Timeline) Instants() []instant.Instant {
	return append([]instant.Instant(nil), t.instants...)
}

func (t *Timeline) Count() int {
	return len(t.instants)
}

func (t *Timeline) Empty() bool {
	return len(t.instants) == 0
}

func (t *Timeline) FilterCompleted() *Timeline {
	return t.filter(instant.Instant.IsCompleted)
}

// FilterPending keeps requested and inflight instants.
func (t *Timeline) FilterPending() *Timeline {
	return t.filter(func(i instant.Instant) bool { return !i.IsCompleted() })
}

func (t *Timeline) FilterInflight() *Timeline {
	return t.filter(instant.Instant.IsInflight)
}

func (t *Timeline) FilterByActions(actions ...instant.Action) *Timeline {
	return t.filter(func(i instant.Instant) bool {
		for _, a := range actions {
			if i.Action == a {
				return true
			}
		}
		return false
	})
}

// Find returns the instant with the given timestamp. When several actions
// share a timestamp the first in order is returned.
func (t *Timeline) Find(timestamp string) (instant.Instant, bool) {
	for _, ins := range t.instants {
		if ins.Timestamp == timestamp {
			return ins, true
		}
	}
	return instant.Instant{}, false
}

func (t *Timeline) Contains(ins instant.Instant) bool {
	_, ok := t.Get(ins)
	return ok
}

// Get returns the instant with the identity of ins in its current state.
func (t *Timeline) Get(ins instant.Instant) (instant.Instant, bool) {
	for _, cur := range t.instants {
		if cur.SameIdentity(ins) {
			return cur, true
		}
	}
	return instant.Instant{}, false
}

func (t *Timeline) First() (instant.Instant, bool) {
	if len(t.instants) == 0 {
		return instant.Instant{}, false
	}
	return t.instants[0], true
}

func (t *Timeline) Last() (instant.Instant, bool) {
	if len(t.instants) == 0 {
		return instant.Instant{}, false
	}
	return t.instants[len(t.instants)-1], true
}

// FindInstantsAfter keeps instants strictly newer than timestamp.
func (t *Timeline) FindInstantsAfter(timestamp string) *Timeline {
	return t.filter(func(i instant.Instant) bool {
		return instant.CompareTimestamps(i.Timestamp, timestamp) > 0
	})
}

// Reverse returns instants newest first.
func (t *Timeline) Reverse() []instant.Instant {
	out := make([]instant.Instant, len(t.instants))
	for i, ins := range t.instants {
		out[len(t.instants)-1-i] = ins
	}
	return out
}
