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
	"sync"
	"time"
)

const InstantTimeFormat = "20060102150405"

// InstantTimeGenerator hands out strictly increasing instant times. When the
// clock has not advanced past the last time handed out, the last time is
// bumped by one second.
type InstantTimeGenerator struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewInstantTimeGenerator(now func() time.Time) *InstantTimeGenerator {
	if now == nil {
		now = time.Now
	}
	return &InstantTimeGenerator{now: now}
}

func (g *InstantTimeGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	next := g.now().UTC().Truncate(time.Second)
	if !next.After(g.last) {
		next = g.last.Add(time.Second)
	}
	g.last = next
	return next.Format(InstantTimeFormat)
}

// Observe makes later calls to Next return times after ts. Malformed
// timestamps are ignored.
func (g *InstantTimeGenerator) Observe(ts string) {
	t, err := time.ParseInLocation(InstantTimeFormat, ts, time.UTC)
	if err != nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if t.After(g.last) {
		g.last = t
	}
}
