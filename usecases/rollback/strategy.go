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
	"context"

	"github.com/sirupsen/logrus"

	"github.com/weaviate/tablestore/entities/instant"
	"github.com/weaviate/tablestore/entities/rollback"
	"github.com/weaviate/tablestore/usecases/markers"
	"github.com/weaviate/tablestore/usecases/timeline"
)

const (
	StrategyMarker  = "marker"
	StrategyListing = "listing"
)

// Strategy finds and undoes the files written by an instant.
type Strategy interface {
	Name() string
	Execute(ctx context.Context, target instant.Instant) ([]*rollback.Stat, error)
}

// ListingBased scans every partition for files written by the instant.
type ListingBased struct {
	meta                   *timeline.MetaClient
	helper                 *Helper
	assumeDatePartitioning bool
}

func NewListingBased(meta *timeline.MetaClient, helper *Helper, assumeDatePartitioning bool) *ListingBased {
	return &ListingBased{meta: meta, helper: helper, assumeDatePartitioning: assumeDatePartitioning}
}

func (s *ListingBased) Name() string {
	return StrategyListing
}

func (s *ListingBased) Execute(ctx context.Context, target instant.Instant) ([]*rollback.Stat, error) {
	reqs, err := ListingRequests(ctx, s.meta, s.assumeDatePartitioning)
	if err != nil {
		return nil, err
	}
	return s.helper.PerformRollback(ctx, target, reqs)
}

// MarkerBased undoes exactly the files the instant's markers name. Without a
// marker directory it falls back to listing.
type MarkerBased struct {
	meta     *timeline.MetaClient
	helper   *Helper
	fallback Strategy
	logger   logrus.FieldLogger
}

func NewMarkerBased(meta *timeline.MetaClient, helper *Helper, fallback Strategy,
	logger logrus.FieldLogger,
) *MarkerBased {
	return &MarkerBased{meta: meta, helper: helper, fallback: fallback, logger: logger}
}

func (s *MarkerBased) Name() string {
	return StrategyMarker
}

func (s *MarkerBased) Execute(ctx context.Context, target instant.Instant) ([]*rollback.Stat, error) {
	tracker := markers.NewTracker(s.meta, target.Timestamp)
	exists, err := tracker.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		s.logger.WithField("action", "rollback").
			WithField("instant", target.String()).
			WithField("strategy", StrategyMarker).
			Warn("no markers found, falling back to listing")
		return s.fallback.Execute(ctx, target)
	}

	reqs, err := MarkerRequests(ctx, tracker)
	if err != nil {
		return nil, err
	}
	return s.helper.PerformRollback(ctx, target, reqs)
}
