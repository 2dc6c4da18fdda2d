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
	"context"
	"errors"
	"path"

	enterrors "github.com/weaviate/tablestore/entities/errors"
	"github.com/weaviate/tablestore/entities/filestore"
	"github.com/weaviate/tablestore/entities/instant"
)

// ActiveTimeline is the timeline loaded from the meta folder. It performs
// state transitions by exclusive creates and no-clobber renames of marker
// files. It does not reload itself; callers use Reload after a mutation.
type ActiveTimeline struct {
	*Timeline
	meta *MetaClient
}

func newActiveTimeline(meta *MetaClient, instants []instant.Instant) *ActiveTimeline {
	return &ActiveTimeline{Timeline: NewTimeline(instants), meta: meta}
}

func (a *ActiveTimeline) Reload(ctx context.Context) (*ActiveTimeline, error) {
	return a.meta.ReloadActiveTimeline(ctx)
}

func (a *ActiveTimeline) instantPath(ins instant.Instant) string {
	return path.Join(a.meta.MetaPath(), ins.FileName())
}

// CreateNewInstant writes the marker of a requested or inflight instant. An
// existing marker fails with ErrInvalidState.
func (a *ActiveTimeline) CreateNewInstant(ctx context.Context, ins instant.Instant, payload []byte) error {
	if ins.IsCompleted() {
		return enterrors.NewInvalidState("cannot create completed instant %s", ins)
	}
	err := filestore.WriteFile(ctx, a.meta.store, a.instantPath(ins), payload, false)
	if errors.Is(err, filestore.ErrAlreadyExists) {
		return enterrors.NewInvalidState("instant %s already exists", ins)
	} else if err != nil {
		return enterrors.NewErrIO(err)
	}
	a.meta.logger.WithField("action", "create_instant").
		WithField("instant", ins.String()).
		Debug("created instant")
	return nil
}

// TransitionRequestedToInflight creates the inflight marker next to the
// requested one, which is kept.
func (a *ActiveTimeline) TransitionRequestedToInflight(ctx context.Context, requested instant.Instant,
	payload []byte,
) (instant.Instant, error) {
	if !requested.IsRequested() {
		return instant.Instant{}, enterrors.NewInvalidState("instant %s is not requested", requested)
	}
	exists, err := a.meta.store.Exists(ctx, a.instantPath(requested))
	if err != nil {
		return instant.Instant{}, enterrors.NewErrIO(err)
	}
	if !exists {
		return instant.Instant{}, enterrors.NewInvalidState("requested instant %s not found", requested)
	}

	inflight := requested.WithState(instant.Inflight)
	if err := a.CreateNewInstant(ctx, inflight, payload); err != nil {
		return instant.Instant{}, err
	}
	return inflight, nil
}

// SaveAsComplete rewrites the inflight marker with payload and renames it to
// the completed marker. When the completed marker already exists the rename
// is refused and the commit fails, so an instant completes at most once.
func (a *ActiveTimeline) SaveAsComplete(ctx context.Context, inflight instant.Instant,
	payload []byte,
) (instant.Instant, error) {
	if !inflight.IsInflight() {
		return instant.Instant{}, enterrors.NewInvalidState("instant %s is not inflight", inflight)
	}
	from := a.instantPath(inflight)
	completed := inflight.WithState(instant.Completed)

	exists, err := a.meta.store.Exists(ctx, from)
	if err != nil {
		return instant.Instant{}, enterrors.NewErrIO(err)
	}
	if !exists {
		return instant.Instant{}, enterrors.NewInvalidState("inflight instant %s not found", inflight)
	}
	if err := filestore.WriteFile(ctx, a.meta.store, from, payload, true); err != nil {
		return instant.Instant{}, enterrors.NewErrIO(err)
	}

	ok, err := a.meta.store.Rename(ctx, from, a.instantPath(completed))
	if err != nil {
		return instant.Instant{}, enterrors.NewErrIO(err)
	}
	if !ok {
		return instant.Instant{}, enterrors.NewConcurrentModification("complete %s", inflight)
	}
	a.meta.logger.WithField("action", "complete_instant").
		WithField("instant", completed.String()).
		Debug("completed instant")
	return completed, nil
}

// RevertToInflight renames a completed marker back to inflight. A refused
// rename means another writer got there first.
func (a *ActiveTimeline) RevertToInflight(ctx context.Context, completed instant.Instant) (instant.Instant, error) {
	if !completed.IsCompleted() {
		return instant.Instant{}, enterrors.NewInvalidState("instant %s is not completed", completed)
	}
	inflight := completed.WithState(instant.Inflight)
	ok, err := a.meta.store.Rename(ctx, a.instantPath(completed), a.instantPath(inflight))
	if err != nil {
		return instant.Instant{}, enterrors.NewErrIO(err)
	}
	if !ok {
		return instant.Instant{}, enterrors.NewConcurrentModification("revert %s to inflight", completed)
	}
	a.meta.logger.WithField("action", "revert_instant").
		WithField("instant", completed.String()).
		Info("reverted completed instant to inflight")
	return inflight, nil
}

// DeletePending removes a requested or inflight marker. A missing marker is
// not an error.
func (a *ActiveTimeline) DeletePending(ctx context.Context, ins instant.Instant) error {
	if ins.IsCompleted() {
		return enterrors.NewInvalidState("cannot delete completed instant %s", ins)
	}
	if _, err := a.meta.store.Delete(ctx, a.instantPath(ins), false); err != nil {
		return enterrors.NewErrIO(err)
	}
	return nil
}

// InstantDetails returns the payload of the marker in the instant's state.
func (a *ActiveTimeline) InstantDetails(ctx context.Context, ins instant.Instant) ([]byte, error) {
	data, err := filestore.ReadFile(ctx, a.meta.store, a.instantPath(ins))
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return nil, enterrors.NewInvalidState("instant %s not found", ins)
		}
		return nil, enterrors.NewErrIO(err)
	}
	return data, nil
}
