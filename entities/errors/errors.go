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

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrConcurrentModification is returned when an instant marker changed
	// underneath a transition, e.g. another writer already reverted it.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrUnsupportedTableType is returned for a table type that is neither
	// copy-on-write nor merge-on-read.
	ErrUnsupportedTableType = errors.New("unsupported table type")

	// ErrRollbackSequence is returned when a completed instant cannot be
	// rolled back because newer instants depend on it.
	ErrRollbackSequence = errors.New("invalid rollback sequence")

	// ErrTableNotFound is returned when a base path holds no table config.
	ErrTableNotFound = errors.New("table not found")
)

func NewConcurrentModification(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConcurrentModification)
}

func NewTableNotFound(configPath string) error {
	return fmt.Errorf("%w: no config at %s", ErrTableNotFound, configPath)
}

func NewUnsupportedTableType(tableType string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedTableType, tableType)
}

// ErrIO wraps every failure reported by a file store.
type ErrIO struct {
	err error
}

func (e ErrIO) Error() string {
	return fmt.Sprintf("io: %v", e.err)
}

func (e ErrIO) Unwrap() error {
	return e.err
}

func NewErrIO(err error) error {
	if err == nil {
		return nil
	}
	var already ErrIO
	if errors.As(err, &already) {
		return err
	}
	return ErrIO{err}
}

func IsIO(err error) bool {
	var e ErrIO
	return errors.As(err, &e)
}
