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

package table

import (
	"strings"

	enterrors "github.com/weaviate/tablestore/entities/errors"
)

// Type is the layout mode of a table. It decides whether updates rewrite
// whole base files or append to per-file change logs.
type Type string

const (
	CopyOnWrite Type = "COPY_ON_WRITE"
	MergeOnRead Type = "MERGE_ON_READ"
)

// ConfigVersion is written into every new table config.
const ConfigVersion = 1

// DefaultArchiveFolder holds archived instants, relative to the meta folder.
const DefaultArchiveFolder = "archived"

func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToUpper(strings.TrimSpace(s))); t {
	case CopyOnWrite, MergeOnRead:
		return t, nil
	default:
		return "", enterrors.NewUnsupportedTableType(s)
	}
}

// Config is persisted once at table creation and never rewritten.
type Config struct {
	Name          string `json:"name"`
	Type          Type   `json:"type"`
	PayloadKind   string `json:"payloadKind"`
	ArchiveFolder string `json:"archiveFolder"`
	Version       int    `json:"version"`
}

// Validate reports ErrUnsupportedTableType for any type other than the two
// recognized layouts.
func (c Config) Validate() error {
	if _, err := ParseType(string(c.Type)); err != nil {
		return err
	}
	return nil
}
