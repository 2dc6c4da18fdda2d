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

// Package filestore defines the contract every storage backend of a table
// implements. Paths are slash separated and relative to the backend root.
package filestore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

type FileInfo struct {
	Path  string
	IsDir bool
	Size  int64
}

// Name returns the last element of the path.
func (fi FileInfo) Name() string {
	return path.Base(fi.Path)
}

type FileStore interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	Exists(ctx context.Context, path string) (bool, error)

	// List returns the immediate children of dir sorted by path. A missing
	// dir yields an empty list.
	List(ctx context.Context, dir string) ([]FileInfo, error)

	// Create opens path for writing. Without overwrite, an existing path
	// fails with ErrAlreadyExists, either here or on Close.
	Create(ctx context.Context, path string, overwrite bool) (io.WriteCloser, error)

	// Open fails with ErrNotFound when path does not exist.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete reports false when path did not exist.
	Delete(ctx context.Context, path string, recursive bool) (bool, error)

	// Rename moves src to dst without replacing an existing dst. It reports
	// false when src is missing or dst already exists.
	Rename(ctx context.Context, src, dst string) (bool, error)

	MkdirAll(ctx context.Context, dir string) error
}

func WriteFile(ctx context.Context, fs FileStore, path string, data []byte, overwrite bool) error {
	w, err := fs.Create(ctx, path, overwrite)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func ReadFile(ctx context.Context, fs FileStore, path string) ([]byte, error) {
	r, err := fs.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// ListRecursive returns every file below dir, depth first, sorted by path.
func ListRecursive(ctx context.Context, fs FileStore, dir string) ([]FileInfo, error) {
	var out []FileInfo
	var walk func(string) error
	walk = func(d string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := fs.List(ctx, d)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.IsDir {
				if err := walk(e.Path); err != nil {
					return err
				}
				continue
			}
			out = append(out, e)
		}
		return nil
	}
	if err := walk(dir); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Clean normalizes p into the relative, slash separated form backends use.
func Clean(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	return p
}

// Rel returns p relative to base, or p itself when it is not below base.
func Rel(base, p string) string {
	base, p = Clean(base), Clean(p)
	if base == "" {
		return p
	}
	if p == base {
		return ""
	}
	if strings.HasPrefix(p, base+"/") {
		return p[len(base)+1:]
	}
	return p
}
