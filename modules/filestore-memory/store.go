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

// Package modfsmem is an in-process file store. It backs tests and dry
// runs, and lets callers inject failures into renames and deletes.
package modfsmem

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/weaviate/tablestore/entities/filestore"
)

const Name = "memory"

type Store struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]struct{}

	// RenameHook runs before every rename. A non-nil error aborts it.
	RenameHook func(src, dst string) error
	// DeleteHook runs before every delete. A non-nil error aborts it.
	DeleteHook func(path string) error
}

func New() *Store {
	return &Store{
		files: map[string][]byte{},
		dirs:  map[string]struct{}{},
	}
}

func (s *Store) Name() string {
	return Name
}

func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p = filestore.Clean(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[p]; ok {
		return true, nil
	}
	return s.isDirLocked(p), nil
}

func (s *Store) isDirLocked(p string) bool {
	if p == "" {
		return len(s.files) > 0 || len(s.dirs) > 0
	}
	if _, ok := s.dirs[p]; ok {
		return true
	}
	prefix := p + "/"
	for f := range s.files {
		if strings.HasPrefix(f, prefix) {
			return true
		}
	}
	for d := range s.dirs {
		if strings.HasPrefix(d, prefix) {
			return true
		}
	}
	return false
}

func (s *Store) List(ctx context.Context, dir string) ([]filestore.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir = filestore.Clean(dir)
	prefix := dir + "/"
	if dir == "" {
		prefix = ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[string]filestore.FileInfo{}
	add := func(p string, isFile bool) {
		if !strings.HasPrefix(p, prefix) || p == dir {
			return
		}
		rest := p[len(prefix):]
		if child, _, nested := strings.Cut(rest, "/"); nested {
			seen[prefix+child] = filestore.FileInfo{Path: prefix + child, IsDir: true}
			return
		}
		if isFile {
			seen[p] = filestore.FileInfo{Path: p, Size: int64(len(s.files[p]))}
		} else {
			seen[p] = filestore.FileInfo{Path: p, IsDir: true}
		}
	}
	for f := range s.files {
		add(f, true)
	}
	for d := range s.dirs {
		add(d, false)
	}

	out := make([]filestore.FileInfo, 0, len(seen))
	for _, fi := range seen {
		out = append(out, fi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *Store) Create(ctx context.Context, p string, overwrite bool) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p = filestore.Clean(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[p]; ok && !overwrite {
		return nil, fmt.Errorf("create %q: %w", p, filestore.ErrAlreadyExists)
	}
	return &writer{store: s, path: p, overwrite: overwrite}, nil
}

type writer struct {
	store     *Store
	path      string
	overwrite bool
	buf       bytes.Buffer
	closed    bool
}

func (w *writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("write %q: writer closed", w.path)
	}
	return w.buf.Write(p)
}

func (w *writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	if _, ok := w.store.files[w.path]; ok && !w.overwrite {
		return fmt.Errorf("create %q: %w", w.path, filestore.ErrAlreadyExists)
	}
	w.store.files[w.path] = append([]byte(nil), w.buf.Bytes()...)
	return nil
}

func (s *Store) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p = filestore.Clean(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[p]
	if !ok {
		return nil, fmt.Errorf("open %q: %w", p, filestore.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), data...))), nil
}

func (s *Store) Delete(ctx context.Context, p string, recursive bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p = filestore.Clean(p)
	if s.DeleteHook != nil {
		if err := s.DeleteHook(p); err != nil {
			return false, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[p]; ok {
		delete(s.files, p)
		return true, nil
	}
	if !s.isDirLocked(p) {
		return false, nil
	}
	prefix := p + "/"
	var children []string
	for f := range s.files {
		if strings.HasPrefix(f, prefix) {
			children = append(children, f)
		}
	}
	if len(children) > 0 && !recursive {
		return false, fmt.Errorf("delete %q: directory not empty", p)
	}
	for _, f := range children {
		delete(s.files, f)
	}
	for d := range s.dirs {
		if d == p || strings.HasPrefix(d, prefix) {
			delete(s.dirs, d)
		}
	}
	return true, nil
}

func (s *Store) Rename(ctx context.Context, src, dst string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	src, dst = filestore.Clean(src), filestore.Clean(dst)
	if s.RenameHook != nil {
		if err := s.RenameHook(src, dst); err != nil {
			return false, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[src]
	if !ok {
		return false, nil
	}
	if _, exists := s.files[dst]; exists {
		return false, nil
	}
	s.files[dst] = data
	delete(s.files, src)
	return true, nil
}

func (s *Store) MkdirAll(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir = filestore.Clean(dir)
	s.mu.Lock()
	defer s.mu.Unlock()
	for d := dir; d != "" && d != "."; d = path.Dir(d) {
		if _, ok := s.files[d]; ok {
			return fmt.Errorf("mkdir %q: %w", d, filestore.ErrAlreadyExists)
		}
		s.dirs[d] = struct{}{}
	}
	return nil
}

// Files returns a snapshot of all file paths.
func (s *Store) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for f := range s.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
