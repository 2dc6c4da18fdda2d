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

package modfslocal

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/tablestore/entities/filestore"
)

const Name = "filesystem"

// Store keeps a table on a local or mounted file system below root.
type Store struct {
	root   string
	logger logrus.FieldLogger
}

func New(root string, logger logrus.FieldLogger) (*Store, error) {
	if root == "" {
		return nil, errors.New("empty root path provided")
	}
	root = filepath.Clean(root)
	if !filepath.IsAbs(root) {
		return nil, errors.New("relative root path provided")
	}
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		logger.WithField("module", Name).
			WithField("action", "create_root_dir").
			WithError(err).
			Errorf("failed creating root directory %v", root)
		return nil, errors.Wrap(err, "make root dir")
	}
	return &Store{root: root, logger: logger}, nil
}

func (s *Store) Name() string {
	return Name
}

func (s *Store) abs(p string) string {
	return filepath.Join(s.root, filepath.FromSlash(filestore.Clean(p)))
}

func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(s.abs(p))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, errors.Wrapf(err, "stat '%s'", p)
	}
}

func (s *Store) List(ctx context.Context, dir string) ([]filestore.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.abs(dir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "list '%s'", dir)
	}

	dir = filestore.Clean(dir)
	out := make([]filestore.FileInfo, 0, len(entries))
	for _, e := range entries {
		fi := filestore.FileInfo{Path: path.Join(dir, e.Name()), IsDir: e.IsDir()}
		if !e.IsDir() {
			info, err := e.Info()
			if errors.Is(err, os.ErrNotExist) {
				// removed while listing
				continue
			} else if err != nil {
				return nil, errors.Wrapf(err, "stat '%s'", fi.Path)
			}
			fi.Size = info.Size()
		}
		out = append(out, fi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *Store) Create(ctx context.Context, p string, overwrite bool) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target := s.abs(p)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, errors.Wrapf(err, "make dir '%s'", dir)
	}

	if !overwrite {
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			return nil, errors.Wrapf(filestore.ErrAlreadyExists, "create '%s'", p)
		} else if err != nil {
			return nil, errors.Wrapf(err, "create '%s'", p)
		}
		return f, nil
	}

	// replaced content becomes visible at once on Close
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(target), uuid.NewString()))
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "create temp file for '%s'", p)
	}
	return &replacingWriter{File: f, target: target}, nil
}

type replacingWriter struct {
	*os.File
	target string
}

func (w *replacingWriter) Close() error {
	tmp := w.File.Name()
	if err := w.File.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "close '%s'", tmp)
	}
	if err := os.Rename(tmp, w.target); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "replace '%s'", w.target)
	}
	return nil
}

func (s *Store) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.abs(p))
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(filestore.ErrNotFound, "open '%s'", p)
	} else if err != nil {
		return nil, errors.Wrapf(err, "open '%s'", p)
	}
	return f, nil
}

func (s *Store) Delete(ctx context.Context, p string, recursive bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	target := s.abs(p)
	info, err := os.Stat(target)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, errors.Wrapf(err, "stat '%s'", p)
	}

	if info.IsDir() && recursive {
		if err := os.RemoveAll(target); err != nil {
			return false, errors.Wrapf(err, "delete dir '%s'", p)
		}
		return true, nil
	}
	if err := os.Remove(target); errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, errors.Wrapf(err, "delete '%s'", p)
	}
	return true, nil
}

// Rename links dst to src before unlinking src, so an existing dst is never
// replaced.
func (s *Store) Rename(ctx context.Context, src, dst string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	from, to := s.abs(src), s.abs(dst)
	if err := os.MkdirAll(filepath.Dir(to), os.ModePerm); err != nil {
		return false, errors.Wrapf(err, "make dir '%s'", path.Dir(dst))
	}

	if err := os.Link(from, to); err != nil {
		if errors.Is(err, os.ErrExist) || errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, errors.Wrapf(err, "rename '%s' to '%s'", src, dst)
	}
	if err := os.Remove(from); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, errors.Wrapf(err, "rename '%s' to '%s': remove source", src, dst)
	}
	return true, nil
}

func (s *Store) MkdirAll(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.abs(dir), os.ModePerm); err != nil {
		return errors.Wrapf(err, "make dir '%s'", dir)
	}
	return nil
}
