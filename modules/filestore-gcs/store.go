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

package modfsgcs

import (
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/weaviate/tablestore/entities/filestore"
)

const (
	Name = "gcs"

	GOOGLE_APPLICATION_CREDENTIALS = "GOOGLE_APPLICATION_CREDENTIALS"
)

// Store keeps a table in a GCS bucket. Exclusive creates and renames use
// the DoesNotExist precondition.
type Store struct {
	client *storage.Client
	bucket *storage.BucketHandle
	config Config
	logger logrus.FieldLogger
}

func New(ctx context.Context, config Config, logger logrus.FieldLogger) (*Store, error) {
	if config.Bucket == "" {
		return nil, errors.New("empty bucket name provided")
	}
	options := []option.ClientOption{}
	if len(os.Getenv(GOOGLE_APPLICATION_CREDENTIALS)) > 0 {
		scopes := []string{
			"https://www.googleapis.com/auth/devstorage.read_write",
		}
		creds, err := google.FindDefaultCredentials(ctx, scopes...)
		if err != nil {
			return nil, errors.Wrap(err, "find default credentials")
		}
		options = append(options, option.WithCredentials(creds))
	} else {
		options = append(options, option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, options...)
	if err != nil {
		return nil, errors.Wrap(err, "create client")
	}
	bucket := client.Bucket(config.Bucket)
	if _, err := bucket.Attrs(ctx); err != nil {
		return nil, errors.Wrapf(err, "find bucket '%s'", config.Bucket)
	}
	return &Store{client: client, bucket: bucket, config: config, logger: logger}, nil
}

func (s *Store) Name() string {
	return Name
}

func (s *Store) objectName(p string) string {
	return filestore.Clean(path.Join(s.config.Prefix, filestore.Clean(p)))
}

func (s *Store) relPath(objectName string) string {
	return filestore.Rel(s.config.Prefix, strings.TrimSuffix(objectName, "/"))
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

func isNotFound(err error) bool {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return true
	}
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

func (s *Store) hasChildren(ctx context.Context, objectName string) (bool, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: objectName + "/"})
	_, err := it.Next()
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "list '%s'", objectName)
	}
	return true, nil
}

func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	objectName := s.objectName(p)
	_, err := s.bucket.Object(objectName).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if !isNotFound(err) {
		return false, errors.Wrapf(err, "stat object '%s'", objectName)
	}
	return s.hasChildren(ctx, objectName)
}

func (s *Store) List(ctx context.Context, dir string) ([]filestore.FileInfo, error) {
	prefix := s.objectName(dir)
	if prefix != "" {
		prefix += "/"
	}
	var out []filestore.FileInfo
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "list '%s'", dir)
		}
		if attrs.Prefix != "" {
			out = append(out, filestore.FileInfo{Path: s.relPath(attrs.Prefix), IsDir: true})
			continue
		}
		out = append(out, filestore.FileInfo{Path: s.relPath(attrs.Name), Size: attrs.Size})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *Store) Create(ctx context.Context, p string, overwrite bool) (io.WriteCloser, error) {
	obj := s.bucket.Object(s.objectName(p))
	if !overwrite {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}
	w := obj.NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	return &objectWriter{Writer: w, path: p}, nil
}

type objectWriter struct {
	*storage.Writer
	path string
}

func (w *objectWriter) Close() error {
	err := w.Writer.Close()
	if err == nil {
		return nil
	}
	if isPreconditionFailed(err) {
		return errors.Wrapf(filestore.ErrAlreadyExists, "create '%s'", w.path)
	}
	return errors.Wrapf(err, "put file '%s'", w.path)
}

func (s *Store) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	objectName := s.objectName(p)
	reader, err := s.bucket.Object(objectName).NewReader(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.Wrapf(filestore.ErrNotFound, "open '%s'", p)
		}
		return nil, errors.Wrapf(err, "new reader: %v", objectName)
	}
	return reader, nil
}

func (s *Store) Delete(ctx context.Context, p string, recursive bool) (bool, error) {
	objectName := s.objectName(p)
	err := s.bucket.Object(objectName).Delete(ctx)
	if err == nil {
		return true, nil
	}
	if !isNotFound(err) {
		return false, errors.Wrapf(err, "delete object '%s'", objectName)
	}

	hasChildren, err := s.hasChildren(ctx, objectName)
	if err != nil || !hasChildren {
		return false, err
	}
	if !recursive {
		return false, errors.Errorf("delete '%s': directory not empty", p)
	}
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: objectName + "/"})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return false, errors.Wrapf(err, "list '%s'", p)
		}
		if err := s.bucket.Object(attrs.Name).Delete(ctx); err != nil && !isNotFound(err) {
			return false, errors.Wrapf(err, "delete object '%s'", attrs.Name)
		}
	}
	return true, nil
}

func (s *Store) Rename(ctx context.Context, src, dst string) (bool, error) {
	from := s.bucket.Object(s.objectName(src))
	to := s.bucket.Object(s.objectName(dst)).If(storage.Conditions{DoesNotExist: true})

	if _, err := to.CopierFrom(from).Run(ctx); err != nil {
		if isPreconditionFailed(err) || isNotFound(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "copy '%s' to '%s'", src, dst)
	}
	if err := from.Delete(ctx); err != nil && !isNotFound(err) {
		return false, errors.Wrapf(err, "delete object '%s'", src)
	}
	return true, nil
}

func (s *Store) MkdirAll(ctx context.Context, dir string) error {
	return ctx.Err()
}
