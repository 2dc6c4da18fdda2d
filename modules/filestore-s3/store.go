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

package modfss3

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/tablestore/entities/filestore"
	"github.com/weaviate/tablestore/entities/retry"
)

const (
	Name = "s3"

	AWS_ROLE_ARN                = "AWS_ROLE_ARN"
	AWS_WEB_IDENTITY_TOKEN_FILE = "AWS_WEB_IDENTITY_TOKEN_FILE"
	AWS_REGION                  = "AWS_REGION"
	AWS_DEFAULT_REGION          = "AWS_DEFAULT_REGION"

	conflictRetryInterval   = 50 * time.Millisecond
	conflictRetryMaxElapsed = 5 * time.Second
)

// Store keeps a table in an S3 compatible bucket. Directories are key
// prefixes, so MkdirAll has nothing to do.
//
// Exclusive creates and renames are conditional puts (If-None-Match: *), so
// of two writers racing for the same key exactly one succeeds.
type Store struct {
	client *minio.Client
	config Config
	logger logrus.FieldLogger

	conflictBackoff func() backoff.BackOff
}

func New(ctx context.Context, config Config, logger logrus.FieldLogger) (*Store, error) {
	region := config.Region
	if region == "" {
		region = os.Getenv(AWS_REGION)
	}
	if region == "" {
		region = os.Getenv(AWS_DEFAULT_REGION)
	}
	creds := credentials.NewEnvAWS()
	if config.AccessKeyID != "" {
		creds = credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, "")
	} else if len(os.Getenv(AWS_WEB_IDENTITY_TOKEN_FILE)) > 0 && len(os.Getenv(AWS_ROLE_ARN)) > 0 {
		creds = credentials.NewIAM("")
	}
	client, err := minio.New(config.endpoint(), &minio.Options{
		Creds:  creds,
		Region: region,
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create client")
	}

	s := &Store{client: client, config: config, logger: logger, conflictBackoff: defaultConflictBackoff}
	if err := s.findBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Name() string {
	return Name
}

func (s *Store) findBucket(ctx context.Context) error {
	bucketName := s.config.bucket()
	bucketExists, err := s.client.BucketExists(ctx, bucketName)
	if err != nil {
		return errors.Wrap(err, "find bucket")
	}
	if !bucketExists {
		return errors.Errorf("find bucket: bucket '%s' does not exist", bucketName)
	}
	return nil
}

func (s *Store) objectName(p string) string {
	return filestore.Clean(path.Join(s.config.Prefix, filestore.Clean(p)))
}

func (s *Store) relPath(objectName string) string {
	return filestore.Rel(s.config.Prefix, strings.TrimSuffix(objectName, "/"))
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

// isPreconditionFailed reports a conditional put on a key that exists.
func isPreconditionFailed(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "PreconditionFailed" || resp.StatusCode == http.StatusPreconditionFailed
}

// isConditionalConflict reports a conditional put that raced another write
// of the same key. S3 expects the request to be retried.
func isConditionalConflict(err error) bool {
	return minio.ToErrorResponse(err).Code == "ConditionalRequestConflict"
}

func defaultConflictBackoff() backoff.BackOff {
	return retry.NewExponentialBackoff(conflictRetryInterval, conflictRetryMaxElapsed)
}

func (s *Store) retryConflicts(ctx context.Context, objectName string, op func() error) error {
	return retry.Do(ctx, s.conflictBackoff(), isConditionalConflict,
		func(err error, next time.Duration) {
			s.logger.WithField("object", objectName).WithError(err).
				Debugf("conditional put conflicted, retrying in %s", next)
		}, op)
}

// putIfAbsent writes objectName unless it exists and reports whether it did.
// body is called once per attempt. Errors are returned as minio reports them.
func (s *Store) putIfAbsent(ctx context.Context, objectName string,
	body func() (io.ReadCloser, int64, error),
) (bool, error) {
	err := s.retryConflicts(ctx, objectName, func() error {
		r, size, err := body()
		if err != nil {
			return err
		}
		defer r.Close()
		opts := minio.PutObjectOptions{ContentType: "application/octet-stream"}
		opts.SetMatchETagExcept("*")
		_, err = s.client.PutObject(ctx, s.config.bucket(), objectName, r, size, opts)
		return err
	})
	if err != nil {
		if isPreconditionFailed(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) statObject(ctx context.Context, objectName string) (minio.ObjectInfo, bool, error) {
	info, err := s.client.StatObject(ctx, s.config.bucket(), objectName, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return info, false, nil
		}
		return info, false, errors.Wrapf(err, "stat object '%s'", objectName)
	}
	return info, true, nil
}

func (s *Store) hasChildren(ctx context.Context, objectName string) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	for obj := range s.client.ListObjects(ctx, s.config.bucket(), minio.ListObjectsOptions{
		Prefix:    objectName + "/",
		Recursive: true,
		MaxKeys:   1,
	}) {
		if obj.Err != nil {
			return false, errors.Wrapf(obj.Err, "list '%s'", objectName)
		}
		return true, nil
	}
	return false, nil
}

func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	objectName := s.objectName(p)
	if _, ok, err := s.statObject(ctx, objectName); err != nil || ok {
		return ok, err
	}
	return s.hasChildren(ctx, objectName)
}

func (s *Store) List(ctx context.Context, dir string) ([]filestore.FileInfo, error) {
	prefix := s.objectName(dir)
	if prefix != "" {
		prefix += "/"
	}
	var out []filestore.FileInfo
	for obj := range s.client.ListObjects(ctx, s.config.bucket(), minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, errors.Wrapf(obj.Err, "list '%s'", dir)
		}
		out = append(out, filestore.FileInfo{
			Path:  s.relPath(obj.Key),
			IsDir: strings.HasSuffix(obj.Key, "/"),
			Size:  obj.Size,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *Store) Create(ctx context.Context, p string, overwrite bool) (io.WriteCloser, error) {
	objectName := s.objectName(p)
	if !overwrite {
		if _, ok, err := s.statObject(ctx, objectName); err != nil {
			return nil, err
		} else if ok {
			return nil, errors.Wrapf(filestore.ErrAlreadyExists, "create '%s'", p)
		}
	}
	return &objectWriter{ctx: ctx, store: s, path: p, objectName: objectName, overwrite: overwrite}, nil
}

type objectWriter struct {
	ctx        context.Context
	store      *Store
	path       string
	objectName string
	overwrite  bool
	buf        bytes.Buffer
}

func (w *objectWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *objectWriter) Close() error {
	s := w.store
	if !w.overwrite {
		created, err := s.putIfAbsent(w.ctx, w.objectName, func() (io.ReadCloser, int64, error) {
			return io.NopCloser(bytes.NewReader(w.buf.Bytes())), int64(w.buf.Len()), nil
		})
		if err != nil {
			return errors.Wrapf(err, "put file '%s'", w.objectName)
		}
		if !created {
			return errors.Wrapf(filestore.ErrAlreadyExists, "create '%s'", w.path)
		}
		return nil
	}
	reader := bytes.NewReader(w.buf.Bytes())
	_, err := s.client.PutObject(w.ctx, s.config.bucket(), w.objectName, reader, reader.Size(),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return errors.Wrapf(err, "put file '%s'", w.objectName)
	}
	return nil
}

func (s *Store) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	objectName := s.objectName(p)
	obj, err := s.client.GetObject(ctx, s.config.bucket(), objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "get file '%s'", objectName)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if isNotFound(err) {
			return nil, errors.Wrapf(filestore.ErrNotFound, "open '%s'", p)
		}
		return nil, errors.Wrapf(err, "get file '%s'", objectName)
	}
	return obj, nil
}

func (s *Store) Delete(ctx context.Context, p string, recursive bool) (bool, error) {
	objectName := s.objectName(p)
	if _, ok, err := s.statObject(ctx, objectName); err != nil {
		return false, err
	} else if ok {
		if err := s.client.RemoveObject(ctx, s.config.bucket(), objectName, minio.RemoveObjectOptions{}); err != nil {
			return false, errors.Wrapf(err, "remove file '%s'", objectName)
		}
		return true, nil
	}

	hasChildren, err := s.hasChildren(ctx, objectName)
	if err != nil || !hasChildren {
		return false, err
	}
	if !recursive {
		return false, errors.Errorf("delete '%s': directory not empty", p)
	}
	for obj := range s.client.ListObjects(ctx, s.config.bucket(), minio.ListObjectsOptions{
		Prefix:    objectName + "/",
		Recursive: true,
	}) {
		if obj.Err != nil {
			return false, errors.Wrapf(obj.Err, "list '%s'", p)
		}
		if err := s.client.RemoveObject(ctx, s.config.bucket(), obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return false, errors.Wrapf(err, "remove file '%s'", obj.Key)
		}
	}
	return true, nil
}

// Rename puts a copy of src at dst if dst is absent and then removes src.
func (s *Store) Rename(ctx context.Context, src, dst string) (bool, error) {
	from, to := s.objectName(src), s.objectName(dst)
	info, ok, err := s.statObject(ctx, from)
	if err != nil || !ok {
		return false, err
	}

	bucket := s.config.bucket()
	created, err := s.putIfAbsent(ctx, to, func() (io.ReadCloser, int64, error) {
		obj, err := s.client.GetObject(ctx, bucket, from, minio.GetObjectOptions{})
		if err != nil {
			return nil, 0, err
		}
		return obj, info.Size, nil
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "copy '%s' to '%s'", from, to)
	}
	if !created {
		return false, nil
	}
	if err := s.client.RemoveObject(ctx, bucket, from, minio.RemoveObjectOptions{}); err != nil {
		return false, errors.Wrapf(err, "remove file '%s'", from)
	}
	return true, nil
}

func (s *Store) MkdirAll(ctx context.Context, dir string) error {
	return ctx.Err()
}
