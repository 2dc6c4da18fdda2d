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

package modfsazure

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/tablestore/entities/filestore"
)

const Name = "azure"

// Store keeps a table in an Azure blob container. A no-clobber upload uses
// If-None-Match: * so exclusive creates and renames are enforced by the
// service.
type Store struct {
	client    *azblob.Client
	container *container.Client
	config    Config
	logger    logrus.FieldLogger
}

func New(ctx context.Context, config Config, logger logrus.FieldLogger) (*Store, error) {
	if config.Container == "" {
		return nil, errors.New("empty container name provided")
	}
	connStr := config.ConnectionString
	if connStr == "" {
		connStr = os.Getenv(AZURE_STORAGE_CONNECTION_STRING)
	}
	if connStr == "" {
		return nil, errors.Errorf("missing %s", AZURE_STORAGE_CONNECTION_STRING)
	}
	client, err := azblob.NewClientFromConnectionString(connStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create client")
	}
	containerClient := client.ServiceClient().NewContainerClient(config.Container)
	if _, err := containerClient.GetProperties(ctx, nil); err != nil {
		return nil, errors.Wrapf(err, "find container '%s'", config.Container)
	}
	return &Store{client: client, container: containerClient, config: config, logger: logger}, nil
}

func (s *Store) Name() string {
	return Name
}

func (s *Store) blobName(p string) string {
	return filestore.Clean(path.Join(s.config.Prefix, filestore.Clean(p)))
}

func (s *Store) relPath(blobName string) string {
	return filestore.Rel(s.config.Prefix, strings.TrimSuffix(blobName, "/"))
}

func isNotFound(err error) bool {
	return bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound)
}

func isAlreadyExists(err error) bool {
	return bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet)
}

func noClobber() *blob.AccessConditions {
	return &blob.AccessConditions{
		ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: to.Ptr(azcore.ETagAny)},
	}
}

func (s *Store) hasChildren(ctx context.Context, blobName string) (bool, error) {
	pager := s.container.NewListBlobsFlatPager(&container.ListBlobsFlatOptions{
		Prefix:     to.Ptr(blobName + "/"),
		MaxResults: to.Ptr(int32(1)),
	})
	if !pager.More() {
		return false, nil
	}
	page, err := pager.NextPage(ctx)
	if err != nil {
		return false, errors.Wrapf(err, "list '%s'", blobName)
	}
	return page.Segment != nil && len(page.Segment.BlobItems) > 0, nil
}

func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	blobName := s.blobName(p)
	_, err := s.container.NewBlobClient(blobName).GetProperties(ctx, nil)
	if err == nil {
		return true, nil
	}
	if !isNotFound(err) {
		return false, errors.Wrapf(err, "stat blob '%s'", blobName)
	}
	return s.hasChildren(ctx, blobName)
}

func (s *Store) List(ctx context.Context, dir string) ([]filestore.FileInfo, error) {
	prefix := s.blobName(dir)
	if prefix != "" {
		prefix += "/"
	}
	var out []filestore.FileInfo
	pager := s.container.NewListBlobsHierarchyPager("/", &container.ListBlobsHierarchyOptions{
		Prefix: to.Ptr(prefix),
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "list '%s'", dir)
		}
		if page.Segment == nil {
			continue
		}
		for _, p := range page.Segment.BlobPrefixes {
			if p.Name != nil {
				out = append(out, filestore.FileInfo{Path: s.relPath(*p.Name), IsDir: true})
			}
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			fi := filestore.FileInfo{Path: s.relPath(*item.Name)}
			if item.Properties != nil && item.Properties.ContentLength != nil {
				fi.Size = *item.Properties.ContentLength
			}
			out = append(out, fi)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *Store) upload(ctx context.Context, blobName string, data []byte, overwrite bool) error {
	opts := &blockblob.UploadBufferOptions{}
	if !overwrite {
		opts.AccessConditions = noClobber()
	}
	_, err := s.container.NewBlockBlobClient(blobName).UploadBuffer(ctx, data, opts)
	return err
}

func (s *Store) Create(ctx context.Context, p string, overwrite bool) (io.WriteCloser, error) {
	return &blobWriter{ctx: ctx, store: s, path: p, overwrite: overwrite}, nil
}

type blobWriter struct {
	ctx       context.Context
	store     *Store
	path      string
	overwrite bool
	buf       bytes.Buffer
}

func (w *blobWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *blobWriter) Close() error {
	blobName := w.store.blobName(w.path)
	if err := w.store.upload(w.ctx, blobName, w.buf.Bytes(), w.overwrite); err != nil {
		if !w.overwrite && isAlreadyExists(err) {
			return errors.Wrapf(filestore.ErrAlreadyExists, "create '%s'", w.path)
		}
		return errors.Wrapf(err, "upload blob '%s'", blobName)
	}
	return nil
}

func (s *Store) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	blobName := s.blobName(p)
	resp, err := s.container.NewBlobClient(blobName).DownloadStream(ctx, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.Wrapf(filestore.ErrNotFound, "open '%s'", p)
		}
		return nil, errors.Wrapf(err, "download blob '%s'", blobName)
	}
	return resp.Body, nil
}

func (s *Store) Delete(ctx context.Context, p string, recursive bool) (bool, error) {
	blobName := s.blobName(p)
	_, err := s.container.NewBlobClient(blobName).Delete(ctx, nil)
	if err == nil {
		return true, nil
	}
	if !isNotFound(err) {
		return false, errors.Wrapf(err, "delete blob '%s'", blobName)
	}

	hasChildren, err := s.hasChildren(ctx, blobName)
	if err != nil || !hasChildren {
		return false, err
	}
	if !recursive {
		return false, errors.Errorf("delete '%s': directory not empty", p)
	}
	pager := s.container.NewListBlobsFlatPager(&container.ListBlobsFlatOptions{
		Prefix: to.Ptr(blobName + "/"),
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return false, errors.Wrapf(err, "list '%s'", p)
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			if _, err := s.container.NewBlobClient(*item.Name).Delete(ctx, nil); err != nil && !isNotFound(err) {
				return false, errors.Wrapf(err, "delete blob '%s'", *item.Name)
			}
		}
	}
	return true, nil
}

// Rename re-uploads src under dst with If-None-Match before deleting src.
func (s *Store) Rename(ctx context.Context, src, dst string) (bool, error) {
	from, dest := s.blobName(src), s.blobName(dst)
	resp, err := s.container.NewBlobClient(from).DownloadStream(ctx, nil)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "download blob '%s'", from)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return false, errors.Wrapf(err, "read blob '%s'", from)
	}

	if err := s.upload(ctx, dest, data, false); err != nil {
		if isAlreadyExists(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "upload blob '%s'", dest)
	}
	if _, err := s.container.NewBlobClient(from).Delete(ctx, nil); err != nil && !isNotFound(err) {
		return false, errors.Wrapf(err, "delete blob '%s'", from)
	}
	return true, nil
}

func (s *Store) MkdirAll(ctx context.Context, dir string) error {
	return ctx.Err()
}
