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
package modkibolt

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/weaviate/tablestore/entities/write"
)

const Name = "keyindex-bolt"

// Index remembers the record keys of committed batches in a local bolt file.
// Every partition is a bucket, keyed by record key, holding the instant time
// the key was first committed in.
type Index struct {
	sync.Mutex
	db     *bolt.DB
	path   string
	logger logrus.FieldLogger
}

func bucketName(partition string) []byte {
	return []byte("p:" + partition)
}

func Open(path string, logger logrus.FieldLogger) (*Index, error) {
	if path == "" {
		return nil, errors.New("empty index path provided")
	}
	path = filepath.Clean(path)
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open %q", path)
	}
	logger.WithField("module", Name).
		WithField("action", "open_key_index").
		Debugf("opened key index at %s", path)
	return &Index{db: db, path: path, logger: logger}, nil
}

func (i *Index) Close() error {
	i.Lock()
	defer i.Unlock()
	if i.db == nil {
		return nil
	}
	err := i.db.Close()
	i.db = nil
	return errors.Wrapf(err, "close %q", i.path)
}

// Existing reports the keys already recorded.
func (i *Index) Existing(ctx context.Context, keys []write.Key) (map[write.Key]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[write.Key]bool)
	err := i.db.View(func(tx *bolt.Tx) error {
		for _, k := range keys {
			b := tx.Bucket(bucketName(k.PartitionPath))
			if b == nil {
				continue
			}
			if b.Get([]byte(k.RecordKey)) != nil {
				out[k] = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "lookup keys")
	}
	return out, nil
}

// Add records keys as committed at instantTime. Keys recorded earlier keep
// their original instant time.
func (i *Index) Add(ctx context.Context, instantTime string, keys []write.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := i.db.Update(func(tx *bolt.Tx) error {
		for _, k := range keys {
			b, err := tx.CreateBucketIfNotExists(bucketName(k.PartitionPath))
			if err != nil {
				return errors.Wrap(err, "create bucket")
			}
			if b.Get([]byte(k.RecordKey)) != nil {
				continue
			}
			if err := b.Put([]byte(k.RecordKey), []byte(instantTime)); err != nil {
				return errors.Wrapf(err, "put key %s", k)
			}
		}
		return nil
	})
	return errors.Wrap(err, "record keys")
}

// CommittedIn returns the instant time key was first committed in.
func (i *Index) CommittedIn(key write.Key) (string, bool, error) {
	var ts string
	err := i.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(key.PartitionPath))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key.RecordKey)); v != nil {
			ts = string(v)
		}
		return nil
	})
	if err != nil {
		return "", false, errors.Wrap(err, "lookup key")
	}
	return ts, ts != "", nil
}
