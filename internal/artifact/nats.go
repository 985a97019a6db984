package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultBucket is the object store bucket used when none is configured.
const DefaultBucket = "repopack-artifacts"

// NATSStore keeps artifacts in a JetStream object store bucket.
type NATSStore struct {
	obs jetstream.ObjectStore
	now func() time.Time
}

// NewNATSStore binds to bucket, creating it on first use.
func NewNATSStore(ctx context.Context, nc *nats.Conn, bucket string) (*NATSStore, error) {
	if nc == nil {
		return nil, errors.New("nats connection is required")
	}
	if bucket == "" {
		bucket = DefaultBucket
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to open jetstream: %w", err)
	}

	obs, err := js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      bucket,
		Description: "packed repository artifacts",
	})
	if errors.Is(err, jetstream.ErrBucketExists) {
		obs, err = js.ObjectStore(ctx, bucket)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to bind object store %s: %w", bucket, err)
	}
	return &NATSStore{obs: obs, now: time.Now}, nil
}

// Save uploads data under a new key.
func (s *NATSStore) Save(ctx context.Context, jobID, ext string, data []byte) (string, error) {
	name := ObjectName(s.now(), jobID, ext)
	if _, err := s.obs.PutBytes(ctx, name, data); err != nil {
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}
	return name, nil
}

// List returns the bucket's objects. An empty bucket yields no error.
func (s *NATSStore) List(ctx context.Context) ([]Object, error) {
	infos, err := s.obs.List(ctx)
	if errors.Is(err, jetstream.ErrNoObjectsFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	out := make([]Object, 0, len(infos))
	for _, info := range infos {
		obj := Object{Name: info.Name, Size: int64(info.Size), Created: info.ModTime}
		if t, ok := ParseKeyTime(info.Name); ok {
			obj.Created = t
		}
		out = append(out, obj)
	}
	return out, nil
}

// Delete removes one object. Missing objects are not an error.
func (s *NATSStore) Delete(ctx context.Context, name string) error {
	err := s.obs.Delete(ctx, name)
	if err != nil && !errors.Is(err, jetstream.ErrObjectNotFound) {
		return fmt.Errorf("failed to delete artifact %s: %w", name, err)
	}
	return nil
}
