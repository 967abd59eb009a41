package platform

import (
	"context"
	"io"

	"github.com/vovakirdan/friendlychat-server/internal/events"
	"github.com/vovakirdan/friendlychat-server/internal/objectstore"
)

// Storage wraps a bucket so that every object create, overwrite and delete fires
// an ObjectChanged event.
type Storage struct {
	*objectstore.Bucket
	triggers *Dispatcher
}

// NewStorage decorates bucket.
func NewStorage(bucket *objectstore.Bucket, triggers *Dispatcher) *Storage {
	return &Storage{Bucket: bucket, triggers: triggers}
}

// Put stores r at name.
func (s *Storage) Put(ctx context.Context, name string, r io.Reader) (objectstore.Attrs, error) {
	attrs, err := s.Bucket.Put(ctx, name, r)
	if err != nil {
		return objectstore.Attrs{}, err
	}
	s.changed(attrs, events.ResourceExists)
	return attrs, nil
}

// Upload overwrites name with the local file.
func (s *Storage) Upload(ctx context.Context, localPath, name string) error {
	attrs, err := s.Bucket.Upload(ctx, localPath, name)
	if err != nil {
		return err
	}
	s.changed(attrs, events.ResourceExists)
	return nil
}

// Delete removes name.
func (s *Storage) Delete(ctx context.Context, name string) error {
	if err := s.Bucket.Delete(ctx, name); err != nil {
		return err
	}
	s.changed(objectstore.Attrs{Bucket: s.Name(), Name: name}, events.ResourceNotExists)
	return nil
}

func (s *Storage) changed(attrs objectstore.Attrs, state events.ResourceState) {
	s.triggers.ObjectChanged(events.ObjectChanged{
		Bucket:        attrs.Bucket,
		Name:          attrs.Name,
		ResourceState: state,
		ContentType:   attrs.ContentType,
		Size:          attrs.Size,
	})
}
