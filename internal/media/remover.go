package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// DirectRemover deletes listing images from the blob store inline.
type DirectRemover struct {
	blob BlobStore
}

func NewDirectRemover(blob BlobStore) *DirectRemover {
	return &DirectRemover{blob: blob}
}

func (r *DirectRemover) Owns(uri string) bool {
	return r.blob.Owns(uri)
}

func (r *DirectRemover) Remove(ctx context.Context, uri string) error {
	object, ok := r.blob.ObjectFromURI(uri)
	if !ok {
		return fmt.Errorf("image %q is not in the platform bucket", uri)
	}
	return r.blob.Delete(ctx, object)
}

// DeletionRequest is the Pub/Sub payload asking the worker to delete an image.
type DeletionRequest struct {
	Object      string    `json:"object"`
	URI         string    `json:"uri"`
	RequestedAt time.Time `json:"requested_at"`
}

type publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

// ScheduledRemover hands image deletion to the media deletion worker.
type ScheduledRemover struct {
	blob      BlobStore
	publisher publisher
	now       func() time.Time
}

func NewScheduledRemover(blob BlobStore, p *pubsub.Publisher) *ScheduledRemover {
	return newScheduledRemover(blob, &gcpPublisher{Publisher: p})
}

func newScheduledRemover(blob BlobStore, p publisher) *ScheduledRemover {
	return &ScheduledRemover{blob: blob, publisher: p, now: time.Now}
}

func (r *ScheduledRemover) Owns(uri string) bool {
	return r.blob.Owns(uri)
}

// Remove returns once Pub/Sub has accepted the request.
func (r *ScheduledRemover) Remove(ctx context.Context, uri string) error {
	object, ok := r.blob.ObjectFromURI(uri)
	if !ok {
		return fmt.Errorf("image %q is not in the platform bucket", uri)
	}
	data, err := json.Marshal(DeletionRequest{Object: object, URI: uri, RequestedAt: r.now().UTC()})
	if err != nil {
		return err
	}
	result := r.publisher.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"object": object},
	})
	if result == nil {
		return errors.New("image deletion publisher unavailable")
	}
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("schedule image deletion: %w", err)
	}
	return nil
}

type gcpPublisher struct {
	*pubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*pubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
