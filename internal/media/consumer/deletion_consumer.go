package consumer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/deorejayesh9663/UniTrade/internal/media"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
	"github.com/deorejayesh9663/UniTrade/pkg/metrics"
	"google.golang.org/api/googleapi"
)

const listingObjectPrefix = "listings/"

type objectDeleter interface {
	Delete(ctx context.Context, object string) error
}

// DeletionConsumer drains image deletion requests scheduled when listings are
// deleted or purged.
type DeletionConsumer struct {
	blob         objectDeleter
	subscription *pubsub.Subscriber
	logg         *logger.Logger
	metrics      *metrics.MarketplaceMetrics
}

func NewDeletionConsumer(blob objectDeleter, subscription *pubsub.Subscriber, logg *logger.Logger, m *metrics.MarketplaceMetrics) (*DeletionConsumer, error) {
	if blob == nil {
		return nil, errors.New("blob store is required")
	}
	if subscription == nil {
		return nil, errors.New("image deletion subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &DeletionConsumer{blob: blob, subscription: subscription, logg: logg, metrics: m}, nil
}

// Run processes deletion requests until the context is canceled.
func (c *DeletionConsumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *DeletionConsumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithField(ctx, "message_id", msg.ID)

	payload, err := decodePayload(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return processResult{ack: true}
	}
	var req media.DeletionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		logCtx = c.logg.WithFields(logCtx, map[string]any{
			"payload_preview": previewBytes(payload, 800),
			"payload_len":     len(payload),
		})
		c.logg.Error(logCtx, "failed to unmarshal payload", err)
		return processResult{ack: true}
	}

	object := strings.TrimSpace(req.Object)
	if object == "" {
		object = strings.TrimSpace(msg.Attributes["object"])
	}
	logCtx = c.logg.WithField(logCtx, "object", object)
	if !strings.HasPrefix(object, listingObjectPrefix) {
		c.logg.Error(logCtx, "refusing to delete object outside the listing prefix", fmt.Errorf("object %q", object))
		return processResult{ack: true}
	}

	if err := c.blob.Delete(ctx, object); err != nil {
		c.metrics.ImageRemovalFailed("worker")
		c.logg.Error(logCtx, "image deletion failed", err)
		if isTransient(err) {
			return processResult{nack: true}
		}
		return processResult{ack: true}
	}

	c.logg.Info(logCtx, "listing image deleted")
	return processResult{ack: true}
}

func decodePayload(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("payload empty")
	}
	if decoded, err := base64.StdEncoding.DecodeString(string(data)); err == nil {
		return decoded, nil
	}
	return data, nil
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func previewBytes(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "...(truncated)"
}
