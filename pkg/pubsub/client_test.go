package pubsub

import (
	"context"
	"testing"

	"github.com/deorejayesh9663/UniTrade/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestResourceName(t *testing.T) {
	assert.Equal(t, "projects/p1/topics/image-deletion", resourceName("p1", "topics", " image-deletion "))
	assert.Equal(t, "projects/other/subscriptions/s", resourceName("p1", "subscriptions", "projects/other/subscriptions/s"))
	assert.Equal(t, "", resourceName("p1", "topics", ""))
	assert.Equal(t, "", resourceName("", "topics", "t"))
	assert.Equal(t, "projects/p1/topics/projects/x/subscriptions/y", resourceName("p1", "topics", "projects/x/subscriptions/y"))
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("t"))
	assert.Nil(t, c.Subscriber("s"))
	assert.ErrorIs(t, c.Ping(context.Background()), errNotInitialized)
	assert.NoError(t, c.Close())
}
