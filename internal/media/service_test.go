package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	pkgauth "github.com/deorejayesh9663/UniTrade/pkg/auth"
	"github.com/deorejayesh9663/UniTrade/pkg/enums"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bucketBase = "https://storage.googleapis.com/unitrade/"

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type memoryBlob struct {
	uploads map[string][]byte
	types   map[string]string
	deleted []string
	err     error
}

func newMemoryBlob() *memoryBlob {
	return &memoryBlob{uploads: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryBlob) Upload(_ context.Context, object, contentType string, body io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.uploads[object] = data
	m.types[object] = contentType
	return bucketBase + object, nil
}

func (m *memoryBlob) ObjectFromURI(uri string) (string, bool) {
	object, ok := strings.CutPrefix(uri, bucketBase)
	return object, ok && object != ""
}

func (m *memoryBlob) Owns(uri string) bool {
	_, ok := m.ObjectFromURI(uri)
	return ok
}

func (m *memoryBlob) Delete(_ context.Context, object string) error {
	m.deleted = append(m.deleted, object)
	return m.err
}

var uploader = pkgauth.Principal{UserID: uuid.MustParse("2b1e7c1e-0000-4000-8000-000000000001"), Role: enums.UserRoleStudent}

func TestUploadListingImageStoresSniffedImage(t *testing.T) {
	blob := newMemoryBlob()
	svc, err := NewService(ServiceParams{Blob: blob, MaxBytes: 1 << 20})
	require.NoError(t, err)

	res, err := svc.UploadListingImage(context.Background(), uploader, bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "image/png", res.ContentType)
	assert.True(t, strings.HasPrefix(res.Object, "listings/"+uploader.UserID.String()+"/"))
	assert.True(t, strings.HasSuffix(res.Object, ".png"))
	assert.Equal(t, bucketBase+res.Object, res.URI)
	assert.Equal(t, pngHeader, blob.uploads[res.Object])
	assert.Equal(t, "image/png", blob.types[res.Object])
}

func TestUploadListingImageRejects(t *testing.T) {
	blob := newMemoryBlob()
	svc, err := NewService(ServiceParams{Blob: blob, MaxBytes: 8})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.UploadListingImage(ctx, uploader, bytes.NewReader(pngHeader))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "too large")

	svc, err = NewService(ServiceParams{Blob: blob, MaxBytes: 1 << 20})
	require.NoError(t, err)
	_, err = svc.UploadListingImage(ctx, uploader, strings.NewReader("%PDF-1.7 not an image"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "pdf")

	_, err = svc.UploadListingImage(ctx, uploader, bytes.NewReader(nil))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "empty")

	_, err = svc.UploadListingImage(ctx, pkgauth.Principal{}, bytes.NewReader(pngHeader))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	blob.err = errors.New("bucket offline")
	_, err = svc.UploadListingImage(ctx, uploader, bytes.NewReader(pngHeader))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Empty(t, blob.uploads)
}

func TestDirectRemover(t *testing.T) {
	blob := newMemoryBlob()
	r := NewDirectRemover(blob)

	assert.True(t, r.Owns(bucketBase+"listings/a.png"))
	assert.False(t, r.Owns("https://images.example/a.png"))

	require.NoError(t, r.Remove(context.Background(), bucketBase+"listings/a.png"))
	assert.Equal(t, []string{"listings/a.png"}, blob.deleted)
	assert.Error(t, r.Remove(context.Background(), "https://images.example/a.png"))
}

type fakeResult struct{ err error }

func (f fakeResult) Get(context.Context) (string, error) { return "id", f.err }

type fakePublisher struct {
	msgs []*pubsub.Message
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, msg *pubsub.Message) publishResult {
	f.msgs = append(f.msgs, msg)
	return fakeResult{err: f.err}
}

func TestScheduledRemoverPublishesRequest(t *testing.T) {
	blob := newMemoryBlob()
	pub := &fakePublisher{}
	r := newScheduledRemover(blob, pub)
	r.now = func() time.Time { return time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, r.Remove(context.Background(), bucketBase+"listings/u/b.webp"))
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "listings/u/b.webp", pub.msgs[0].Attributes["object"])
	assert.Contains(t, string(pub.msgs[0].Data), `"object":"listings/u/b.webp"`)
	assert.Empty(t, blob.deleted, "scheduling never deletes inline")

	pub.err = errors.New("pubsub down")
	assert.Error(t, r.Remove(context.Background(), bucketBase+"listings/u/c.webp"))
}
