package media

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	pkgauth "github.com/deorejayesh9663/UniTrade/pkg/auth"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
	"github.com/oklog/ulid/v2"
)

// BlobStore is the platform object store.
type BlobStore interface {
	Upload(ctx context.Context, object, contentType string, body io.Reader) (string, error)
	ObjectFromURI(uri string) (string, bool)
	Owns(uri string) bool
	Delete(ctx context.Context, object string) error
}

type UploadResult struct {
	URI         string `json:"uri"`
	Object      string `json:"object"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type Service interface {
	// UploadListingImage stores an image for a listing the actor is about to
	// create or edit and returns its public URI.
	UploadListingImage(ctx context.Context, actor pkgauth.Principal, body io.Reader) (*UploadResult, error)
}

type ServiceParams struct {
	Blob     BlobStore
	MaxBytes int64
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	blob     BlobStore
	maxBytes int64
	logg     *logger.Logger
	now      func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

func NewService(params ServiceParams) (Service, error) {
	if params.Blob == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if params.MaxBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		blob:     params.Blob,
		maxBytes: params.MaxBytes,
		logg:     logg,
		now:      now,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}, nil
}

func (s *service) UploadListingImage(ctx context.Context, actor pkgauth.Principal, body io.Reader) (*UploadResult, error) {
	if !actor.IsAuthenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to upload images")
	}
	if body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}

	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file exceeds %d MB", s.maxBytes>>20))
	}
	contentType, ext, err := sniffImage(data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	object := fmt.Sprintf("listings/%s/%s%s", actor.UserID, s.nextID(), ext)
	uri, err := s.blob.Upload(ctx, object, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload image")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"user_id": actor.UserID.String(),
		"object":  object,
		"size":    len(data),
	})
	s.logg.Info(logCtx, "listing image uploaded")
	return &UploadResult{URI: uri, Object: object, ContentType: contentType, Size: int64(len(data))}, nil
}

func (s *service) nextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}
