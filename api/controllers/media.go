package controllers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/deorejayesh9663/UniTrade/api/middleware"
	"github.com/deorejayesh9663/UniTrade/api/responses"
	"github.com/deorejayesh9663/UniTrade/internal/media"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
)

const uploadFieldName = "file"

// MediaUploadListingImage accepts either a multipart form with a "file" part
// or the raw image as the request body.
func MediaUploadListingImage(svc media.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}
		// Leave room for multipart framing; the service enforces the exact limit.
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+64<<10)

		body, err := uploadBody(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.UploadListingImage(ctx, middleware.PrincipalFromContext(ctx), body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				err = pkgerrors.New(pkgerrors.CodeValidation, "file is too large")
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func uploadBody(r *http.Request) (io.Reader, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		return r.Body, nil
	}
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
		}
		if part.FormName() == uploadFieldName {
			return part, nil
		}
	}
}
