// Package storage uploads course images to an HTTP object store.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"

	apperrors "github.com/coursekit/course-service/pkg/util/errorutil"
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

var (
	// ErrUnsupportedImage is returned when the payload is not an accepted image type.
	ErrUnsupportedImage = apperrors.NewDomainError(apperrors.KindValidation, "UNSUPPORTED_IMAGE", "image must be jpeg, png, webp or gif", http.StatusUnsupportedMediaType, nil)
	// ErrImageTooLarge is returned when the payload exceeds the configured size.
	ErrImageTooLarge = apperrors.NewDomainError(apperrors.KindValidation, "IMAGE_TOO_LARGE", "image exceeds the maximum size", http.StatusRequestEntityTooLarge, nil)
	// ErrStorageUnavailable is returned when the object store rejects or misses the upload.
	ErrStorageUnavailable = apperrors.NewDomainError(apperrors.KindInternal, "STORAGE_UNAVAILABLE", "image storage unavailable", http.StatusBadGateway, nil)
)

// Object is a stored blob.
type Object struct {
	Key       string
	PublicURL string
	MimeType  string
	Size      int64
}

// Uploader stores blobs.
type Uploader interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (*Object, error)
}

// DetectImage sniffs data and returns its MIME type and extension when it is
// an accepted image format.
func DetectImage(data []byte, maxBytes int64) (string, string, error) {
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", "", ErrImageTooLarge
	}
	mt := mimetype.Detect(data)
	for _, allowed := range allowedImageTypes {
		if mt.Is(allowed) {
			return allowed, mt.Extension(), nil
		}
	}
	return "", "", ErrUnsupportedImage.WithDetails(map[string]any{"detected": mt.String()})
}

// HTTPUploader PUTs objects to an upload endpoint.
type HTTPUploader struct {
	client        *resty.Client
	publicBaseURL string
}

// NewHTTPUploader builds an uploader against uploadURL.
func NewHTTPUploader(uploadURL, apiKey, publicBaseURL string, timeout time.Duration) *HTTPUploader {
	client := resty.New().
		SetBaseURL(strings.TrimRight(uploadURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &HTTPUploader{client: client, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// Put uploads data under key.
func (u *HTTPUploader) Put(ctx context.Context, key string, data []byte, contentType string) (*Object, error) {
	resp, err := u.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(data).
		Put("/" + strings.TrimLeft(key, "/"))
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	if resp.IsError() {
		return nil, wrapUnavailable(fmt.Errorf("upload status %d: %s", resp.StatusCode(), resp.String()))
	}
	return &Object{
		Key:       key,
		PublicURL: u.publicBaseURL + "/" + strings.TrimLeft(key, "/"),
		MimeType:  contentType,
		Size:      int64(len(data)),
	}, nil
}

func wrapUnavailable(err error) error {
	return &apperrors.DomainError{
		Kind:       ErrStorageUnavailable.Kind,
		Code:       ErrStorageUnavailable.Code,
		Message:    ErrStorageUnavailable.Message,
		HTTPStatus: ErrStorageUnavailable.HTTPStatus,
		Err:        err,
	}
}
