package upload

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by the disabled uploader.
var ErrNotConfigured = errors.New("attachment uploads are not configured")

// Attachment is a binary payload to be hosted.
type Attachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Uploader stores an attachment on a media host and returns its durable URL.
// Calls are synchronous and never retried.
type Uploader interface {
	Upload(ctx context.Context, attachment Attachment) (string, error)
}

// UploaderFunc adapts a function to the Uploader interface.
type UploaderFunc func(ctx context.Context, attachment Attachment) (string, error)

// Upload calls f.
func (f UploaderFunc) Upload(ctx context.Context, attachment Attachment) (string, error) {
	return f(ctx, attachment)
}

// Disabled returns an Uploader that always fails with ErrNotConfigured.
func Disabled() Uploader {
	return UploaderFunc(func(context.Context, Attachment) (string, error) {
		return "", ErrNotConfigured
	})
}
