// internal/images/uploader.go
package images

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"menuscan/internal/common/errors"
	"menuscan/internal/common/logger"
	"menuscan/internal/common/metrics"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// File is a local image selected for upload.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// s3API is the slice of the S3 client the uploader needs; narrowed for tests.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var acceptedUploadTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// Uploader stores local images in an S3-compatible bucket and returns the
// stable public URL. A successful upload feeds the same toggle-append path
// as a search-result selection.
type Uploader struct {
	client        s3API
	bucket        string
	publicBaseURL string
	maxBytes      int64
	logger        logger.Logger
}

func NewUploader(client s3API, bucket, publicBaseURL string, maxBytes int64, log logger.Logger) *Uploader {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Uploader{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		maxBytes:      maxBytes,
		logger:        log.WithFields(map[string]interface{}{"component": "image-uploader"}),
	}
}

// Upload validates the file is an accepted image type, stores it under a
// collision-free key, and returns its absolute public URL.
func (u *Uploader) Upload(ctx context.Context, file File) (string, error) {
	ext, ok := acceptedUploadTypes[file.ContentType]
	if !ok {
		return "", errors.NewInvalidFileTypeError(file.ContentType)
	}
	if int64(len(file.Data)) > u.maxBytes {
		return "", errors.NewUploadFailedError(
			fmt.Sprintf("file exceeds %d byte limit", u.maxBytes))
	}

	key := uploadKey(file.Filename, ext)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &u.bucket,
		Key:         &key,
		Body:        bytes.NewReader(file.Data),
		ContentType: &file.ContentType,
	})
	if err != nil {
		metrics.ImageUploads.WithLabelValues("error").Inc()
		return "", errors.NewUploadFailedError(err.Error())
	}

	url := fmt.Sprintf("%s/%s", u.publicBaseURL, key)
	metrics.ImageUploads.WithLabelValues("ok").Inc()
	u.logger.Info("image uploaded", map[string]interface{}{
		"key":   key,
		"bytes": len(file.Data),
	})

	return url, nil
}

// uploadKey derives a collision-free object key keeping the original base
// name for debuggability.
func uploadKey(filename, ext string) string {
	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)
	if base == "" {
		base = "image"
	}
	return fmt.Sprintf("uploads/%s-%s%s", base, uuid.NewString(), ext)
}
