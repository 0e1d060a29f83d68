package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUnsupportedType is returned for content types outside the
	// allowlist.
	ErrUnsupportedType = errors.New("uploads: unsupported content type")

	// ErrNotFound is returned when no object exists at the key.
	ErrNotFound = errors.New("uploads: object not found")
)

// allowedTypes maps accepted content types to their file extensions.
// Medical reports are documents and images only.
var allowedTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// Object describes one stored medical report.
type Object struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Store persists patient report files.
type Store interface {
	Put(ctx context.Context, patientID, filename, contentType string, body io.Reader, size int64) (*Object, error)
	Get(ctx context.Context, key string) (io.ReadCloser, *Object, error)
	Delete(ctx context.Context, key string) error
}

// buildKey places each report under its patient's prefix with a
// generated name, keeping the original extension only when it matches
// the declared content type.
func buildKey(patientID, filename, contentType string) (string, error) {
	ext, ok := allowedTypes[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	if got := strings.ToLower(path.Ext(filename)); got != "" && got != ext && !(ext == ".jpg" && got == ".jpeg") {
		return "", fmt.Errorf("%w: extension %s does not match %s", ErrUnsupportedType, got, contentType)
	}
	return fmt.Sprintf("reports/%s/%s%s", patientID, uuid.NewString(), ext), nil
}
