package uploads

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := t.Context()

	obj, err := store.Put(ctx, "patient-1", "bloodwork.pdf", "application/pdf", strings.NewReader("%PDF-1.4 data"), 13)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(obj.Key, "reports/patient-1/") {
		t.Errorf("key = %q, want patient prefix", obj.Key)
	}
	if !strings.HasSuffix(obj.Key, ".pdf") {
		t.Errorf("key = %q, want .pdf suffix", obj.Key)
	}

	body, meta, err := store.Get(ctx, obj.Key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "%PDF-1.4 data" {
		t.Errorf("data = %q", data)
	}
	if meta.ContentType != "application/pdf" {
		t.Errorf("content type = %q", meta.ContentType)
	}

	if err := store.Delete(ctx, obj.Key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := store.Get(ctx, obj.Key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestPutRejectsDisallowedContentType(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Put(t.Context(), "patient-1", "report.exe", "application/octet-stream", strings.NewReader("MZ"), 2)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("Put exe = %v, want ErrUnsupportedType", err)
	}
}

func TestPutRejectsMismatchedExtension(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Put(t.Context(), "patient-1", "scan.pdf", "image/png", strings.NewReader("png"), 3)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("Put mismatched extension = %v, want ErrUnsupportedType", err)
	}
}

func TestPutAcceptsJpegAlias(t *testing.T) {
	store := NewMemoryStore()

	obj, err := store.Put(t.Context(), "patient-1", "xray.jpeg", "image/jpeg", strings.NewReader("jpg"), 3)
	if err != nil {
		t.Fatalf("Put .jpeg for image/jpeg = %v, want success", err)
	}
	if !strings.HasSuffix(obj.Key, ".jpg") {
		t.Errorf("key = %q, want normalized .jpg suffix", obj.Key)
	}
}
