package notifications

import (
	"strings"
	"testing"
	"time"
)

func validCreateRequest() CreateRequest {
	return CreateRequest{
		RecipientID: "user-1",
		Type:        TypeGeneral,
		Title:       "Welcome",
		Message:     "Your account is ready",
	}
}

func TestCreateRequestValidateDefaults(t *testing.T) {
	req := validCreateRequest()
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if req.Priority != PriorityMedium {
		t.Errorf("default priority = %q, want %q", req.Priority, PriorityMedium)
	}
	if len(req.Channels) != 1 || req.Channels[0] != ChannelInApp {
		t.Errorf("default channels = %v, want [in_app]", req.Channels)
	}
}

func TestCreateRequestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateRequest)
		field  string
	}{
		{"missing recipient", func(r *CreateRequest) { r.RecipientID = " " }, "recipient_id"},
		{"unknown type", func(r *CreateRequest) { r.Type = "party_invite" }, "type"},
		{"unknown priority", func(r *CreateRequest) { r.Priority = "extreme" }, "priority"},
		{"empty title", func(r *CreateRequest) { r.Title = "  " }, "title"},
		{"title too long", func(r *CreateRequest) { r.Title = strings.Repeat("a", MaxTitleLength+1) }, "title"},
		{"empty message", func(r *CreateRequest) { r.Message = "" }, "message"},
		{"message too long", func(r *CreateRequest) { r.Message = strings.Repeat("a", MaxMessageLength+1) }, "message"},
		{"unknown channel", func(r *CreateRequest) { r.Channels = []Channel{"fax"} }, "channels"},
		{"duplicate channel", func(r *CreateRequest) { r.Channels = []Channel{ChannelEmail, ChannelEmail} }, "channels"},
		{"relative action url", func(r *CreateRequest) { r.ActionURL = "details.html" }, "action_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(&req)
			err := req.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !IsValidation(err) {
				t.Fatalf("error %v is not a ValidationError", err)
			}
			if ve, ok := err.(*ValidationError); ok && ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestCreateRequestValidateBoundaries(t *testing.T) {
	req := validCreateRequest()
	req.Title = strings.Repeat("a", MaxTitleLength)
	req.Message = strings.Repeat("b", MaxMessageLength)
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate() at exact length limits error = %v", err)
	}
}

func TestValidActionURL(t *testing.T) {
	valid := []string{"/appointments/42", "https://example.com/x", "http://example.com"}
	for _, u := range valid {
		if !validActionURL(u) {
			t.Errorf("validActionURL(%q) = false, want true", u)
		}
	}
	invalid := []string{"details", "ftp host", "://broken"}
	for _, u := range invalid {
		if validActionURL(u) {
			t.Errorf("validActionURL(%q) = true, want false", u)
		}
	}
}

func TestListFilterNormalize(t *testing.T) {
	f := ListFilter{Page: 0, PageSize: 500}
	f.normalize()
	if f.Page != 1 {
		t.Errorf("page = %d, want 1", f.Page)
	}
	if f.PageSize != 20 {
		t.Errorf("page_size = %d, want 20", f.PageSize)
	}

	f = ListFilter{Page: 3, PageSize: 50}
	f.normalize()
	if f.Page != 3 || f.PageSize != 50 {
		t.Errorf("normalize changed in-range values: page=%d page_size=%d", f.Page, f.PageSize)
	}
}

func TestInMemoryRepositoryListOrderingAndPaging(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := t.Context()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		n := &Notification{
			ID:          string(rune('a' + i)),
			RecipientID: "user-1",
			Type:        TypeGeneral,
			Priority:    PriorityMedium,
			Title:       "t",
			Message:     "m",
			ExpiresAt:   base.Add(DefaultTTL),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
			UpdatedAt:   base,
		}
		if err := repo.Create(ctx, n); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	page, total, err := repo.List(ctx, "user-1", ListFilter{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(page) != 2 {
		t.Fatalf("page length = %d, want 2", len(page))
	}
	if page[0].ID != "e" || page[1].ID != "d" {
		t.Errorf("page order = [%s %s], want newest first [e d]", page[0].ID, page[1].ID)
	}

	page, _, err = repo.List(ctx, "user-1", ListFilter{Page: 4, PageSize: 2})
	if err != nil {
		t.Fatalf("List past end: %v", err)
	}
	if len(page) != 0 {
		t.Errorf("past-end page length = %d, want 0", len(page))
	}
}

func TestInMemoryRepositoryOwnerScoping(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := t.Context()
	now := time.Now().UTC()

	n := &Notification{ID: "n1", RecipientID: "owner", Type: TypeGeneral, ExpiresAt: now.Add(time.Hour), CreatedAt: now, UpdatedAt: now}
	if err := repo.Create(ctx, n); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := repo.GetByID(ctx, "n1", "intruder"); err != ErrNotFound {
		t.Errorf("GetByID as non-owner = %v, want ErrNotFound", err)
	}
	if _, err := repo.MarkRead(ctx, "n1", "intruder", now); err != ErrNotFound {
		t.Errorf("MarkRead as non-owner = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, "n1", "intruder"); err != ErrNotFound {
		t.Errorf("Delete as non-owner = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByID(ctx, "n1", "owner"); err != nil {
		t.Errorf("GetByID as owner = %v, want nil", err)
	}
}

func TestInMemoryRepositoryDeleteExpired(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := t.Context()
	now := time.Now().UTC()

	expired := &Notification{ID: "old", RecipientID: "u", Type: TypeGeneral, ExpiresAt: now.Add(-time.Hour), CreatedAt: now.Add(-48 * time.Hour)}
	live := &Notification{ID: "new", RecipientID: "u", Type: TypeGeneral, ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	repo.Create(ctx, expired)
	repo.Create(ctx, live)

	count, err := repo.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if count != 1 {
		t.Errorf("deleted = %d, want 1", count)
	}
	if _, err := repo.GetByID(ctx, "new", "u"); err != nil {
		t.Errorf("live record was deleted: %v", err)
	}
}
