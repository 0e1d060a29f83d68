package users

import (
	"errors"
	"testing"
)

func TestCreateAndFind(t *testing.T) {
	repo := NewInMemoryRepository()

	user, err := repo.Create(t.Context(), &CreateUserRequest{
		Name:  "Ada Park",
		Email: "ada@example.com",
		Role:  RolePatient,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.ID == "" {
		t.Error("user has no ID")
	}

	found, err := repo.FindByID(t.Context(), user.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found.Email != "ada@example.com" {
		t.Errorf("email = %q", found.Email)
	}
}

func TestCreateValidation(t *testing.T) {
	repo := NewInMemoryRepository()

	tests := []struct {
		name string
		req  CreateUserRequest
		want error
	}{
		{"missing name", CreateUserRequest{Email: "x@example.com", Role: RolePatient}, ErrInvalidName},
		{"missing email", CreateUserRequest{Name: "X", Role: RoleDoctor}, ErrMissingEmail},
		{"bad role", CreateUserRequest{Name: "X", Email: "x@example.com", Role: "wizard"}, ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := repo.Create(t.Context(), &tt.req); !errors.Is(err, tt.want) {
				t.Errorf("Create = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFindByIDNotFound(t *testing.T) {
	repo := NewInMemoryRepository()
	if _, err := repo.FindByID(t.Context(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("FindByID = %v, want ErrUserNotFound", err)
	}
}
