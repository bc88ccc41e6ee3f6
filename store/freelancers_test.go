package store

import (
	"context"
	"testing"
)

// TestEnsureFreelancer tests that ensure is idempotent per email
func TestEnsureFreelancer(t *testing.T) {
	db, cleanup := createTestDatabase(t)
	defer cleanup()

	fs := NewFreelancerStore(db)
	ctx := context.Background()

	first, err := fs.EnsureFreelancer(ctx, "dev@example.com")
	if err != nil {
		t.Fatalf("Failed to ensure freelancer: %v", err)
	}
	if first.ID == "" {
		t.Error("Expected non-empty freelancer ID")
	}

	second, err := fs.EnsureFreelancer(ctx, "dev@example.com")
	if err != nil {
		t.Fatalf("Failed to re-ensure freelancer: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Expected same freelancer ID, got %s and %s", first.ID, second.ID)
	}
}

// TestEnsureFreelancerNormalizesEmail tests case and whitespace handling
func TestEnsureFreelancerNormalizesEmail(t *testing.T) {
	db, cleanup := createTestDatabase(t)
	defer cleanup()

	fs := NewFreelancerStore(db)
	ctx := context.Background()

	first, err := fs.EnsureFreelancer(ctx, "Dev@Example.com")
	if err != nil {
		t.Fatalf("Failed to ensure freelancer: %v", err)
	}
	if first.Email != "dev@example.com" {
		t.Errorf("Expected normalized email, got '%s'", first.Email)
	}

	second, err := fs.EnsureFreelancer(ctx, "  dev@example.com ")
	if err != nil {
		t.Fatalf("Failed to ensure freelancer: %v", err)
	}
	if second.ID != first.ID {
		t.Error("Expected normalization to deduplicate freelancers")
	}
}

// TestGetFreelancerNotFound tests the not-found path
func TestGetFreelancerNotFound(t *testing.T) {
	db, cleanup := createTestDatabase(t)
	defer cleanup()

	fs := NewFreelancerStore(db)

	_, err := fs.GetFreelancer(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}

	_, err = fs.GetFreelancerByEmail(context.Background(), "nobody@example.com")
	if !IsNotFound(err) {
		t.Errorf("Expected not-found error by email, got %v", err)
	}
}
