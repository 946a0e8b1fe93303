package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/eslsoft/vocsync/internal/entity"
	"github.com/eslsoft/vocsync/internal/infrastructure/config"
)

func TestSignerRoundTrip(t *testing.T) {
	signer := NewSigner("test-secret")
	token, err := signer.Issue(User{ID: "u-1", Email: " Ada@Example.com ", DisplayName: "Ada"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	user, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if user.ID != "u-1" || user.Email != "ada@example.com" || user.DisplayName != "Ada" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestSignerRejectsWrongKeyAndExpiry(t *testing.T) {
	token, err := NewSigner("one").Issue(User{ID: "u-1"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := NewSigner("two").Verify(token); !errors.Is(err, entity.ErrUserNotAuthenticated) {
		t.Fatalf("expected ErrUserNotAuthenticated for wrong key, got %v", err)
	}

	signer := NewSigner("one")
	signer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := signer.Verify(token); !errors.Is(err, entity.ErrUserNotAuthenticated) {
		t.Fatalf("expected ErrUserNotAuthenticated for expired token, got %v", err)
	}

	if _, err := signer.Issue(User{}, time.Hour); !errors.Is(err, entity.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without id, got %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	user, err := FromConfig(config.IdentityConfig{UserID: "u-2", Email: "Bob@Example.com", DisplayName: " Bob "})
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if email, ok := user.CurrentUserEmail(); !ok || email != "bob@example.com" {
		t.Fatalf("unexpected email %q", email)
	}
	if user.CurrentUserDisplayName() != "Bob" {
		t.Fatalf("unexpected display name %q", user.CurrentUserDisplayName())
	}

	token, err := NewSigner("k").Issue(User{ID: "u-3", Email: "carol@example.com"}, 0)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	user, err = FromConfig(config.IdentityConfig{Token: token, SigningKey: "k", UserID: "ignored"})
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if id, _ := user.CurrentUserID(); id != "u-3" {
		t.Fatalf("token should win over static fields, got %q", id)
	}

	if _, err := FromConfig(config.IdentityConfig{Token: token}); !errors.Is(err, entity.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without signing key, got %v", err)
	}

	var signedOut User
	if _, ok := signedOut.CurrentUserID(); ok {
		t.Fatal("zero user must be signed out")
	}
}
