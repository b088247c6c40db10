package auth

import (
	"testing"
	"time"
)

func TestServiceTokenRoundTrip(t *testing.T) {
	manager := NewServiceTokenManager([]byte("test-secret"), time.Hour)

	token, err := manager.Generate("scheduler", ScopeRunsWrite, ScopeRunsRead)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Service != "scheduler" {
		t.Fatalf("expected service scheduler, got %q", claims.Service)
	}
	if !claims.HasScope(ScopeRunsWrite) || !claims.HasScope(ScopeRunsRead) {
		t.Fatalf("expected granted scopes, got %q", claims.Scope)
	}
	if claims.HasScope(ScopePostsRead) {
		t.Fatal("posts:read was never granted")
	}
}

func TestValidateRejectsWrongKey(t *testing.T) {
	manager := NewServiceTokenManager([]byte("key-a"), time.Hour)
	other := NewServiceTokenManager([]byte("key-b"), time.Hour)

	token, err := manager.Generate("scheduler", ScopeRunsRead)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := other.Validate(token); err == nil {
		t.Fatal("expected validation failure with a different key")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	manager := NewServiceTokenManager([]byte("test-secret"), -time.Minute)

	token, err := manager.Generate("scheduler", ScopeRunsRead)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := manager.Validate(token); err == nil {
		t.Fatal("expected validation failure for expired token")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	manager := NewServiceTokenManager([]byte("test-secret"), time.Hour)

	if _, err := manager.Validate("not.a.token"); err == nil {
		t.Fatal("expected validation failure")
	}
}
