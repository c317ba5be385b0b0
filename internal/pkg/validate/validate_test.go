package validate

import (
	"strings"
	"testing"
)

type pairRequest struct {
	UserA string `json:"user_a" validate:"required,uuid"`
	UserB string `json:"user_b" validate:"required,uuid,nefield=UserA"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(pairRequest{UserA: "not-an-id"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "user_a must be a valid id") {
		t.Fatalf("unexpected message: %s", msg)
	}
	if !strings.Contains(msg, "user_b is required") {
		t.Fatalf("unexpected message: %s", msg)
	}
}

func TestStructAcceptsValidPayload(t *testing.T) {
	err := Struct(pairRequest{
		UserA: "6f1c1f0e-8a8b-4b52-9d1e-2a4c3c8e9a10",
		UserB: "0b7d4f2e-1c3a-4e5f-8a9b-7c6d5e4f3a21",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStructRejectsSameIDs(t *testing.T) {
	id := "6f1c1f0e-8a8b-4b52-9d1e-2a4c3c8e9a10"
	err := Struct(pairRequest{UserA: id, UserB: id})
	if err == nil || !strings.Contains(err.Error(), "user_b must differ") {
		t.Fatalf("expected nefield failure, got %v", err)
	}
}

func TestVarRejectsMalformedIDs(t *testing.T) {
	if err := Var("6f1c1f0e-8a8b-4b52-9d1e-2a4c3c8e9a10", "required,uuid"); err != nil {
		t.Fatalf("expected valid id, got %v", err)
	}
	for _, id := range []string{"", "c-1", "6f1c1f0e-8a8b"} {
		if err := Var(id, "required,uuid"); err == nil {
			t.Fatalf("expected %q to be rejected", id)
		}
	}
}
