package validator

import "testing"

type samplePayload struct {
	DeviceID string `validate:"required"`
	From     string `validate:"required"`
}

func TestValidator_StructRejectsMissingRequiredFields(t *testing.T) {
	v := New()
	if err := v.Struct(samplePayload{From: "chat-1"}); err == nil {
		t.Fatalf("expected a validation error for a missing required field")
	}
}

func TestValidator_StructAcceptsCompletePayload(t *testing.T) {
	v := New()
	if err := v.Struct(samplePayload{DeviceID: "device-1", From: "chat-1"}); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidator_VarValidatesTag(t *testing.T) {
	v := New()
	if err := v.Var("not-an-email", "email"); err == nil {
		t.Fatalf("expected an email validation failure")
	}
	if err := v.Var("ops@example.com", "email"); err != nil {
		t.Fatalf("unexpected error validating a well-formed email: %v", err)
	}
}
