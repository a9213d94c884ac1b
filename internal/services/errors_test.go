package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestServiceError_Error(t *testing.T) {
	err := &ServiceError{
		Code:    "TEST_ERROR",
		Message: "Test error message",
	}

	if err.Error() != "Test error message" {
		t.Errorf("Expected 'Test error message', got '%s'", err.Error())
	}
}

func TestNewServiceErrorWithDetails(t *testing.T) {
	details := map[string]interface{}{
		"field":  "period",
		"reason": "unknown value",
	}

	err := NewServiceErrorWithDetails(CodeValidation, "Validation failed", details)

	if err.Code != CodeValidation {
		t.Errorf("Expected code %s, got '%s'", CodeValidation, err.Code)
	}
	if err.Details["field"] != "period" {
		t.Errorf("Expected field detail, got %v", err.Details)
	}
}

func TestStorageErrorKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.5:3306: connection refused")
	err := NewStorageError(cause)

	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to find the cause")
	}
	if strings.Contains(err.Message, "10.0.0.5") {
		t.Errorf("Message leaks cause: %s", err.Message)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error() should include cause for logs, got %s", err.Error())
	}

	// The cause is never serialized
	data, _ := json.Marshal(err)
	if strings.Contains(string(data), "refused") {
		t.Errorf("JSON leaks cause: %s", data)
	}
}

func TestIsCode(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NewNotFoundError("no pump events recorded yet"))

	if !IsCode(wrapped, CodeNotFound) {
		t.Error("Expected NOT_FOUND through wrapping")
	}
	if IsCode(wrapped, CodeValidation) {
		t.Error("Did not expect VALIDATION_ERROR")
	}
	if IsCode(errors.New("plain"), CodeNotFound) {
		t.Error("Plain errors carry no code")
	}
}
