package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{name: "domain error passes through", err: NewForbidden("nope"), wantCode: "FORBIDDEN", wantStatus: http.StatusForbidden},
		{name: "wrapped domain error", err: fmt.Errorf("load: %w", NewNotFound("issue", nil)), wantCode: "NOT_FOUND", wantStatus: http.StatusNotFound},
		{name: "pgx no rows", err: pgx.ErrNoRows, wantCode: "NOT_FOUND", wantStatus: http.StatusNotFound},
		{name: "mongo no documents", err: fmt.Errorf("find: %w", mongo.ErrNoDocuments), wantCode: "NOT_FOUND", wantStatus: http.StatusNotFound},
		{name: "unknown error", err: errors.New("socket closed"), wantCode: "INTERNAL_ERROR", wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			if got.Code != tt.wantCode {
				t.Fatalf("expected code %s, got %s", tt.wantCode, got.Code)
			}
			if got.HTTPStatus != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, got.HTTPStatus)
			}
		})
	}
}

func TestToDomainErrorNil(t *testing.T) {
	if got := ToDomainError(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	cause := errors.New("connection refused")
	de := ToDomainError(cause)
	if de.Message != "internal server error" {
		t.Fatalf("expected generic message, got %q", de.Message)
	}
	if !errors.Is(de, cause) {
		t.Fatalf("expected cause to be retained for logging")
	}
}

func TestIsCode(t *testing.T) {
	if !IsCode(NewNotFound("issue", nil), "NOT_FOUND") {
		t.Fatalf("expected NOT_FOUND")
	}
	if IsCode(errors.New("plain"), "NOT_FOUND") {
		t.Fatalf("plain errors carry no code")
	}
}

func TestNotFoundNamesResource(t *testing.T) {
	de := ToDomainError(NewNotFound("assignee", map[string]any{"id": "u-1"}))
	if de.Message != "assignee not found" || de.Details["id"] != "u-1" {
		t.Fatalf("unexpected error %+v", de)
	}
}
