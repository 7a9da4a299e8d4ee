package apiutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSONRejectsUnknownFieldsAndTrailingData(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	var dst payload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"cup"}`))
	if err := DecodeJSON(req, &dst); err != nil || dst.Name != "cup" {
		t.Fatalf("expected decode, got %v %+v", err, dst)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"other":"x"}`))
	if err := DecodeJSON(req, &dst); err == nil {
		t.Fatalf("expected unknown field error")
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}{"name":"b"}`))
	if err := DecodeJSON(req, &dst); err == nil {
		t.Fatalf("expected trailing data error")
	}
}

func TestWriteErrorIncludesField(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := WriteError(rec, http.StatusBadRequest, FieldError{Field: "id", Reason: "is required"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "id is required" || body.Field != "id" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestPathUUID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetPathValue("id", "not-a-uuid")
	if _, err := PathUUID(req, "id"); err == nil {
		t.Fatalf("expected invalid uuid error")
	}

	req.SetPathValue("id", "6f1c8a36-3f0e-4b8e-9d83-4d6f1a0b2c11")
	id, err := PathUUID(req, "id")
	if err != nil || id.String() != "6f1c8a36-3f0e-4b8e-9d83-4d6f1a0b2c11" {
		t.Fatalf("unexpected result %s %v", id, err)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "  ", " b ", "c"); got != "b" {
		t.Fatalf("expected b, got %q", got)
	}
	if got := FirstNonEmpty(); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
