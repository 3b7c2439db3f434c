package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEnvelopeShapes(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeSuccess(rec, http.StatusOK, map[string]any{"id": 7})
	var success map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &success); err != nil {
		t.Fatalf("decode success body: %v", err)
	}
	if success["status"] != "success" || success["data"] == nil {
		t.Fatalf("unexpected success envelope: %v", success)
	}
	if _, ok := success["code"]; ok {
		t.Fatalf("success envelope must not carry an error code: %v", success)
	}
	if _, ok := success["message"]; ok {
		t.Fatalf("data responses must not carry a message: %v", success)
	}

	rec = httptest.NewRecorder()
	writeError(rec, http.StatusConflict, "DUPLICATE", "resource already exists")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var failure map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &failure); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if failure["status"] != "error" || failure["code"] != "DUPLICATE" {
		t.Fatalf("unexpected error envelope: %v", failure)
	}
	if _, ok := failure["data"]; ok {
		t.Fatalf("error envelope must not carry data: %v", failure)
	}
}
