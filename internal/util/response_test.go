package util

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"quantum_quest_backend/pkg/quantum"

	"github.com/gin-gonic/gin"
)

func recordServiceError(t *testing.T, err error) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleServiceError(c, err)

	var body Response
	if decodeErr := json.Unmarshal(w.Body.Bytes(), &body); decodeErr != nil {
		t.Fatalf("decode response: %v", decodeErr)
	}
	return w, body
}

func TestHandleServiceErrorRejection(t *testing.T) {
	err := Reject(CodeInvalidCircuit, "unknown gate \"FOO\"", map[string]interface{}{"gate": "FOO"})
	w, body := recordServiceError(t, err)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	data, ok := body.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data missing from rejection body: %v", body)
	}
	if data["code"] != CodeInvalidCircuit {
		t.Fatalf("rejection code = %v", data["code"])
	}
}

func TestHandleServiceErrorInvalidCircuitFromScoring(t *testing.T) {
	// The scoring layer converts a circuit the oracle refuses into a
	// rejection; it must surface as a client error, not a 500.
	err := Reject(CodeInvalidCircuit, fmt.Sprintf("%v: unknown gate %q", quantum.ErrInvalidCircuit, "FOO"), nil)
	w, _ := recordServiceError(t, err)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid circuit status = %d, want 422", w.Code)
	}
}

func TestHandleServiceErrorOracleOutage(t *testing.T) {
	err := fmt.Errorf("scoring submission: %w", fmt.Errorf("%w: status 502", quantum.ErrOracleUnavailable))
	w, body := recordServiceError(t, err)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("oracle outage status = %d, want 503", w.Code)
	}
	if body.Code != http.StatusServiceUnavailable {
		t.Fatalf("body code = %d, want 503", body.Code)
	}
}

func TestHandleServiceErrorNotFound(t *testing.T) {
	for _, sentinel := range []error{
		ErrUserNotFound, ErrGameNotFound, ErrLevelNotFound,
		ErrProgressNotFound, ErrSessionNotFound,
	} {
		w, _ := recordServiceError(t, fmt.Errorf("lookup: %w", sentinel))
		if w.Code != http.StatusNotFound {
			t.Fatalf("%v: status = %d, want 404", sentinel, w.Code)
		}
	}
}

func TestHandleServiceErrorPermissionDenied(t *testing.T) {
	w, _ := recordServiceError(t, ErrPermissionDenied)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestHandleServiceErrorUnknown(t *testing.T) {
	w, body := recordServiceError(t, fmt.Errorf("database gone"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if body.Message == "database gone" {
		t.Fatal("internal error detail must not leak to clients")
	}
}
