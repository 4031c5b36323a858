package httperr

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTaxonomyStatuses(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
	}{
		{Validation("bad input"), http.StatusBadRequest},
		{Authentication("no token"), http.StatusUnauthorized},
		{Authorization("not yours"), http.StatusForbidden},
		{NotFound("missing"), http.StatusNotFound},
		{Internal("boom", errors.New("db down")), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if c.err.Status != c.status {
			t.Errorf("%q: status = %d, want %d", c.err.Message, c.err.Status, c.status)
		}
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestWriteHidesCauseInProduction(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, Internal("Error While Creating Book", errors.New("connection refused")), false)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["message"] != "Error While Creating Book" {
		t.Errorf("message = %q", body["message"])
	}
	if _, ok := body["errorStack"]; ok {
		t.Error("errorStack present in production mode")
	}
}

func TestWriteExposesCauseInDevelopment(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, Internal("Error While Creating Book", errors.New("connection refused")), true)
	body := decodeBody(t, rec)
	if body["errorStack"] != "connection refused" {
		t.Errorf("errorStack = %q", body["errorStack"])
	}
}

func TestWriteUnknownErrorDefaultsToInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, errors.New("surprise"), false)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if decodeBody(t, rec)["message"] != "Internal Server Error" {
		t.Error("unexpected message for untyped error")
	}
}

func TestHandlerTranslatesReturnedError(t *testing.T) {
	h := Handler(func(w http.ResponseWriter, r *http.Request) error {
		return NotFound("Book Not Found")
	}, false)
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/books/x", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if decodeBody(t, rec)["message"] != "Book Not Found" {
		t.Error("message not propagated")
	}
}

func TestHandlerWritesNothingExtraOnSuccess(t *testing.T) {
	h := Handler(func(w http.ResponseWriter, r *http.Request) error {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}, false)
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
}
