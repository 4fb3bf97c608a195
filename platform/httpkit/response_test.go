package httpkit

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"leadcrm_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func serve(t *testing.T, handler gin.HandlerFunc, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/", ActorHeaders(), handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHandleErrorMapsKinds(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", apperr.NotFound("lead not found"), http.StatusNotFound, "lead not found"},
		{"duplicate", apperr.Duplicate("mobile", uuid.New()), http.StatusConflict, "a lead with this mobile already exists"},
		{"infrastructure hides cause", apperr.Infrastructure("op", errors.New("dial tcp: refused")), http.StatusServiceUnavailable, "service temporarily unavailable"},
		{"untyped", errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, func(c *gin.Context) { HandleError(c, tc.err) }, nil)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, body.Error)
			}
		})
	}
}

func TestHandleErrorNilWritesNothing(t *testing.T) {
	rec := serve(t, func(c *gin.Context) {
		if HandleError(c, nil) {
			t.Fatalf("expected nil error to be unhandled")
		}
		c.Status(http.StatusNoContent)
	}, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestBulkStatus(t *testing.T) {
	payload := gin.H{"succeeded": 1}

	rec := serve(t, func(c *gin.Context) { Bulk(c, payload, nil) }, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = serve(t, func(c *gin.Context) { Bulk(c, payload, apperr.PartialFailure(1, 1, nil)) }, nil)
	if rec.Code != http.StatusMultiStatus {
		t.Fatalf("expected 207, got %d", rec.Code)
	}
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["succeeded"] != 1 {
		t.Fatalf("expected payload in 207 body, got %s", rec.Body.String())
	}

	rec = serve(t, func(c *gin.Context) { Bulk(c, payload, apperr.Validation("primaryId is required")) }, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestActorHeaders(t *testing.T) {
	id := uuid.New()
	var got Identity
	capture := func(c *gin.Context) {
		got = GetIdentity(c)
		c.Status(http.StatusOK)
	}

	rec := serve(t, capture, map[string]string{HeaderActorID: id.String(), HeaderActorName: " Priya "})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.UserID == nil || *got.UserID != id || got.Name != "Priya" {
		t.Fatalf("unexpected identity %+v", got)
	}

	got = Identity{}
	serve(t, capture, nil)
	if got.UserID != nil || got.Name != "" {
		t.Fatalf("expected anonymous identity, got %+v", got)
	}

	rec = serve(t, capture, map[string]string{HeaderActorID: "42"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed actor id, got %d", rec.Code)
	}
}
