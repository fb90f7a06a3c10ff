package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"codejudge/pkg/errors"

	"github.com/gin-gonic/gin"
)

func serve(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/x", func(c *gin.Context) {
		c.Set("trace_id", "trace-1")
		handler(c)
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	return rec, resp
}

func TestSuccessAndAccepted(t *testing.T) {
	rec, resp := serve(t, func(c *gin.Context) { Success(c, gin.H{"status": "accepted"}) })
	if rec.Code != http.StatusOK || resp.Code != errors.Success || resp.TraceID != "trace-1" {
		t.Fatalf("unexpected success response: %d %+v", rec.Code, resp)
	}
	rec, resp = serve(t, func(c *gin.Context) { Accepted(c, gin.H{"submission_id": 1}) })
	if rec.Code != http.StatusAccepted || resp.Code != errors.Success {
		t.Fatalf("unexpected accepted response: %d %+v", rec.Code, resp)
	}
}

func TestErrorMapsCode(t *testing.T) {
	rec, resp := serve(t, func(c *gin.Context) {
		Error(c, fmt.Errorf("submit: %w", errors.New(errors.JudgeQueueFull).WithDetail("submission_id", 5)))
	})
	if rec.Code != http.StatusTooManyRequests || resp.Code != errors.JudgeQueueFull {
		t.Fatalf("unexpected error response: %d %+v", rec.Code, resp)
	}
	details, ok := resp.Details.(map[string]interface{})
	if !ok || details["submission_id"] != float64(5) {
		t.Fatalf("expected submission_id detail, got %v", resp.Details)
	}
}

func TestErrorForeignIsInternal(t *testing.T) {
	rec, resp := serve(t, func(c *gin.Context) { Error(c, fmt.Errorf("db down")) })
	if rec.Code != http.StatusInternalServerError || resp.Code != errors.InternalServerError {
		t.Fatalf("unexpected response: %d %+v", rec.Code, resp)
	}
}

func TestErrorWithCodeDefaultsMessage(t *testing.T) {
	rec, resp := serve(t, func(c *gin.Context) { ErrorWithCode(c, errors.LanguageNotSupported, "") })
	if rec.Code != http.StatusBadRequest || resp.Message != errors.LanguageNotSupported.Message() {
		t.Fatalf("unexpected response: %d %+v", rec.Code, resp)
	}
}
