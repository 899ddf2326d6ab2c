package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestSize_DeclaredLengthTooLarge(t *testing.T) {
	called := false
	handler := RequestSize(10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/feedback/create", strings.NewReader(strings.Repeat("a", 20)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, called)
}

func TestRequestSize_StreamingBodyIsCapped(t *testing.T) {
	var readErr error
	handler := RequestSize(10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/feedback/create", strings.NewReader(strings.Repeat("a", 20)))
	req.ContentLength = -1
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Error(t, readErr)
	var maxErr *http.MaxBytesError
	assert.ErrorAs(t, readErr, &maxErr)
}

func TestRequestSize_SmallBodyPasses(t *testing.T) {
	var body []byte
	handler := RequestSize(DefaultMaxBodySize)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`)))
	assert.Equal(t, `{"a":1}`, string(body))
}
