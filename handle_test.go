//go:build unit_test

package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_getTraceID_honorsInboundHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.com/hello", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	assert.Equal(t, "abc-123", getTraceID(req))
}

func Test_getTraceID_generatesWhenAbsent(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.com/hello", nil)
	id := getTraceID(req)
	assert.NotEmpty(t, id)
}

func Test_allowedMethods(t *testing.T) {
	assert.True(t, allowedMethods(http.MethodGet))
	assert.True(t, allowedMethods(http.MethodHead))
	assert.True(t, allowedMethods(http.MethodOptions))
	assert.False(t, allowedMethods(http.MethodPost))
	assert.False(t, allowedMethods(http.MethodDelete))
}

func Test_buildHostList_order(t *testing.T) {
	req := httptest.NewRequest("GET", "http://ignored.example/hello?_host=override.example", nil)
	req.Host = "actual-host.example"
	req.Header.Set("X-Forwarded-Host", "forwarded.example")
	req.Header.Set("X-Forwarded-Proto", "https")

	query := req.URL.Query()
	hostList, proto := buildHostList(req, query, "", "iri-host.example")

	assert.Equal(t, []string{"override.example", "iri-host.example", "forwarded.example", "actual-host.example"}, hostList)
	assert.Equal(t, "https", proto)
}

func testLoaderWithFixtures(t *testing.T) *Loader {
	t.Helper()
	loader := NewLoader("./fixtures", newTestLogger())
	_, err := loader.Load(true)
	assert.NoError(t, err)
	return loader
}

func Test_handleRedir_missingIRI(t *testing.T) {
	loader := testLoaderWithFixtures(t)
	req := httptest.NewRequest("GET", "http://example.com/redir", nil)
	w := httptest.NewRecorder()

	handleRedir(newTestLogger(), loader, "").ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// Test_handleRedir_iriLackingScheme covers a PID URI with no "scheme://"
// prefix: it lacks the scheme://host/path shape, so it is rejected with 400
// and no redirect is issued.
func Test_handleRedir_iriLackingScheme(t *testing.T) {
	loader := testLoaderWithFixtures(t)
	req := httptest.NewRequest("GET", "http://localhost/redir", nil)
	req.URL.RawQuery = (url.Values{"_pid": {"example.com/hello"}}).Encode()
	w := httptest.NewRecorder()

	handleRedir(newTestLogger(), loader, "").ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "", w.Header().Get("Location"))
}

func Test_handleRedir_malformedIRI_noPathSeparator(t *testing.T) {
	loader := testLoaderWithFixtures(t)
	req := httptest.NewRequest("GET", "http://example.com/redir", nil)
	req.URL.RawQuery = (url.Values{"_pid": {"https://example.com"}}).Encode()
	w := httptest.NewRecorder()

	handleRedir(newTestLogger(), loader, "").ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func Test_handleRedir_success(t *testing.T) {
	loader := testLoaderWithFixtures(t)
	req := httptest.NewRequest("GET", "http://localhost/redir", nil)
	req.URL.RawQuery = (url.Values{"_pid": {"https://example.com/hello"}}).Encode()
	w := httptest.NewRecorder()

	handleRedir(newTestLogger(), loader, "").ServeHTTP(w, req)

	assert.Equal(t, http.StatusPermanentRedirect, w.Code)
	assert.Equal(t, "https://foo.com/hello", w.Header().Get("Location"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func Test_handleRedir_methodNotAllowed(t *testing.T) {
	loader := testLoaderWithFixtures(t)
	req := httptest.NewRequest("POST", "http://localhost/redir?_pid=https://example.com/hello", nil)
	w := httptest.NewRecorder()

	handleRedir(newTestLogger(), loader, "").ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET, HEAD, OPTIONS", w.Header().Get("Allow"))
}

func Test_handleIndex_success(t *testing.T) {
	loader := testLoaderWithFixtures(t)
	req := httptest.NewRequest("GET", "http://example.com/hello", nil)
	w := httptest.NewRecorder()

	handleIndex(newTestLogger(), loader, "").ServeHTTP(w, req)

	assert.Equal(t, http.StatusPermanentRedirect, w.Code)
	assert.Equal(t, "https://foo.com/hello", w.Header().Get("Location"))
}

func Test_handleIndex_noMatchIs404(t *testing.T) {
	loader := testLoaderWithFixtures(t)
	req := httptest.NewRequest("GET", "http://example.com/does-not-exist", nil)
	w := httptest.NewRecorder()

	handleIndex(newTestLogger(), loader, "").ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func Test_handleIndex_methodNotAllowed(t *testing.T) {
	loader := testLoaderWithFixtures(t)
	req := httptest.NewRequest("DELETE", "http://example.com/hello", nil)
	w := httptest.NewRecorder()

	handleIndex(newTestLogger(), loader, "").ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET, HEAD, OPTIONS", w.Header().Get("Allow"))
}

func Test_handleIndex_tablesNotLoaded(t *testing.T) {
	loader := NewLoader("./fixtures", newTestLogger())
	req := httptest.NewRequest("GET", "http://example.com/hello", nil)
	w := httptest.NewRecorder()

	handleIndex(newTestLogger(), loader, "").ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
