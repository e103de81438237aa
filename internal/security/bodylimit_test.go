package security

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func echoBody(t *testing.T, captured *string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		*captured = string(data)
		w.WriteHeader(http.StatusOK)
	})
}

func TestBodyLimitPassesBodyThrough(t *testing.T) {
	var captured string
	handler := BodyLimit{Max: 64}.Middleware(echoBody(t, &captured))

	body := `{"items":[]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotations/preview", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, body, captured)
}

func TestBodyLimitRejectsStreamedOversizedBody(t *testing.T) {
	var captured string
	handler := BodyLimit{Max: 8}.Middleware(echoBody(t, &captured))

	// unknown length forces the middleware to read the stream
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotations", io.NopCloser(strings.NewReader(`{"customerName":"x"}`)))
	req.ContentLength = -1
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	require.Empty(t, captured)

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.Equal(t, "PAYLOAD_TOO_LARGE", envelope.Error.Code)
	require.Contains(t, envelope.Error.Message, "8 bytes")
}

func TestBodyLimitRejectsDeclaredLength(t *testing.T) {
	var captured string
	handler := BodyLimit{Max: 5}.Middleware(echoBody(t, &captured))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotations", strings.NewReader("abc"))
	req.ContentLength = 100
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestBodyLimitDisabled(t *testing.T) {
	var captured string
	handler := BodyLimit{}.Middleware(echoBody(t, &captured))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotations", strings.NewReader(strings.Repeat("a", 1024)))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, captured, 1024)
}
