package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeErrorBody(t *testing.T, rr *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body struct {
		Error ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error
}

func TestWriteErrorAppError(t *testing.T) {
	appErr := NewAppError("SOURCE_ERROR", "data source unavailable", http.StatusBadGateway, errors.New("dial tcp"))
	rr := httptest.NewRecorder()
	WriteError(rr, fmt.Errorf("load: %w", appErr))

	require.Equal(t, http.StatusBadGateway, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	body := decodeErrorBody(t, rr)
	require.Equal(t, "SOURCE_ERROR", body.Code)
	require.Equal(t, "data source unavailable", body.Message)
}

func TestData(t *testing.T) {
	rr := httptest.NewRecorder()
	Data(rr, http.StatusAccepted, map[string]string{"task_id": "t1"})
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.JSONEq(t, `{"data":{"task_id":"t1"}}`, rr.Body.String())
}

func TestWriteErrorFallback(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "INTERNAL", decodeErrorBody(t, rr).Code)
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := NewAppError("X", "msg", http.StatusTeapot, cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "X: cause", err.Error())
	require.Equal(t, "X: msg", NewAppError("X", "msg", http.StatusTeapot, nil).Error())
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remote: "10.0.0.1:1234", want: "203.0.113.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.2"}, remote: "10.0.0.1:1234", want: "198.51.100.2"},
		{name: "skips invalid forwarded entries", headers: map[string]string{"X-Forwarded-For": "unknown, 203.0.113.9"}, remote: "10.0.0.1:1234", want: "203.0.113.9"},
		{name: "invalid real ip", headers: map[string]string{"X-Real-IP": "not-an-ip"}, remote: "10.0.0.1:1234", want: "10.0.0.1"},
		{name: "remote addr", remote: "192.0.2.10:5555", want: "192.0.2.10"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tc.want, ClientIP(req))
		})
	}
}
