package common

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name   string
		xff    string
		realIP string
		remote string
		want   string
	}{
		{name: "forwarded", xff: "203.0.113.9, 10.0.0.1", remote: "10.0.0.1:1234", want: "203.0.113.9"},
		{name: "skips garbage", xff: "unknown, 198.51.100.7", want: "198.51.100.7"},
		{name: "forwarded with port", xff: "198.51.100.7:4321", want: "198.51.100.7"},
		{name: "real ip", realIP: "2001:db8::1", remote: "10.0.0.1:1234", want: "2001:db8::1"},
		{name: "remote addr", remote: "192.0.2.10:5555", want: "192.0.2.10"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}
			if tc.remote != "" {
				req.RemoteAddr = tc.remote
			}
			require.Equal(t, tc.want, ClientIP(req))
		})
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	base := Unprocessable("VOUCHER_CONFLICT", "voucher conflict", errors.New("boom"))
	WriteError(rr, base.WithDetails(map[string]string{"field": "voucherCode"}))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.JSONEq(t, `{"error":{"code":"VOUCHER_CONFLICT","message":"voucher conflict","details":{"field":"voucherCode"}}}`, rr.Body.String())
	require.Nil(t, base.Details)

	rr = httptest.NewRecorder()
	WriteError(rr, errors.New("db exploded"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "exploded")
}
