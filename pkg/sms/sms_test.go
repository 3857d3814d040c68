package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"3001234567", "573001234567", false},
		{"573001234567", "573001234567", false},
		{"+57 300 123 4567", "573001234567", false},
		{"6011234567", "", true},
		{"30012345", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := FormatPhone(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTTPGateway_Send(t *testing.T) {
	var logins int32
	var sent sendRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			atomic.AddInt32(&logins, 1)
			_ = json.NewEncoder(w).Encode(loginResponse{Status: "success", Token: "tok", Expiration: 3600})
		case "/sms":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
			_ = json.NewEncoder(w).Encode(sendResponse{Status: "success"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	gw := NewHTTPGateway(HTTPConfig{APIURL: server.URL, Username: "u", Password: "p", Mask: "AUTOMAS"})

	_, err := gw.Send(context.Background(), "3001234567", "hola")
	require.NoError(t, err)
	_, err = gw.Send(context.Background(), "3001234567", "otra vez")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&logins), "token must be reused")
	require.Len(t, sent.MSISDN, 1)
	assert.Equal(t, "573001234567", sent.MSISDN[0].Mobile)
	assert.Equal(t, "AUTOMAS", sent.SourceAddress)
	assert.Equal(t, "otra vez", sent.Message)
}

func TestHTTPGateway_LoginRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(loginResponse{Status: "failed", Comment: "bad credentials", ErrCode: "104"})
	}))
	defer server.Close()

	gw := NewHTTPGateway(HTTPConfig{APIURL: server.URL})
	_, err := gw.Send(context.Background(), "3001234567", "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad credentials")
}

func TestHTTPGateway_InvalidPhone(t *testing.T) {
	gw := NewHTTPGateway(HTTPConfig{APIURL: "http://127.0.0.1:0"})
	_, err := gw.Send(context.Background(), "123", "hola")
	assert.Error(t, err)
}
