package syncclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dotX12/denyhosts-go/internal/domain"
)

func TestHTTPSyncClient_SendNewHosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var req sendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []string{"192.0.2.10"}, req.Hosts)

		json.NewEncoder(w).Encode(sendResponse{AckedAt: 1000})
	}))
	defer srv.Close()

	c := NewHTTPSyncClient(srv.URL, 5*time.Second)
	acked, err := c.SendNewHosts(context.Background(), []domain.Host{"192.0.2.10"})
	require.NoError(t, err)
	require.Equal(t, time.Unix(1000, 0), acked)
}

func TestHTTPSyncClient_ReceiveNewHosts_SkipsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(receiveResponse{Hosts: []string{"198.51.100.5", "not-an-ip"}})
	}))
	defer srv.Close()

	c := NewHTTPSyncClient(srv.URL, 5*time.Second)
	hosts, err := c.ReceiveNewHosts(context.Background())
	require.NoError(t, err)
	require.Equal(t, []domain.Host{"198.51.100.5"}, hosts)
}
