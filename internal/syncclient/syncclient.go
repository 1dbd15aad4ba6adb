// Package syncclient implements C9: the peer-synchronization contract
// from spec.md §4.9. Only the two operations and their idempotency
// requirement are fixed; the wire protocol is an external collaborator
// (spec.md §1). The default implementation is a small JSON-over-HTTP
// client shaped after the teacher's own Downloader (net/http +
// http.Client{Timeout: ...}).
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dotX12/denyhosts-go/internal/domain"
)

// Client is the C9 contract: upload pending new hosts, and download
// hosts peers have seen. Re-uploading an already-synced host must be a
// no-op on the peer.
type Client interface {
	SendNewHosts(ctx context.Context, hosts []domain.Host) (ackedAt time.Time, err error)
	ReceiveNewHosts(ctx context.Context) ([]domain.Host, error)
}

// HTTPSyncClient is the default Client, talking JSON over HTTP to a
// cooperating peer's sync endpoint.
type HTTPSyncClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPSyncClient builds a client against baseURL, bounding every
// call to timeout (spec.md §5: "Sync calls must themselves bound their
// blocking").
func NewHTTPSyncClient(baseURL string, timeout time.Duration) *HTTPSyncClient {
	return &HTTPSyncClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type sendRequest struct {
	Hosts []string `json:"hosts"`
}

type sendResponse struct {
	AckedAt int64 `json:"acked_at"`
}

func (c *HTTPSyncClient) SendNewHosts(ctx context.Context, hosts []domain.Host) (time.Time, error) {
	strs := make([]string, len(hosts))
	for i, h := range hosts {
		strs[i] = string(h)
	}

	body, err := json.Marshal(sendRequest{Hosts: strs})
	if err != nil {
		return time.Time{}, fmt.Errorf("encoding sync upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/hosts", bytes.NewReader(body))
	if err != nil {
		return time.Time{}, fmt.Errorf("building sync upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("sync upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("sync upload rejected: status %d", resp.StatusCode)
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return time.Time{}, fmt.Errorf("decoding sync upload response: %w", err)
	}
	return time.Unix(out.AckedAt, 0), nil
}

type receiveResponse struct {
	Hosts []string `json:"hosts"`
}

func (c *HTTPSyncClient) ReceiveNewHosts(ctx context.Context) ([]domain.Host, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/hosts", nil)
	if err != nil {
		return nil, fmt.Errorf("building sync download request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sync download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sync download rejected: status %d", resp.StatusCode)
	}

	var out receiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding sync download response: %w", err)
	}

	hosts := make([]domain.Host, 0, len(out.Hosts))
	for _, h := range out.Hosts {
		host, err := domain.ParseHost(h)
		if err != nil {
			continue
		}
		hosts = append(hosts, host)
	}
	return hosts, nil
}
