package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrCircuitOpen = fmt.Errorf("gateway circuit open")

// CreateFaxRequest is the outbound fax order sent to the carrier.
type CreateFaxRequest struct {
	ConnectionID string `json:"connection_id"`
	To           string `json:"to"`
	From         string `json:"from"`
	MediaURL     string `json:"media_url"`
}

// FaxCarrier queues an outbound fax and returns the carrier-assigned id.
type FaxCarrier interface {
	CreateFax(ctx context.Context, req CreateFaxRequest) (string, error)
}

// CarrierClient is the HTTP fax carrier client.
type CarrierClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	br      *breaker
}

func NewCarrierClient(baseURL, apiKey string, timeoutMs, failThreshold, openForMs int) *CarrierClient {
	if timeoutMs <= 0 {
		timeoutMs = 10000
	}

	return &CarrierClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:      newBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

type createFaxResponse struct {
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

// CreateFax posts the fax order. A 2xx response whose status reports
// "fail" is still a rejection; the worker retry policy owns what
// happens next.
func (c *CarrierClient) CreateFax(ctx context.Context, req CreateFaxRequest) (string, error) {
	if !c.br.tryAcquire() {
		return "", fmt.Errorf("carrier: %w", ErrCircuitOpen)
	}

	body, _ := json.Marshal(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/faxes", bytes.NewReader(body))
	if err != nil {
		c.br.onFailure()
		return "", fmt.Errorf("carrier: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.client.Do(httpReq)
	if err != nil {
		c.br.onFailure()
		return "", fmt.Errorf("carrier: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		c.br.onFailure()
		return "", fmt.Errorf("carrier: status=%d", res.StatusCode)
	}

	var out createFaxResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		c.br.onFailure()
		return "", fmt.Errorf("carrier: decode response: %w", err)
	}

	if s := strings.ToLower(out.Data.Status); s == "fail" || s == "failed" {
		c.br.onFailure()
		return "", fmt.Errorf("carrier: fax %s rejected with status=%s", out.Data.ID, out.Data.Status)
	}

	c.br.onSuccess()

	return out.Data.ID, nil
}
