package sat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPClient talks to the acquisition gateway, the internal service that
// fronts the tax authority's SOAP endpoints and holds the FIEL credentials.
// It implements both Client and StatusService.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, connectTimeout, requestTimeout time.Duration) *HTTPClient {
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
	}
	return &HTTPClient{
		baseURL: baseURL,
		http: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		},
	}
}

type createQueryRequest struct {
	RFC          string `json:"rfc"`
	Start        string `json:"start"`
	End          string `json:"end"`
	Direction    string `json:"direction"`
	RequestType  string `json:"request_type"`
	StatusFilter string `json:"status_filter,omitempty"`
}

type createQueryResponse struct {
	RequestID string `json:"request_id"`
}

func (c *HTTPClient) CreateQuery(ctx context.Context, params QueryParams) (string, error) {
	body := createQueryRequest{
		RFC:          params.RFC,
		Start:        params.Start.Format(time.RFC3339),
		End:          params.End.Format(time.RFC3339),
		Direction:    string(params.Direction),
		RequestType:  string(params.RequestType),
		StatusFilter: string(params.StatusFilter),
	}

	var resp createQueryResponse
	if err := c.postJSON(ctx, "CreateQuery", "/queries", body, &resp); err != nil {
		return "", err
	}
	return resp.RequestID, nil
}

type verifyQueryResponse struct {
	Status     string   `json:"status"`
	PackageIDs []string `json:"package_ids"`
	Message    string   `json:"message"`
}

func (c *HTTPClient) VerifyQuery(ctx context.Context, remoteRequestID string) (*VerifyResult, error) {
	var resp verifyQueryResponse
	if err := c.getJSON(ctx, "VerifyQuery", "/queries/"+url.PathEscape(remoteRequestID), &resp); err != nil {
		return nil, err
	}
	return &VerifyResult{
		Status:     QueryStatus(resp.Status),
		PackageIDs: resp.PackageIDs,
		Message:    resp.Message,
	}, nil
}

func (c *HTTPClient) DownloadPackage(ctx context.Context, remoteRequestID, packageID string) ([]byte, error) {
	path := fmt.Sprintf("/packages/%s/%s", url.PathEscape(remoteRequestID), url.PathEscape(packageID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("sat: building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RemoteError{Op: "DownloadPackage", Message: err.Error(), Transient: true}
	}
	defer resp.Body.Close()

	if err := c.checkStatus("DownloadPackage", resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

type documentStatusResponse struct {
	Status string `json:"status"`
}

func (c *HTTPClient) QueryDocumentStatus(ctx context.Context, uuid, issuerRFC, receiverRFC string, total decimal.Decimal) (DocumentStatus, error) {
	q := url.Values{}
	q.Set("uuid", uuid)
	q.Set("issuer", issuerRFC)
	q.Set("receiver", receiverRFC)
	q.Set("total", total.String())

	var resp documentStatusResponse
	if err := c.getJSON(ctx, "QueryDocumentStatus", "/status?"+q.Encode(), &resp); err != nil {
		return DocumentStatusUnknown, err
	}

	switch DocumentStatus(resp.Status) {
	case DocumentStatusCurrent, DocumentStatusCancelled:
		return DocumentStatus(resp.Status), nil
	default:
		return DocumentStatusUnknown, nil
	}
}

func (c *HTTPClient) postJSON(ctx context.Context, op, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("sat: encoding %s body: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sat: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doJSON(op, req, out)
}

func (c *HTTPClient) getJSON(ctx context.Context, op, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("sat: building request: %w", err)
	}
	return c.doJSON(op, req, out)
}

func (c *HTTPClient) doJSON(op string, req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		// Network-level faults are treated like server-side transients.
		return &RemoteError{Op: op, Message: err.Error(), Transient: true}
	}
	defer resp.Body.Close()

	if err := c.checkStatus(op, resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RemoteError{Op: op, Message: "malformed gateway response: " + err.Error()}
	}
	return nil
}

// checkStatus maps gateway HTTP statuses onto the error taxonomy: 5xx is a
// retryable transient fault, 4xx an explicit rejection.
func (c *HTTPClient) checkStatus(op string, resp *http.Response) error {
	switch {
	case resp.StatusCode >= 500:
		return &RemoteError{Op: op, Message: resp.Status, Code: resp.StatusCode, Transient: true}
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &RejectedError{Op: op, Message: fmt.Sprintf("%s: %s", resp.Status, bytes.TrimSpace(msg))}
	default:
		return nil
	}
}
