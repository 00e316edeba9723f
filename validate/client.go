package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxResponseBytes = 1 << 20

const StatusSuccess = "success"

// ErrTransport wraps network failures and unparseable responses.
var ErrTransport = errors.New("validation transport failed")

// Result is the /validate response. Absent optional fields are empty.
type Result struct {
	Status           string          `json:"status"`
	DecodedMessage   string          `json:"decoded_message,omitempty"`
	Verified         bool            `json:"verified"`
	ExtractedMessage string          `json:"extracted_message,omitempty"`
	Message          string          `json:"message,omitempty"`
	DebugInfo        json.RawMessage `json:"debug_info,omitempty"`

	StatusCode int             `json:"-"`
	RequestID  string          `json:"-"`
	Metrics    *NetworkMetrics `json:"-"`
}

// Success reports status "success", whatever Verified says.
func (r *Result) Success() bool { return r.Status == StatusSuccess }

type validateRequest struct {
	DecodedText string `json:"decoded_text"`
}

// Validator submits decoded text for signature verification.
type Validator interface {
	Validate(ctx context.Context, text string) (*Result, error)
}

type Client struct {
	baseURL string
	client  *TracedClient
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  NewTracedClient(timeout),
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Validate posts {"decoded_text": text}. A JSON body is returned as a
// Result for any HTTP status, since the server reports failures as
// {"status":"error","message":...} with a 5xx code. A body without a status
// is a non-success Result, not a transport error.
func (c *Client) Validate(ctx context.Context, text string) (*Result, error) {
	body, err := json.Marshal(validateRequest{DecodedText: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/validate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	var result Result
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("%w: validate API error %d: %s", ErrTransport, resp.StatusCode, snippet(resp.Body))
	}
	result.StatusCode = resp.StatusCode
	result.RequestID = requestID
	result.Metrics = resp.Metrics
	return &result, nil
}

type signaturesResponse struct {
	Status     string            `json:"status"`
	Signatures map[string]string `json:"signatures"`
	Message    string            `json:"message"`
}

// Signatures lists the server's known signature to message mapping.
func (c *Client) Signatures(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/signatures", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("signatures API error %d: %s", resp.StatusCode, snippet(resp.Body))
	}
	var sr signaturesResponse
	if err := json.Unmarshal(resp.Body, &sr); err != nil {
		return nil, fmt.Errorf("%w: decoding signatures: %v", ErrTransport, err)
	}
	if sr.Status != StatusSuccess {
		return nil, fmt.Errorf("signatures API error: %s", sr.Message)
	}
	return sr.Signatures, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
