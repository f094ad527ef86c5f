// Package remote calls functions on the hosted catalog backend.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	deskerrors "github.com/hpungsan/coursedesk/internal/errors"
)

// MaxReplyBytes caps how much of a reply is read.
const MaxReplyBytes = 4 << 20

// maxErrorBody bounds how much of a failed response is kept for the error message.
const maxErrorBody = 512

// Invoker calls a named remote function with a JSON payload.
type Invoker interface {
	Invoke(ctx context.Context, function string, payload any) (json.RawMessage, error)
}

// HTTPClient invokes functions at <baseURL>/functions/v1/<function>.
// Calls are not retried.
type HTTPClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client

	maxReply int64
}

// NewHTTPClient returns an HTTPClient. A zero timeout means no client-side limit
// beyond the caller's context.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},

		maxReply: MaxReplyBytes,
	}
}

// Invoke POSTs payload as JSON and returns the raw JSON reply.
// Transport failures and non-2xx replies become REMOTE_FAILURE errors.
func (c *HTTPClient) Invoke(ctx context.Context, function string, payload any) (json.RawMessage, error) {
	if strings.TrimSpace(function) == "" {
		return nil, deskerrors.NewInvalidRequest("function name is required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, deskerrors.NewInvalidRequest(fmt.Sprintf("encode payload: %v", err))
	}

	url := c.baseURL + "/functions/v1/" + function
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, deskerrors.NewInternal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, deskerrors.NewRemoteFailure(function, 0, err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxReply+1))
	if err != nil {
		return nil, deskerrors.NewRemoteFailure(function, resp.StatusCode, fmt.Sprintf("read body: %v", err))
	}
	if int64(len(data)) > c.maxReply {
		return nil, deskerrors.NewRemoteFailure(function, resp.StatusCode, fmt.Sprintf("reply exceeds %d bytes", c.maxReply))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, deskerrors.NewRemoteFailure(function, resp.StatusCode, errorMessage(resp.Status, data))
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(data) {
		return nil, deskerrors.NewRemoteFailure(function, resp.StatusCode, "reply is not valid JSON")
	}
	return json.RawMessage(data), nil
}

// errorMessage prefers an {"error": "..."} body over the bare status line.
func errorMessage(status string, body []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Message != "" {
			return e.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return status
	}
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return status + ": " + text
}
