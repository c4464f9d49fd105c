package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/restoration-backend/internal/domain/provider"
)

// maxErrorBody caps how much of a failed response is kept for logs.
const maxErrorBody = 4 << 10

type restoreRequest struct {
	ImageURL string `json:"image_url"`
}

type restoreResponse struct {
	ResultURL string `json:"result_url"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client calls the restoration model over HTTP.
// Per-call deadlines come from the caller's context.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates an inference client. timeout bounds a whole Fetch download.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Restore submits imageURL and waits for the result URL
// POST /v1/restore
func (c *Client) Restore(ctx context.Context, imageURL string) (string, error) {
	body, err := json.Marshal(restoreRequest{ImageURL: imageURL})
	if err != nil {
		return "", &provider.ProviderError{
			Code:    "MARSHAL_ERROR",
			Message: "Failed to prepare request",
			Details: err.Error(),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/restore", bytes.NewReader(body))
	if err != nil {
		return "", &provider.ProviderError{
			Code:    "REQUEST_ERROR",
			Message: "Failed to create request",
			Details: err.Error(),
		}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// keep the context error visible to callers that check for deadlines
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("inference request aborted: %w", ctxErr)
		}
		return "", &provider.ProviderError{
			Code:    "API_ERROR",
			Message: "Inference API request failed",
			Details: err.Error(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var errResp errorResponse
		_ = json.Unmarshal(raw, &errResp)

		c.logger.Warn("Inference API returned an error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("code", errResp.Code),
			zap.String("response", string(raw)))

		code := errResp.Code
		if code == "" {
			code = fmt.Sprintf("HTTP_%d", resp.StatusCode)
		}
		message := errResp.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return "", &provider.ProviderError{
			Code:    code,
			Message: message,
			Details: string(raw),
		}
	}

	var result restoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse response",
			Details: err.Error(),
		}
	}
	if result.ResultURL == "" {
		return "", &provider.ProviderError{
			Code:    "EMPTY_RESULT",
			Message: "Inference API returned no result",
		}
	}
	return result.ResultURL, nil
}

// Fetch downloads a result image. The caller closes the body.
func (c *Client) Fetch(ctx context.Context, resultURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download result: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download result: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
