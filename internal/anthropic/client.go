package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/MikeSquared-Agency/digest/internal/llm"
)

const defaultAPIURL = "https://api.anthropic.com/v1/messages"

// Client calls the Anthropic Messages API. It implements llm.Client and is
// the single place where raw provider failures are classified into
// llm.Error values.
type Client struct {
	apiKey string
	model  string
	client *http.Client
	apiURL string
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 120 * time.Second},
		apiURL: defaultAPIURL,
	}
}

// SetTestTransport points the client at a test server.
func (c *Client) SetTestTransport(url string) {
	c.apiURL = url
}

type request struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []llm.Message `json:"messages"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a message to the Anthropic API and returns the text response.
// Failures come back as *llm.Error with the kind already decided.
func (c *Client) Complete(ctx context.Context, system string, messages []llm.Message, maxTokens int) (string, error) {
	reqBody := request{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  messages,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &llm.Error{Kind: llm.KindGeneric, Message: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", &llm.Error{Kind: llm.KindGeneric, Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &llm.Error{Kind: llm.KindGeneric, Message: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp, respBody)
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", &llm.Error{Kind: llm.KindGeneric, Message: "unmarshal response", Err: err}
	}

	if len(apiResp.Content) == 0 {
		return "", &llm.Error{Kind: llm.KindGeneric, Message: "empty response content"}
	}

	return apiResp.Content[0].Text, nil
}

// classifyTransport maps client-side call failures. Deadline and net
// timeouts become KindTimeout; everything else stays generic.
func classifyTransport(err error) *llm.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &llm.Error{Kind: llm.KindTimeout, Message: "request deadline exceeded", Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &llm.Error{Kind: llm.KindTimeout, Message: "request timed out", Err: err}
	}
	return &llm.Error{Kind: llm.KindGeneric, Message: "api call", Err: err}
}

// classifyStatus maps non-200 responses to error kinds.
func classifyStatus(resp *http.Response, body []byte) *llm.Error {
	msg := string(body)
	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		msg = fmt.Sprintf("%s — %s", errResp.Error.Type, errResp.Error.Message)
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return &llm.Error{
			Kind:       llm.KindRateLimit,
			RetryAfter: retryAfterSeconds(resp.Header.Get("Retry-After")),
			Message:    fmt.Sprintf("api error %d: %s", resp.StatusCode, msg),
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &llm.Error{
			Kind:    llm.KindAuthentication,
			Message: fmt.Sprintf("api error %d: %s", resp.StatusCode, msg),
		}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &llm.Error{
			Kind:    llm.KindTimeout,
			Message: fmt.Sprintf("api error %d: %s", resp.StatusCode, msg),
		}
	default:
		return &llm.Error{
			Kind:    llm.KindGeneric,
			Message: fmt.Sprintf("api error %d: %s", resp.StatusCode, msg),
		}
	}
}

func retryAfterSeconds(header string) int {
	if header == "" {
		return 0
	}
	if n, err := strconv.Atoi(header); err == nil && n > 0 {
		return n
	}
	return 0
}
