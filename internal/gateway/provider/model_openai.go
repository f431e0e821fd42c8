package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"evergreen/internal/logger"
	"evergreen/internal/pkg/circuit"
)

const jsonOnlySuffix = "\n\nRespond with ONLY valid JSON. No markdown, no commentary."

// OpenAIChatClient 兼容 OpenAI / OpenRouter 的 /chat/completions 接口。
type OpenAIChatClient struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	// 429/5xx 的重试次数
	MaxRetries   int
	ExtraHeaders map[string]string

	HTTPClient *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *OpenAIChatClient) endpoint() string {
	url := strings.TrimRight(c.BaseURL, "/")
	if url == "" {
		url = "https://openrouter.ai/api/v1"
	}
	// 配置里可能已经写了完整路径
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

func (c *OpenAIChatClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (c *OpenAIChatClient) buildBody(p ChatPayload) ([]byte, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(p.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: p.System})
	}
	user := p.User
	req := chatRequest{Model: c.Model, Temperature: c.Temperature, MaxTokens: p.MaxTokens}
	if p.ExpectJSON {
		user += jsonOnlySuffix
		req.ResponseFormat = map[string]any{"type": "json_object"}
	}
	req.Messages = append(messages, chatMessage{Role: "user", Content: user})
	return json.Marshal(req)
}

// Complete sends one chat completion, retrying 429/5xx with Retry-After.
func (c *OpenAIChatClient) Complete(ctx context.Context, p ChatPayload) (string, error) {
	body, err := c.buildBody(p)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}
	url := c.endpoint()
	retries := max(c.MaxRetries, 0)
	httpc := c.httpClient()

	logger.Debugf("[AI] 请求: POST %s, headers=%v, model=%s, purpose=%s", url, c.maskedHeaders(), c.Model, p.Purpose)
	logger.LogLLMPayload(c.Model, string(body))

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}
		for k, v := range c.ExtraHeaders {
			req.Header.Set(k, v)
		}

		resp, err := httpc.Do(req)
		if err != nil {
			return "", err
		}
		if resp.StatusCode/100 == 2 {
			var r chatResponse
			derr := json.NewDecoder(resp.Body).Decode(&r)
			resp.Body.Close()
			if derr != nil {
				return "", fmt.Errorf("decode chat response: %w", derr)
			}
			if len(r.Choices) == 0 {
				return "", ErrEmptyChoices
			}
			return r.Choices[0].Message.Content, nil
		}

		statusErr := readStatusError(resp)
		lastErr = statusErr
		if !statusErr.Retryable() || attempt == retries {
			break
		}
		wait := retryAfter(resp.Header.Get("Retry-After"), attempt)
		logger.Warnf("[AI] %s 返回 %d，%s 后重试 (%d/%d)", c.Model, statusErr.Status, wait, attempt+1, retries)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", lastErr
}

func readStatusError(resp *http.Response) *StatusError {
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var eresp chatErrorResponse
	_ = json.Unmarshal(raw, &eresp)
	msg := strings.TrimSpace(eresp.Error.Message)
	if msg == "" {
		msg = resp.Status
	}
	return &StatusError{Status: resp.StatusCode, Message: msg}
}

// retryAfter honours an integer Retry-After, otherwise backs off 0.8s, 1.6s ... capped at 8s.
func retryAfter(header string, attempt int) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	wait := (800 * time.Millisecond) << attempt
	if wait > 8*time.Second {
		wait = 8 * time.Second
	}
	return wait
}

func (c *OpenAIChatClient) maskedHeaders() map[string]string {
	out := map[string]string{"Content-Type": "application/json"}
	if c.APIKey != "" {
		out["Authorization"] = "Bearer " + mask(c.APIKey)
	}
	for k, v := range c.ExtraHeaders {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "key") || strings.Contains(lk, "token") || strings.Contains(lk, "auth") {
			v = mask(v)
		}
		out[k] = v
	}
	return out
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// OpenAIModelProvider 实现 ModelProvider，并在调用外包一层熔断。
type OpenAIModelProvider struct {
	id         string
	enabled    bool
	expectJSON bool
	client     *OpenAIChatClient
	breaker    *circuit.CircuitBreaker
}

func NewOpenAIModelProvider(id string, enabled, expectJSON bool, client *OpenAIChatClient, breaker *circuit.CircuitBreaker) *OpenAIModelProvider {
	return &OpenAIModelProvider{id: id, enabled: enabled, expectJSON: expectJSON, client: client, breaker: breaker}
}

func (p *OpenAIModelProvider) ID() string        { return p.id }
func (p *OpenAIModelProvider) Enabled() bool     { return p.enabled }
func (p *OpenAIModelProvider) ExpectsJSON() bool { return p.expectJSON }

func (p *OpenAIModelProvider) Call(ctx context.Context, payload ChatPayload) (string, error) {
	if !p.enabled {
		return "", fmt.Errorf("%w: %s", ErrModelDisabled, p.id)
	}
	logger.LogLLMRequest(p.id, payload.Purpose, payload.System, payload.User)
	var out string
	call := func() error {
		var err error
		out, err = p.client.Complete(ctx, payload)
		return err
	}
	var err error
	if p.breaker != nil {
		err = p.breaker.Do(call)
	} else {
		err = call()
	}
	if err != nil {
		return "", fmt.Errorf("model %s: %w", p.id, err)
	}
	logger.LogLLMResponse(p.id, payload.Purpose, out)
	return out, nil
}
