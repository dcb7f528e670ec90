package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/yourname/inkjournal/internal"
	"github.com/yourname/inkjournal/internal/metrics"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-4o-mini"
	defaultTimeout = 30 * time.Second

	callWeekly    = "weekly"
	callFutureYou = "future_you"
	callPing      = "ping"
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// RatePerSec <= 0 disables the client-side limiter.
	RatePerSec float64
	Burst      int
}

// Client talks to the OpenAI Responses API. A missing API key is not an
// error at construction time; every call then fails fast with
// KindMissingCredential.
type Client struct {
	http    *resty.Client
	apiKey  string
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	logger  internal.Logger
}

func NewClient(cfg Config, logger internal.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSec > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}

	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &Client{
		http:    c,
		apiKey:  cfg.APIKey,
		model:   model,
		timeout: timeout,
		limiter: limiter,
		logger:  logger,
	}
}

func (c *Client) Model() string { return c.model }

func (c *Client) Available() bool { return c.apiKey != "" }

// WeeklyOutput is the provider's answer before normalization.
type WeeklyOutput struct {
	RawText string
	Parsed  map[string]any
}

func (c *Client) WeeklyInsight(ctx context.Context, p WeeklyPrompt) (*WeeklyOutput, error) {
	req := responsesRequest{
		Model: c.model,
		Input: []inputMessage{
			newInputMessage("system", weeklySystemMessage),
			newInputMessage("user", p.userMessage()),
		},
		Text: &textOptions{Format: responseFormat{
			Type:   "json_schema",
			Name:   "journal_insights",
			Schema: weeklySchema(),
		}},
		MaxOutputTokens: weeklyMaxOutputTokens,
		Temperature:     weeklyTemperature,
	}
	out, err := c.call(ctx, callWeekly, req)
	if err != nil {
		return nil, err
	}
	if parsed, ok := out.parsedObject(); ok {
		raw := out.text()
		if raw == "" {
			raw = string(out.OutputParsed)
		}
		c.ok(callWeekly)
		return &WeeklyOutput{RawText: raw, Parsed: parsed}, nil
	}
	raw := out.text()
	parsed, err := ExtractJSON(raw)
	if err != nil {
		return nil, c.record(callWeekly, err)
	}
	c.ok(callWeekly)
	return &WeeklyOutput{RawText: raw, Parsed: parsed}, nil
}

func (c *Client) FutureSelf(ctx context.Context, p FutureSelfPrompt) (string, error) {
	req := responsesRequest{
		Model: c.model,
		Input: []inputMessage{
			newInputMessage("system", futureYouSystemMessage),
			newInputMessage("user", p.userMessage()),
		},
		Text: &textOptions{Format: responseFormat{
			Type:   "json_schema",
			Name:   "future_you_message",
			Schema: futureYouSchema(),
		}},
		MaxOutputTokens: futureYouMaxOutputTokens,
		Temperature:     futureYouTemperature,
	}
	out, err := c.call(ctx, callFutureYou, req)
	if err != nil {
		return "", err
	}
	parsed, ok := out.parsedObject()
	if !ok {
		parsed, err = ExtractJSON(out.text())
		if err != nil {
			return "", c.record(callFutureYou, err)
		}
	}
	msg, _ := parsed["futureYou"].(string)
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "", c.record(callFutureYou, &Error{Kind: KindParseMalformed, Message: "missing futureYou in response"})
	}
	c.ok(callFutureYou)
	return msg, nil
}

// Ping issues the smallest possible request to check key, model and connectivity.
func (c *Client) Ping(ctx context.Context) error {
	req := responsesRequest{
		Model:           c.model,
		Input:           []inputMessage{newInputMessage("user", "ping")},
		MaxOutputTokens: 16,
		Temperature:     0,
	}
	_, err := c.call(ctx, callPing, req)
	if k, ok := KindOf(err); ok && k == KindParseEmpty {
		err = nil
	}
	if err == nil {
		c.ok(callPing)
	}
	return err
}

func (c *Client) call(ctx context.Context, call string, req responsesRequest) (*responsesResponse, error) {
	if c.apiKey == "" {
		return nil, c.record(call, errMissingCredential())
	}
	if err := c.waitForToken(ctx); err != nil {
		return nil, c.record(call, &Error{Kind: KindRateLimited, Message: "client-side rate limit", Err: err})
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(req).
		Post("/v1/responses")
	metrics.LLMCallDuration.WithLabelValues(call).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, c.record(call, classifyTransport(err))
	}

	if resp.StatusCode() != 200 {
		var body apiErrorBody
		_ = json.Unmarshal(resp.Body(), &body)
		return nil, c.record(call, classifyStatus(resp.StatusCode(), body))
	}

	var out responsesResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, c.record(call, &Error{Kind: KindParseMalformed, Status: resp.StatusCode(), Message: "undecodable response envelope", Err: err})
	}
	if _, ok := out.parsedObject(); !ok && out.text() == "" {
		return nil, c.record(call, &Error{Kind: KindParseEmpty, Status: resp.StatusCode(), Message: "empty output text"})
	}
	return &out, nil
}

// waitForToken waits at most one request timeout for a limiter token.
// Wait fails immediately when the required delay exceeds the deadline.
func (c *Client) waitForToken(ctx context.Context) error {
	wctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.limiter.Wait(wctx)
}

func (c *Client) ok(call string) {
	metrics.LLMCalls.WithLabelValues(call, "ok").Inc()
}

func (c *Client) record(call string, err error) error {
	kind, _ := KindOf(err)
	metrics.LLMCalls.WithLabelValues(call, string(kind)).Inc()
	c.logger.Warnw("llm call failed", "call", call, "kind", kind, "error", err)
	return err
}

type responsesRequest struct {
	Model           string         `json:"model"`
	Input           []inputMessage `json:"input"`
	Text            *textOptions   `json:"text,omitempty"`
	MaxOutputTokens int            `json:"max_output_tokens"`
	Temperature     float64        `json:"temperature"`
}

type inputMessage struct {
	Role    string         `json:"role"`
	Content []inputContent `json:"content"`
}

type inputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func newInputMessage(role, text string) inputMessage {
	return inputMessage{Role: role, Content: []inputContent{{Type: "input_text", Text: text}}}
}

type textOptions struct {
	Format responseFormat `json:"format"`
}

type responseFormat struct {
	Type   string         `json:"type"`
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
}

type responsesResponse struct {
	OutputText   string          `json:"output_text"`
	OutputParsed json.RawMessage `json:"output_parsed"`
	Output       []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// text prefers the convenience field and otherwise joins every output_text part.
func (r *responsesResponse) text() string {
	if s := strings.TrimSpace(r.OutputText); s != "" {
		return s
	}
	var b strings.Builder
	for _, item := range r.Output {
		for _, part := range item.Content {
			if part.Type == "output_text" {
				b.WriteString(part.Text)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func (r *responsesResponse) parsedObject() (map[string]any, bool) {
	raw := bytes.TrimSpace(r.OutputParsed)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
