// Package translate implements the remote translation client and the batch
// translator that sits on top of it.
//
// The client speaks to HTTP API-based AI providers: SiliconFlow (the
// default), OpenAI, Groq, Ollama, Google AI (Gemini), Anthropic and any
// custom OpenAI-compatible endpoint. The batcher groups many short UI
// strings into numbered blocks, validates what comes back, and falls back
// to one call per string when a block fails.
package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"
	"github.com/rs/zerolog"
)

var (
	// ErrValidation reports a malformed request, such as keys and texts
	// of different lengths. It is the only error TranslateMany returns
	// for bad input.
	ErrValidation = errors.New("invalid translation request")
	// ErrRemoteCall reports a failed provider call after all retries.
	ErrRemoteCall = errors.New("remote translation failed")
	// ErrMismatch reports a response that does not fit its source: an
	// echoed block, a missing line or a lost placeholder.
	ErrMismatch = errors.New("translation does not match source")
)

// Translator translates one piece of text. The batcher passes whole
// numbered blocks through it as well as single strings.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// ---------------------------------------------------------------------------
// Provider IDs
// ---------------------------------------------------------------------------

const (
	ProviderSiliconFlow  = "siliconflow"
	ProviderOpenAI       = "openai"
	ProviderGroq         = "groq"
	ProviderOllama       = "ollama"
	ProviderGoogle       = "google"
	ProviderAnthropic    = "anthropic"
	ProviderCustomOpenAI = "custom-openai"
)

// DefaultSystemPrompt is sent with every request. {{sourceLang}} and
// {{targetLang}} are replaced with human-readable language names.
const DefaultSystemPrompt = `You are a professional translator specializing in software and product localization. You are translating UI strings of a web application from {{sourceLang}} to {{targetLang}}.

IMPORTANT TRANSLATION PRINCIPLES:
- Translate for NATURALNESS and FLUENCY in {{targetLang}}, not word-for-word
- Use established IT terminology in {{targetLang}}
- Keep brand names and proper nouns unchanged

TECHNICAL REQUIREMENTS:
- The input may be a numbered list ("1. text"). Return exactly one line per input line, numbered the same way, in the same order.
- Preserve placeholders such as {name} and {{count}} exactly as written.
- Do NOT wrap translations in quotes.
- Do NOT repeat the source text, do NOT add explanations, notes or markdown.`

// ---------------------------------------------------------------------------
// Provider configuration
// ---------------------------------------------------------------------------

// Provider holds the configuration for an AI translation service.
type Provider struct {
	// ID is the provider identifier (siliconflow, openai, google, ...).
	ID string
	// Name is the display name.
	Name string
	// BaseURL is the API base URL.
	BaseURL string
	// APIKey is the authentication key (empty for local services).
	APIKey string
	// Model is the model identifier.
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the request timeout.
	Timeout time.Duration
}

// DefaultProviders returns the pre-configured provider definitions.
func DefaultProviders() map[string]Provider {
	return map[string]Provider{
		ProviderSiliconFlow: {
			ID:      ProviderSiliconFlow,
			Name:    "SiliconFlow",
			BaseURL: "https://api.siliconflow.cn/v1",
			Model:   "Qwen/Qwen2-7B-Instruct",
			Timeout: 60 * time.Second,
		},
		ProviderOpenAI: {
			ID:      ProviderOpenAI,
			Name:    "OpenAI",
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
		ProviderGroq: {
			ID:      ProviderGroq,
			Name:    "Groq",
			BaseURL: "https://api.groq.com/openai/v1",
			Model:   "llama-3.1-8b-instant",
			Timeout: 60 * time.Second,
		},
		ProviderOllama: {
			ID:      ProviderOllama,
			Name:    "Ollama",
			BaseURL: "http://localhost:11434/v1",
			Model:   "qwen2.5:7b",
			Timeout: 120 * time.Second,
		},
		ProviderGoogle: {
			ID:      ProviderGoogle,
			Name:    "Google AI (Gemini)",
			BaseURL: "https://generativelanguage.googleapis.com",
			Model:   "gemini-2.0-flash",
			Timeout: 120 * time.Second,
		},
		ProviderAnthropic: {
			ID:      ProviderAnthropic,
			Name:    "Anthropic",
			BaseURL: "https://api.anthropic.com/v1",
			Model:   "claude-3-5-haiku-latest",
			Timeout: 120 * time.Second,
		},
		ProviderCustomOpenAI: {
			ID:      ProviderCustomOpenAI,
			Name:    "Custom OpenAI",
			Timeout: 60 * time.Second,
		},
	}
}

// ResolveProvider starts from the built-in definition for id and applies
// the non-empty overrides of p. Unknown IDs are treated as custom
// OpenAI-compatible endpoints.
func ResolveProvider(id string, p Provider) Provider {
	base, ok := DefaultProviders()[id]
	if !ok {
		base = DefaultProviders()[ProviderCustomOpenAI]
		base.ID = id
	}
	if p.BaseURL != "" {
		base.BaseURL = p.BaseURL
	}
	if p.APIKey != "" {
		base.APIKey = p.APIKey
	}
	if p.Model != "" {
		base.Model = p.Model
	}
	if p.Proxy != "" {
		base.Proxy = p.Proxy
	}
	if p.Timeout > 0 {
		base.Timeout = p.Timeout
	}
	return base
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// ClientOptions controls the HTTP client.
type ClientOptions struct {
	// SystemPrompt overrides DefaultSystemPrompt.
	SystemPrompt string
	// Temperature is the sampling temperature. Default: 0.3.
	Temperature float64
	// MaxRetries is the maximum number of retries on network errors,
	// 429 and 5xx responses. Default: 3.
	MaxRetries int
	// RetryInterval is the first backoff interval. Default: 1s.
	RetryInterval time.Duration
	// UserAgent is sent with every request.
	UserAgent string
	Logger    *zerolog.Logger
}

// Client is a Translator backed by a chat-completion style HTTP API.
type Client struct {
	prov        Provider
	format      apiFormat
	http        *req.Client
	prompt      string
	temperature float64
	maxRetries  int
	interval    time.Duration
	log         zerolog.Logger
}

// NewClient returns a client for prov.
func NewClient(prov Provider, opts ClientOptions) *Client {
	c := &Client{
		prov:        prov,
		format:      formatFor(prov.ID),
		prompt:      opts.SystemPrompt,
		temperature: opts.Temperature,
		maxRetries:  opts.MaxRetries,
		interval:    opts.RetryInterval,
		log:         zerolog.Nop(),
	}
	if c.prompt == "" {
		c.prompt = DefaultSystemPrompt
	}
	if c.temperature <= 0 {
		c.temperature = 0.3
	}
	if c.maxRetries <= 0 {
		c.maxRetries = 3
	}
	if c.interval <= 0 {
		c.interval = time.Second
	}
	if opts.Logger != nil {
		c.log = opts.Logger.With().Str("component", "translate").Str("provider", prov.ID).Logger()
	}

	timeout := prov.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c.http = req.C().SetTimeout(timeout)
	if opts.UserAgent != "" {
		c.http.SetUserAgent(opts.UserAgent)
	}
	if prov.Proxy != "" {
		c.http.SetProxyURL(prov.Proxy)
	}
	return c
}

// Provider returns the provider the client talks to.
func (c *Client) Provider() Provider {
	return c.prov
}

// Translate sends text to the provider and returns the raw response text.
// Failures are wrapped in ErrRemoteCall.
func (c *Client) Translate(ctx context.Context, text, source, target string) (string, error) {
	systemPrompt := c.resolvedPrompt(source, target)
	userPrompt := fmt.Sprintf("Translate from %s to %s:\n\n%s", LanguageName(source), LanguageName(target), text)

	endpoint, headers, body, err := c.buildHTTPRequest(systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("%w: building request: %v", ErrRemoteCall, err)
	}

	var out string
	bo := &hintedBackOff{BackOff: backoff.WithMaxRetries(&backoff.ExponentialBackOff{
		InitialInterval:     c.interval,
		RandomizationFactor: 0.5,
		Multiplier:          2,
		MaxInterval:         30 * time.Second,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}, uint64(c.maxRetries))}
	bo.Reset()

	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		c.log.Debug().Str("endpoint", endpoint).Msg("POST")
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeaders(headers).
			SetBodyBytes(body).
			Post(endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("API request failed: %w", err)
		}
		respBody := resp.Bytes()
		status := resp.GetStatusCode()

		switch {
		case status == http.StatusTooManyRequests:
			bo.hint(parseRetryDelay(resp.GetHeader("Retry-After"), respBody))
			return fmt.Errorf("rate limited: %s", truncate(string(respBody), 200))
		case status >= http.StatusInternalServerError:
			return fmt.Errorf("API returned status %d: %s", status, truncate(string(respBody), 500))
		case status != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("API returned status %d: %s", status, truncate(string(respBody), 500)))
		}

		text, err := extractResponseText(respBody)
		if err != nil {
			return backoff.Permanent(err)
		}
		out = text
		return nil
	}

	err = backoff.RetryNotify(op, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		c.log.Warn().Err(err).Dur("retry_in", next).Msg("translation request failed, retrying")
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrRemoteCall, err)
	}
	return out, nil
}

func (c *Client) resolvedPrompt(source, target string) string {
	p := strings.ReplaceAll(c.prompt, "{{sourceLang}}", LanguageName(source))
	return strings.ReplaceAll(p, "{{targetLang}}", LanguageName(target))
}

// ---------------------------------------------------------------------------
// Backoff honouring server retry hints
// ---------------------------------------------------------------------------

// hintedBackOff returns a server-provided delay once, in place of the next
// computed interval. Retries are still counted by the wrapped policy.
type hintedBackOff struct {
	backoff.BackOff
	next time.Duration
}

func (h *hintedBackOff) hint(d time.Duration) {
	h.next = d
}

func (h *hintedBackOff) NextBackOff() time.Duration {
	d := h.BackOff.NextBackOff()
	if d == backoff.Stop || h.next <= 0 {
		return d
	}
	d, h.next = h.next, 0
	return d
}

func (h *hintedBackOff) Reset() {
	h.next = 0
	h.BackOff.Reset()
}

// parseRetryDelay extracts the retry delay of a 429 response, first from
// the Retry-After header (seconds), then from Google's RetryInfo detail.
// Zero means no hint.
func parseRetryDelay(header string, body []byte) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}

	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return 0
	}
	for _, detail := range errResp.Error.Details {
		if strings.Contains(detail.Type, "RetryInfo") && detail.RetryDelay != "" {
			// "30s", "45.123s"
			d := strings.TrimSuffix(detail.RetryDelay, "s")
			if secs, err := strconv.ParseFloat(d, 64); err == nil {
				return time.Duration(secs*1000) * time.Millisecond
			}
		}
	}
	return 0
}

// ---------------------------------------------------------------------------
// API formats
// ---------------------------------------------------------------------------

type apiFormat int

const (
	formatOpenAIChat   apiFormat = iota // OpenAI chat/completions
	formatGeminiNative                  // Google Gemini generateContent
	formatAnthropic                     // Anthropic messages
)

func formatFor(id string) apiFormat {
	switch id {
	case ProviderGoogle:
		return formatGeminiNative
	case ProviderAnthropic:
		return formatAnthropic
	default:
		return formatOpenAIChat
	}
}

// buildHTTPRequest constructs the endpoint, headers, and body for the provider.
func (c *Client) buildHTTPRequest(systemPrompt, userPrompt string) (string, map[string]string, []byte, error) {
	prov := c.prov
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	baseURL := strings.TrimRight(prov.BaseURL, "/")

	var endpoint string
	var body []byte
	var err error

	switch c.format {
	case formatGeminiNative:
		// POST /v1beta/models/{model}:generateContent
		endpoint = fmt.Sprintf("%s/v1beta/models/%s:generateContent", baseURL, prov.Model)
		if prov.APIKey != "" {
			headers["x-goog-api-key"] = prov.APIKey
		}
		body, err = buildGeminiRequest(systemPrompt, userPrompt, c.temperature)

	case formatAnthropic:
		endpoint = baseURL + "/messages"
		if prov.APIKey != "" {
			headers["x-api-key"] = prov.APIKey
		}
		headers["anthropic-version"] = "2023-06-01"
		body, err = buildAnthropicRequest(prov.Model, systemPrompt, userPrompt, c.temperature)

	default:
		endpoint = baseURL
		if !strings.HasSuffix(baseURL, "/chat/completions") {
			endpoint = baseURL + "/chat/completions"
		}
		if prov.APIKey != "" {
			headers["Authorization"] = "Bearer " + prov.APIKey
		}
		body, err = buildOpenAIChatRequest(prov.Model, systemPrompt, userPrompt, c.temperature)
	}

	if err != nil {
		return "", nil, nil, err
	}
	return endpoint, headers, body, nil
}

func buildOpenAIChatRequest(model, systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	body := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
	}
	return json.Marshal(body)
}

func buildGeminiRequest(systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	type genConfig struct {
		Temperature float64 `json:"temperature"`
	}
	body := struct {
		Contents          []content `json:"contents"`
		GenerationConfig  genConfig `json:"generationConfig"`
		SystemInstruction *content  `json:"systemInstruction,omitempty"`
	}{
		Contents:         []content{{Role: "user", Parts: []part{{Text: userPrompt}}}},
		GenerationConfig: genConfig{Temperature: temperature},
	}
	if systemPrompt != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: systemPrompt}}}
	}
	return json.Marshal(body)
}

func buildAnthropicRequest(model, systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	body := struct {
		Model       string  `json:"model"`
		MaxTokens   int     `json:"max_tokens"`
		System      string  `json:"system,omitempty"`
		Temperature float64 `json:"temperature"`
		Messages    []msg   `json:"messages"`
	}{
		Model:       model,
		MaxTokens:   4096,
		System:      systemPrompt,
		Temperature: temperature,
		Messages:    []msg{{Role: "user", Content: userPrompt}},
	}
	return json.Marshal(body)
}

// extractResponseText tries all known response formats and returns the text.
func extractResponseText(body []byte) (string, error) {
	var raw struct {
		Error   json.RawMessage `json:"error"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}

	if len(raw.Error) > 0 && string(raw.Error) != "null" {
		var e struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw.Error, &e) == nil && e.Message != "" {
			return "", fmt.Errorf("API error: %s", e.Message)
		}
		return "", fmt.Errorf("API error: %s", truncate(string(raw.Error), 300))
	}

	// OpenAI chat: choices[0].message.content
	if len(raw.Choices) > 0 {
		return raw.Choices[0].Message.Content, nil
	}
	// Gemini: candidates[0].content.parts[0].text
	if len(raw.Candidates) > 0 && len(raw.Candidates[0].Content.Parts) > 0 {
		return raw.Candidates[0].Content.Parts[0].Text, nil
	}
	// Anthropic: content[].type=="text"
	for _, block := range raw.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 500))
}

// truncate truncates a string to maxLen bytes.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
