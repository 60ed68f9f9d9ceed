package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	csrfHeader        = "X-CSRF-Token"
	idempotencyHeader = "Idempotency-Key"
	codeCSRFInvalid   = "CSRF_INVALID"
)

// TokenHolder stores the CSRF token between requests. Injected so callers
// sharing one token across goroutines, or persisting it, can supply their
// own; there is no package-level state.
type TokenHolder interface {
	Token() string
	SetToken(token string)
}

type MemoryTokenHolder struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryTokenHolder() *MemoryTokenHolder { return &MemoryTokenHolder{} }

func (h *MemoryTokenHolder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

func (h *MemoryTokenHolder) SetToken(token string) {
	h.mu.Lock()
	h.token = token
	h.mu.Unlock()
}

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

func IsCSRFInvalid(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Code == codeCSRFInvalid
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTokenHolder(holder TokenHolder) Option {
	return func(c *Client) { c.tokens = holder }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client talks to the API with cookie-based sessions and double-submit
// CSRF. Mutating calls attach the held token and, when the server rejects
// it as stale, refresh the token and retry exactly once.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenHolder
	logger  *slog.Logger
}

func New(baseURL string, opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: 30 * time.Second},
		tokens:  NewMemoryTokenHolder(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		c.http.Jar = jar
	}
	return c, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FetchToken asks the server for the session's CSRF token and stores it.
func (c *Client) FetchToken(ctx context.Context) error {
	var payload struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/csrf-token", nil, &payload, false); err != nil {
		return err
	}
	c.tokens.SetToken(payload.CSRFToken)
	return nil
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out, false)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out, true)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out, true)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out, true)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, mutating bool) error {
	var idemKey string
	if mutating {
		c.ensureToken(ctx)
		// one key per logical request, so a retry replays instead of
		// applying the mutation twice
		idemKey = uuid.NewString()
	}

	err := c.send(ctx, method, path, body, out, idemKey)
	if err == nil || !mutating || !IsCSRFInvalid(err) {
		return err
	}

	// stale token: refresh and retry once
	if ferr := c.FetchToken(ctx); ferr != nil {
		return fmt.Errorf("refresh csrf token after rejection: %w", ferr)
	}
	return c.send(ctx, method, path, body, out, idemKey)
}

// ensureToken fetches a token when none is held yet. Failure is logged
// and the request proceeds; the server's verdict is authoritative.
func (c *Client) ensureToken(ctx context.Context) {
	if c.tokens.Token() != "" {
		return
	}
	if err := c.FetchToken(ctx); err != nil {
		c.logger.Warn("csrf token fetch failed, proceeding without", "error", err.Error())
	}
}

func (c *Client) send(ctx context.Context, method, path string, body, out any, idemKey string) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set(csrfHeader, token)
	}
	if idemKey != "" {
		req.Header.Set(idempotencyHeader, idemKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if derr := json.NewDecoder(resp.Body).Decode(&env); derr != nil {
		if resp.StatusCode >= 400 {
			return &APIError{Status: resp.StatusCode, Code: "UNKNOWN", Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", derr)
	}

	if !env.Success || resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Code: "UNKNOWN", Message: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil && len(env.Data) > 0 {
		if derr := json.Unmarshal(env.Data, out); derr != nil {
			return fmt.Errorf("decode response data: %w", derr)
		}
	}
	return nil
}
