// Package gotenberg implements the Conversion Gateway against a Gotenberg
// server's LibreOffice route.
package gotenberg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"autoprint/internal/config"
	"autoprint/internal/services"
)

const (
	stage        = "convert"
	convertRoute = "/forms/libreoffice/convert"
	healthRoute  = "/health"
	maxErrorBody = 512
)

// Client renders office documents to PDF.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client (primarily for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// New builds a client from the [conversion] config section.
func New(cfg config.Conversion, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, errors.New("gotenberg url required")
	}
	failures := uint32(max(cfg.BreakerFailures, 1))
	client := &Client{
		baseURL: base,
		timeout: time.Duration(cfg.Timeout) * time.Second,
		http:    &http.Client{},
	}
	client.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gotenberg",
		MaxRequests: 1,
		Timeout:     time.Duration(max(cfg.BreakerCooldown, 1)) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// A rejected document says nothing about the server's health.
		IsSuccessful: func(err error) bool {
			return err == nil || services.IsPermanent(err)
		},
	})
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// URL returns the configured Gotenberg base URL.
func (c *Client) URL() string {
	return c.baseURL
}

// BreakerState reports the circuit breaker state ("closed", "open", "half-open").
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// Convert uploads src and writes the rendered PDF to dst. HTTP 4xx answers
// are permanent; transport errors, 5xx answers, timeouts and an open
// breaker are transient.
func (c *Client) Convert(ctx context.Context, src, dst string) (string, error) {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.convert(ctx, src, dst)
	})
	switch {
	case err == nil:
		return dst, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "", services.Wrap(services.ErrConversion, stage, "circuit breaker", "Conversion service unavailable; waiting for cooldown", err)
	default:
		return "", err
	}
}

func (c *Client) convert(ctx context.Context, src, dst string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, contentType, err := multipartBody(src)
	if err != nil {
		return services.Permanent(services.Wrap(services.ErrConversion, stage, "read document", "Cannot read document for upload", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+convertRoute, body)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, stage, "build request", "Invalid Gotenberg URL", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrConversion, stage, "post", "Gotenberg request failed", services.FromContext(ctx, stage, "post", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		wrapped := services.Wrap(services.ErrConversion, stage, "post",
			fmt.Sprintf("Gotenberg returned %d", resp.StatusCode),
			errors.New(strings.TrimSpace(string(snippet))))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusRequestTimeout {
			return services.Permanent(wrapped)
		}
		return wrapped
	}

	if err := writeRendered(resp.Body, dst); err != nil {
		return services.Wrap(services.ErrConversion, stage, "write output", "Failed to store rendered PDF", services.FromContext(ctx, stage, "write output", err))
	}
	return nil
}

// Health checks the Gotenberg health route.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthRoute, nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gotenberg health: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gotenberg health: status %d", resp.StatusCode)
	}
	return nil
}

func multipartBody(src string) (io.Reader, string, error) {
	file, err := os.Open(src)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("files", filepath.Base(src))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

func writeRendered(r io.Reader, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	written, copyErr := io.Copy(out, r)
	closeErr := out.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr == nil && written == 0 {
		copyErr = errors.New("empty PDF in response")
	}
	if copyErr != nil {
		_ = os.Remove(tmp)
		return copyErr
	}
	return os.Rename(tmp, dst)
}
