package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sadopc/studytrack/internal/schema"
)

// TokenSource returns the bearer credential for the signed-in user.
type TokenSource func(ctx context.Context) (string, error)

// HTTP talks to a document service over JSON:
//
//	GET  {base}/users/{uid}   -> 200 with the document object, or 404
//	POST {base}/users/{uid}   <- {"mode":"merge","data":{...}}
type HTTP struct {
	base   string
	client *http.Client
	token  TokenSource
	log    *slog.Logger
}

type HTTPOption func(*HTTP)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) { h.client = c }
}

func WithHTTPLogger(l *slog.Logger) HTTPOption {
	return func(h *HTTP) {
		if l != nil {
			h.log = l
		}
	}
}

func NewHTTP(baseURL string, token TokenSource, opts ...HTTPOption) (*HTTP, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	h := &HTTP{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
		token:  token,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

type writeRequest struct {
	Mode string         `json:"mode"`
	Data map[string]any `json:"data"`
}

func (h *HTTP) Fetch(ctx context.Context, uid string) (map[string]any, error) {
	if uid == "" {
		return nil, errEmptyUID
	}
	resp, err := h.do(ctx, http.MethodGet, uid, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err := statusError(resp); err != nil {
		return nil, fmt.Errorf("fetch user document: %w", err)
	}

	var doc map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: decode user document: %w", ErrUnavailable, err)
	}
	return doc, nil
}

func (h *HTTP) Write(ctx context.Context, uid string, fields map[schema.Key]any) error {
	if uid == "" {
		return errEmptyUID
	}
	if len(fields) == 0 {
		return nil
	}

	req := writeRequest{Mode: "merge", Data: make(map[string]any, len(fields))}
	for k, v := range fields {
		req.Data[string(k)] = v
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode write: %w", err)
	}

	resp, err := h.do(ctx, http.MethodPost, uid, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if err := statusError(resp); err != nil {
		return fmt.Errorf("write user document: %w", err)
	}
	return nil
}

func (h *HTTP) do(ctx context.Context, method, uid string, body []byte) (*http.Response, error) {
	var token string
	if h.token != nil {
		t, err := h.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
		token = t
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.base+"/users/"+url.PathEscape(uid), rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, uid, err)
	}
	h.log.Debug("remote request", "method", method, "uid", uid, "status", resp.StatusCode)
	return resp, nil
}

func statusError(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	default:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
}
