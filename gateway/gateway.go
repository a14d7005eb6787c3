// Package gateway is the boundary between the sync engine and the lanshare
// HTTP API. It translates the four remote intents (list, create snippet,
// upload file, delete) into wire calls and maps every failure into the
// two-kind error taxonomy (ValidationError, TransportError).
//
// The contract is deliberately thin: no retries, no timeouts beyond the
// HTTP client's own, no idempotency keys. Each call is at-most-once from
// the caller's perspective; the engine decides what a failure means.
//
//	gw := gateway.New("http://192.168.1.10:8080")
//	items, err := gw.List(ctx)
package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hazyhaar/lanshare/item"
)

// Client is the remote operation set the sync engine requires. Test doubles
// implement it with controllable completion order.
type Client interface {
	// List fetches all items in server order (newest first).
	List(ctx context.Context) ([]item.Item, error)

	// CreateText stores a snippet and returns the confirmed item with its
	// server-assigned ID and name. Empty content fails locally with a
	// *ValidationError and issues no call.
	CreateText(ctx context.Context, content string) (item.Item, error)

	// CreateFile uploads a file payload and returns the confirmed item.
	// No client-side size limit is enforced; any limit is server policy.
	CreateFile(ctx context.Context, fileName, contentType string, r io.Reader) (item.Item, error)

	// Delete removes an item. "Not found" is a transport failure like any
	// other non-success status.
	Delete(ctx context.Context, id string) error
}

// apiError is the JSON error body convention: {"error": "..."}.
type apiError struct {
	Error string `json:"error"`
}

// HTTP is the resty-backed Client for a lanshared instance.
type HTTP struct {
	base string
	rc   *resty.Client
}

// Option customises the HTTP gateway.
type Option func(*HTTP)

// WithTimeout sets the per-request timeout. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(g *HTTP) { g.rc.SetTimeout(d) }
}

// WithHTTPClient substitutes the underlying *http.Client (tests, proxies).
func WithHTTPClient(hc *http.Client) Option {
	return func(g *HTTP) { g.rc = resty.NewWithClient(hc).SetBaseURL(g.base) }
}

// New creates a gateway for the API served at baseURL (no trailing slash
// required).
func New(baseURL string, opts ...Option) *HTTP {
	base := strings.TrimRight(baseURL, "/")
	g := &HTTP{
		base: base,
		rc:   resty.New().SetBaseURL(base).SetTimeout(30 * time.Second),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// List implements Client. A success body that violates the item model
// (unknown kind, duplicate IDs) is a protocol violation and fails closed as
// a TransportError.
func (g *HTTP) List(ctx context.Context) ([]item.Item, error) {
	var items []item.Item
	var apiErr apiError
	resp, err := g.rc.R().
		SetContext(ctx).
		SetResult(&items).
		SetError(&apiErr).
		Get("/items")
	if err := g.check("list items", resp, err, &apiErr); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, &TransportError{Op: "list items", Status: resp.StatusCode(), Message: "malformed item in response", Cause: err}
		}
		if _, dup := seen[it.ID]; dup {
			return nil, &TransportError{Op: "list items", Status: resp.StatusCode(), Message: "duplicate item id " + it.ID}
		}
		seen[it.ID] = struct{}{}
	}
	return items, nil
}

// CreateText implements Client.
func (g *HTTP) CreateText(ctx context.Context, content string) (item.Item, error) {
	if strings.TrimSpace(content) == "" {
		return item.Item{}, &ValidationError{Reason: "empty snippet content"}
	}

	var it item.Item
	var apiErr apiError
	resp, err := g.rc.R().
		SetContext(ctx).
		SetBody(map[string]string{"content": content}).
		SetResult(&it).
		SetError(&apiErr).
		Post("/snippets")
	if err := g.check("create snippet", resp, err, &apiErr); err != nil {
		return item.Item{}, err
	}
	if err := it.Validate(); err != nil {
		return item.Item{}, &TransportError{Op: "create snippet", Status: resp.StatusCode(), Message: "malformed item in response", Cause: err}
	}
	return it, nil
}

// CreateFile implements Client. The payload goes up as a multipart form
// with a single "file" field, streamed from r.
func (g *HTTP) CreateFile(ctx context.Context, fileName, contentType string, r io.Reader) (item.Item, error) {
	if r == nil || fileName == "" {
		return item.Item{}, &ValidationError{Reason: "no file selected"}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var it item.Item
	var apiErr apiError
	resp, err := g.rc.R().
		SetContext(ctx).
		SetMultipartField("file", fileName, contentType, r).
		SetResult(&it).
		SetError(&apiErr).
		Post("/files")
	if err := g.check("upload file", resp, err, &apiErr); err != nil {
		return item.Item{}, err
	}
	if err := it.Validate(); err != nil {
		return item.Item{}, &TransportError{Op: "upload file", Status: resp.StatusCode(), Message: "malformed item in response", Cause: err}
	}
	return it, nil
}

// Delete implements Client.
func (g *HTTP) Delete(ctx context.Context, id string) error {
	var apiErr apiError
	resp, err := g.rc.R().
		SetContext(ctx).
		SetError(&apiErr).
		Delete("/items/" + id)
	return g.check("delete item", resp, err, &apiErr)
}

// DownloadURL returns the browser-facing download location for a file item.
// The engine never calls this endpoint; presentation code navigates to it.
func (g *HTTP) DownloadURL(id string) string {
	return g.base + "/files/" + id + "/download"
}

// check folds resty's (response, error) pair into the taxonomy: a transport
// failure when err is set, a TransportError with the server's message (or
// the generic fallback) on any non-2xx status, nil otherwise.
func (g *HTTP) check(op string, resp *resty.Response, err error, apiErr *apiError) error {
	if err != nil {
		return &TransportError{Op: op, Message: err.Error(), Cause: err}
	}
	if !resp.IsSuccess() {
		msg := apiErr.Error
		if msg == "" {
			msg = fmt.Sprintf("HTTP error: %d", resp.StatusCode())
		}
		return &TransportError{Op: op, Status: resp.StatusCode(), Message: msg}
	}
	return nil
}
