// Package apiclient talks to the /api/creditos backend on behalf of the UI.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"creditos/internal/core"
	"creditos/internal/log"

	"golang.org/x/sync/singleflight"
)

// Messages shown to the user when the backend rejects a write.
const (
	MsgCreateFailed = "Hubo un error al almacenar la información del crédito"
	MsgUpdateFailed = "Hubo un error al actualizar la información del crédito"
	MsgDeleteFailed = "Hubo un error al eliminar el crédito"
	MsgListFailed   = "No se pudo obtener la lista de créditos"
)

const (
	resourcePath = "/api/creditos"
	listKey      = "list"
)

// ErrNotFound is returned by Find when no credit has the requested id.
var ErrNotFound = errors.New("credit not found")

// StatusError is a non-2xx backend response.
type StatusError struct {
	Op         string
	StatusCode int
	// Message is the fixed user-facing text for Op.
	Message string
	// Detail is the backend's {"error": ...} text, if any.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: backend returned %d", e.Op, e.StatusCode)
}

// UserMessage returns the text to show for err: the fixed per-operation message for
// backend rejections, fallback otherwise.
func UserMessage(err error, fallback string) string {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	group   singleflight.Group
	logger  *log.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the transport client. The per-request timeout still applies.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentAPIClient) }
}

func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: timeout,
		logger:  log.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// List fetches every credit in server order. Concurrent calls share one request,
// but a List issued after a write never joins a request that started before it.
func (c *Client) List(ctx context.Context) ([]core.Credit, error) {
	v, err, shared := c.group.Do(listKey, func() (any, error) {
		// detached so one caller's cancellation does not fail the others
		ctx := context.WithoutCancel(ctx)
		var credits []core.Credit
		if err := c.do(ctx, "list credits", http.MethodGet, resourcePath, nil, "", &credits); err != nil {
			return nil, err
		}
		if credits == nil {
			credits = []core.Credit{}
		}
		return credits, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.DebugContext(ctx, "Coalesced credit list request")
	}
	credits := v.([]core.Credit)
	out := make([]core.Credit, len(credits))
	copy(out, credits)
	return out, nil
}

// Create posts f; the returned credit carries the server-assigned id.
func (c *Client) Create(ctx context.Context, f core.CreditFields) (core.Credit, error) {
	var resp struct {
		ID core.CreditID `json:"id"`
	}
	defer c.forgetList()
	if err := c.do(ctx, "create credit", http.MethodPost, resourcePath, f, MsgCreateFailed, &resp); err != nil {
		return core.Credit{}, err
	}
	return core.Credit{ID: resp.ID, CreditFields: f}, nil
}

// Update replaces all five fields of id.
func (c *Client) Update(ctx context.Context, id core.CreditID, f core.CreditFields) (core.Credit, error) {
	defer c.forgetList()
	if err := c.do(ctx, "update credit", http.MethodPut, resourcePath+"/"+url.PathEscape(id.String()), f, MsgUpdateFailed, nil); err != nil {
		return core.Credit{}, err
	}
	return core.Credit{ID: id, CreditFields: f}, nil
}

func (c *Client) Delete(ctx context.Context, id core.CreditID) error {
	defer c.forgetList()
	return c.do(ctx, "delete credit", http.MethodDelete, resourcePath+"/"+url.PathEscape(id.String()), nil, MsgDeleteFailed, nil)
}

// forgetList detaches any in-flight list from later callers. It runs after every
// write attempt, failed ones included, since a timed-out write may still have landed.
func (c *Client) forgetList() {
	c.group.Forget(listKey)
}

// Find fetches the full list and returns the credit with id.
func (c *Client) Find(ctx context.Context, id core.CreditID) (core.Credit, error) {
	credits, err := c.List(ctx)
	if err != nil {
		return core.Credit{}, err
	}
	credit, ok := core.FindCredit(credits, id)
	if !ok {
		return core.Credit{}, fmt.Errorf("find credit %s: %w", id, ErrNotFound)
	}
	return credit, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in any, userMsg string, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "Backend call finished",
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Op: op, StatusCode: resp.StatusCode, Message: userMsg}
		var e struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 4<<10)).Decode(&e) == nil {
			se.Detail = e.Error
		}
		return se
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
