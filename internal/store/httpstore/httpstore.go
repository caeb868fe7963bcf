// Package httpstore talks to a hosted backend over its REST API: the
// record table under /rest/v1 and the blob bucket under /storage/v1.
// The same client serves both store.Records and store.Blobs.
package httpstore

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

	"github.com/idilsaglam/cloudtodo/internal/model"
	"github.com/idilsaglam/cloudtodo/internal/store"
)

// Options configure a Client.
type Options struct {
	URL     string // e.g. https://abc.example.co
	Key     string // API key, sent as apikey and bearer token
	Table   string // defaults to "todos"
	Bucket  string // defaults to "images"
	Timeout time.Duration
	HTTP    *http.Client // optional
}

type Client struct {
	base   string
	key    string
	table  string
	bucket string
	hc     *http.Client
}

var (
	_ store.Records = (*Client)(nil)
	_ store.Blobs   = (*Client)(nil)
)

func New(opt Options) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(opt.URL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q", opt.URL)
	}
	if opt.Key == "" {
		return nil, errors.New("missing api key")
	}
	c := &Client{
		base:   strings.TrimRight(u.String(), "/"),
		key:    opt.Key,
		table:  opt.Table,
		bucket: opt.Bucket,
		hc:     opt.HTTP,
	}
	if c.table == "" {
		c.table = "todos"
	}
	if c.bucket == "" {
		c.bucket = "images"
	}
	if c.hc == nil {
		timeout := opt.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		c.hc = &http.Client{Timeout: timeout}
	}
	return c, nil
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return store.ErrNotFound
	case http.StatusConflict:
		return store.ErrExists
	}
	return nil
}

// ------- records -------

func (c *Client) tableURL(query url.Values) string {
	u := c.base + "/rest/v1/" + url.PathEscape(c.table)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func byID(id string) url.Values { return url.Values{"id": {"eq." + id}} }

func (c *Client) List(ctx context.Context) ([]model.Todo, error) {
	q := url.Values{"select": {"*"}, "order": {"created_at.desc"}}
	var todos []model.Todo
	if err := c.doJSON(ctx, http.MethodGet, c.tableURL(q), nil, nil, &todos); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return todos, nil
}

func (c *Client) Insert(ctx context.Context, n model.NewTodo) (model.Todo, error) {
	var rows []model.Todo
	hdr := http.Header{"Prefer": {"return=representation"}}
	if err := c.doJSON(ctx, http.MethodPost, c.tableURL(nil), hdr, []model.NewTodo{n}, &rows); err != nil {
		return model.Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	if len(rows) == 0 {
		return model.Todo{}, errors.New("insert todo: no row returned")
	}
	return rows[0], nil
}

func (c *Client) Update(ctx context.Context, id string, p model.Patch) error {
	hdr := http.Header{"Prefer": {"return=minimal"}}
	if err := c.doJSON(ctx, http.MethodPatch, c.tableURL(byID(id)), hdr, p, nil); err != nil {
		return fmt.Errorf("update todo %s: %w", id, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, c.tableURL(byID(id)), nil, nil, nil); err != nil {
		return fmt.Errorf("delete todo %s: %w", id, err)
	}
	return nil
}

// ------- blobs -------

func (c *Client) objectURL(key string) string {
	return c.base + "/storage/v1/object/" + url.PathEscape(c.bucket) + "/" + url.PathEscape(key)
}

func (c *Client) Upload(ctx context.Context, key string, data []byte, opt store.UploadOptions) error {
	req, err := c.newRequest(ctx, http.MethodPost, c.objectURL(key), bytes.NewReader(data))
	if err != nil {
		return err
	}
	ct := opt.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	req.Header.Set("Content-Type", ct)
	if opt.CacheControl != "" {
		req.Header.Set("Cache-Control", "max-age="+opt.CacheControl)
	}
	req.Header.Set("x-upsert", fmt.Sprint(opt.Upsert))
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func (c *Client) PublicURL(key string) string {
	return c.base + "/storage/v1/object/public/" + url.PathEscape(c.bucket) + "/" + url.PathEscape(key)
}

func (c *Client) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	u := c.base + "/storage/v1/object/" + url.PathEscape(c.bucket)
	body := struct {
		Prefixes []string `json:"prefixes"`
	}{keys}
	if err := c.doJSON(ctx, http.MethodDelete, u, nil, body, nil); err != nil {
		return fmt.Errorf("remove %s: %w", strings.Join(keys, ","), err)
	}
	return nil
}

// ------- transport -------

func (c *Client) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, u string, hdr http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("json marshal: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header[k] = v
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := strings.TrimSpace(string(b))
	if json.Unmarshal(b, &payload) == nil {
		switch {
		case payload.Message != "":
			msg = payload.Message
		case payload.Error != "":
			msg = payload.Error
		}
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
