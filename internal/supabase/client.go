// Package supabase is a small client for the Supabase REST (PostgREST) and
// Storage APIs, authenticated with the project's service role key.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// From starts a query against a table.
func (c *Client) From(table string) *Query {
	return &Query{client: c, table: table}
}

// Query accumulates PostgREST filters for a single request.
type Query struct {
	client  *Client
	table   string
	columns string
	filters url.Values
	orders  []string
	limit   int
	offset  int
	count   bool
}

func (q *Query) filter(column, expr string) *Query {
	if q.filters == nil {
		q.filters = url.Values{}
	}
	q.filters.Add(column, expr)
	return q
}

func (q *Query) Select(columns string) *Query {
	q.columns = columns
	return q
}

func (q *Query) Eq(column string, value any) *Query {
	return q.filter(column, fmt.Sprintf("eq.%v", value))
}

func (q *Query) NotNull(column string) *Query {
	return q.filter(column, "not.is.null")
}

// Or adds a disjunction, e.g. Or("email.ilike.*a*", "full_name.ilike.*a*").
func (q *Query) Or(conditions ...string) *Query {
	return q.filter("or", "("+strings.Join(conditions, ",")+")")
}

func (q *Query) Order(column string, ascending bool) *Query {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	q.orders = append(q.orders, column+"."+dir)
	return q
}

func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

func (q *Query) Offset(n int) *Query {
	q.offset = n
	return q
}

// CountExact asks PostgREST for the total row count in Content-Range.
func (q *Query) CountExact() *Query {
	q.count = true
	return q
}

func (q *Query) url(withSelect bool) string {
	params := url.Values{}
	for k, vs := range q.filters {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	if withSelect {
		if q.columns != "" {
			params.Set("select", q.columns)
		}
		if len(q.orders) > 0 {
			params.Set("order", strings.Join(q.orders, ","))
		}
		if q.limit > 0 {
			params.Set("limit", strconv.Itoa(q.limit))
		}
		if q.offset > 0 {
			params.Set("offset", strconv.Itoa(q.offset))
		}
	}

	u := fmt.Sprintf("%s/rest/v1/%s", q.client.baseURL, q.table)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// Get executes a SELECT.
func (q *Query) Get(ctx context.Context) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.url(true), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	q.client.setHeaders(req)
	if q.count {
		req.Header.Set("Prefer", "count=exact")
	}
	return q.client.do(req)
}

// Insert posts rows and returns the stored representation.
func (q *Query) Insert(ctx context.Context, rows any) (*Response, error) {
	return q.write(ctx, http.MethodPost, q.client.baseURL+"/rest/v1/"+q.table, rows)
}

// Update patches every row matching the filters.
func (q *Query) Update(ctx context.Context, values any) (*Response, error) {
	return q.write(ctx, http.MethodPatch, q.url(false), values)
}

func (q *Query) write(ctx context.Context, method, target string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	q.client.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	return q.client.do(req)
}

type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Err returns a descriptive error for non-2xx responses.
func (r *Response) Err() error {
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		return nil
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(r.Body, &body); err == nil {
		if body.Message != "" {
			return fmt.Errorf("supabase status %d: %s", r.StatusCode, body.Message)
		}
		if body.Error != "" {
			return fmt.Errorf("supabase status %d: %s", r.StatusCode, body.Error)
		}
	}
	return fmt.Errorf("supabase status %d", r.StatusCode)
}

// Total parses the row count from a "0-9/42" Content-Range header.
// It returns -1 when the header is missing or the total is unknown.
func (r *Response) Total() int {
	cr := r.Headers.Get("Content-Range")
	idx := strings.LastIndex(cr, "/")
	if idx < 0 {
		return -1
	}
	n, err := strconv.Atoi(cr[idx+1:])
	if err != nil {
		return -1
	}
	return n
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
}

func (c *Client) do(req *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    resp.Header,
	}, nil
}
