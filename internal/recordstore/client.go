// Package recordstore is the HTTP client for the hosted tabular record
// store. The store exposes named collections of flat field maps with
// store-generated ids, an equality/AND/OR/substring filter DSL evaluated
// server-side, and nothing else: no joins, no transactions, no bulk-atomic
// writes. Everything above this package must cope with that.
package recordstore

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
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrUnavailable = errors.New("record store unreachable")
)

// Fields is one record's flat field map. Link fields arrive as []any of ids.
type Fields map[string]any

type Record struct {
	ID     string `json:"id"`
	Fields Fields `json:"fields"`
}

type Client struct {
	baseURL  string
	apiToken string
	http     *http.Client
}

func New(baseURL string, apiToken string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type listResponse struct {
	Records []Record `json:"records"`
}

// Find returns the records of a collection matching filter, ordered by sort
// when given. Empty filter returns the whole collection.
func (c *Client) Find(ctx context.Context, collection string, filter string, sort string) ([]Record, error) {
	query := url.Values{}
	if filter != "" {
		query.Set("filterByFormula", filter)
	}
	if sort != "" {
		query.Set("sort", sort)
	}
	endpoint := c.collectionURL(collection)
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var resp listResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

func (c *Client) FindByID(ctx context.Context, collection string, id string) (*Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodGet, c.recordURL(collection, id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) Create(ctx context.Context, collection string, fields Fields) (*Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodPost, c.collectionURL(collection), map[string]any{"fields": fields}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update patches the listed fields only; omitted fields keep their value.
func (c *Client) Update(ctx context.Context, collection string, id string, fields Fields) (*Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodPatch, c.recordURL(collection, id), map[string]any{"fields": fields}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) Delete(ctx context.Context, collection string, id string) error {
	return c.do(ctx, http.MethodDelete, c.recordURL(collection, id), nil, nil)
}

func (c *Client) collectionURL(collection string) string {
	return fmt.Sprintf("%s/v1/collections/%s/records", c.baseURL, url.PathEscape(collection))
}

func (c *Client) recordURL(collection string, id string) string {
	return fmt.Sprintf("%s/v1/collections/%s/records/%s", c.baseURL, url.PathEscape(collection), url.PathEscape(id))
}

func (c *Client) do(ctx context.Context, method string, endpoint string, body any, dest any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: auth rejected (status %d)", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("record store rejected %s %s: status %d: %s", method, endpoint, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode record store response: %w", err)
	}
	return nil
}
