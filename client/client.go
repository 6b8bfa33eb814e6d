// Package client implements the REST client for the annotation service.
// It classifies every failure into a review.ErrorKind at this boundary so
// consumers never inspect HTTP details.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avialab/temtrack/review"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 4 * 1024 * 1024
)

// Config configures an HTTPClient.
type Config struct {
	BaseURL string
	Token   string

	// Actor and Role identify the current user to the service.
	Actor string
	Role  string

	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

// HTTPClient talks to the annotation service over HTTP. It implements
// review.API.
type HTTPClient struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) (*HTTPClient, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing base url")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = "temtrack/1.0"
	}
	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// errorEnvelope is the service's JSON error body.
type errorEnvelope struct {
	Error struct {
		Kind    string            `json:"kind"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields,omitempty"`
	} `json:"error"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(c.cfg.Token) != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	if strings.TrimSpace(c.cfg.Actor) != "" {
		req.Header.Set("X-Actor", c.cfg.Actor)
	}
	if strings.TrimSpace(c.cfg.Role) != "" {
		req.Header.Set("X-Actor-Role", c.cfg.Role)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &review.APIError{Kind: review.KindServer, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
	if err != nil {
		return &review.APIError{Kind: review.KindServer, StatusCode: resp.StatusCode, Message: "read response: " + err.Error()}
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, data)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return &review.APIError{Kind: review.KindServer, StatusCode: resp.StatusCode, Message: "decode response: " + err.Error()}
		}
	}
	return nil
}

// decodeError builds an APIError from the error envelope, falling back to
// the HTTP status when the body carries no usable kind.
func decodeError(status int, data []byte) *review.APIError {
	ae := &review.APIError{Kind: kindFromStatus(status), StatusCode: status}
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err == nil {
		if k := strings.TrimSpace(env.Error.Kind); k != "" {
			ae.Kind = review.ErrorKind(k)
		}
		ae.Message = env.Error.Message
		ae.Fields = env.Error.Fields
	}
	return ae
}

func kindFromStatus(status int) review.ErrorKind {
	switch {
	case status == http.StatusNotFound:
		return review.KindNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return review.KindAuthorization
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return review.KindValidation
	default:
		return review.KindServer
	}
}

func itemPath(itemID string, rest string) string {
	return "/api/v1/items/" + url.PathEscape(itemID) + rest
}

// GetReviewHistory fetches the review trail of a labeling item. A missing
// item surfaces as an APIError with KindNotFound.
func (c *HTTPClient) GetReviewHistory(ctx context.Context, itemID string) (review.ReviewHistory, error) {
	var out review.ReviewHistory
	err := c.do(ctx, http.MethodGet, itemPath(itemID, "/review-history"), nil, &out)
	return out, err
}

type commentPayload struct {
	Comment string `json:"comment,omitempty"`
}

// ApproveItem records an approval verdict.
func (c *HTTPClient) ApproveItem(ctx context.Context, itemID, comment string) (review.ReviewDecision, error) {
	var out review.ReviewDecision
	err := c.do(ctx, http.MethodPost, itemPath(itemID, "/approve"), commentPayload{Comment: comment}, &out)
	return out, err
}

// RejectItem records a partial or full rejection with field feedback.
func (c *HTTPClient) RejectItem(ctx context.Context, itemID string, req review.RejectRequest) (review.ReviewDecision, error) {
	var out review.ReviewDecision
	err := c.do(ctx, http.MethodPost, itemPath(itemID, "/reject"), req, &out)
	return out, err
}

// RequestRevision records a revision-request verdict with field feedback.
func (c *HTTPClient) RequestRevision(ctx context.Context, itemID string, req review.RevisionRequest) (review.ReviewDecision, error) {
	var out review.ReviewDecision
	err := c.do(ctx, http.MethodPost, itemPath(itemID, "/request-revision"), req, &out)
	return out, err
}

// ResubmitItem sends a revised item back for review.
func (c *HTTPClient) ResubmitItem(ctx context.Context, itemID, comment string) (review.LabelingItem, error) {
	var out review.LabelingItem
	err := c.do(ctx, http.MethodPost, itemPath(itemID, "/resubmit"), commentPayload{Comment: comment}, &out)
	return out, err
}

// SubmitItem moves a draft item to submitted.
func (c *HTTPClient) SubmitItem(ctx context.Context, itemID string) error {
	return c.do(ctx, http.MethodPost, itemPath(itemID, "/submit"), nil, nil)
}

// ListItems returns the labeling items of a project. An empty projectID
// lists across projects.
func (c *HTTPClient) ListItems(ctx context.Context, projectID string) ([]review.LabelingItem, error) {
	path := "/api/v1/items"
	if strings.TrimSpace(projectID) != "" {
		path += "?project_id=" + url.QueryEscape(projectID)
	}
	var out []review.LabelingItem
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// GetItem fetches a single labeling item.
func (c *HTTPClient) GetItem(ctx context.Context, itemID string) (review.LabelingItem, error) {
	var out review.LabelingItem
	err := c.do(ctx, http.MethodGet, itemPath(itemID, ""), nil, &out)
	return out, err
}

// CreateItem creates a draft labeling item.
func (c *HTTPClient) CreateItem(ctx context.Context, item review.LabelingItem) (review.LabelingItem, error) {
	var out review.LabelingItem
	err := c.do(ctx, http.MethodPost, "/api/v1/items", item, &out)
	return out, err
}

// UpdateItem replaces the classification fields of an item.
func (c *HTTPClient) UpdateItem(ctx context.Context, itemID string, fields map[string]string) (review.LabelingItem, error) {
	var out review.LabelingItem
	err := c.do(ctx, http.MethodPut, itemPath(itemID, ""), map[string]any{"fields": fields}, &out)
	return out, err
}

// DeleteItem deletes a labeling item.
func (c *HTTPClient) DeleteItem(ctx context.Context, itemID string) error {
	return c.do(ctx, http.MethodDelete, itemPath(itemID, ""), nil, nil)
}
