// Package strategy provides the client for the remote strategy-generation API.
// Generate always yields a usable document: any transport or logical failure
// is replaced by a deterministic local fallback tagged with its provenance.
package strategy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/jonathan/markitup/internal/schemas"
	"github.com/jonathan/markitup/internal/types"
)

// Endpoint paths relative to Config.BaseURL.
const (
	EndpointGenerate   = "/strategies/generate/"
	EndpointStrategies = "/strategies/"
	EndpointTemplates  = "/templates/"
)

// Client talks to the strategy-generation backend.
type Client struct {
	config     Config
	httpClient *http.Client
}

// New creates a client from cfg. Zero fields take their defaults.
func New(cfg Config) (*Client, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}, nil
}

// BaseURL returns the endpoint root the client was configured with.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Generate converts req into a strategy document. It never returns an error:
// when the remote call fails the fallback document is returned instead, with
// Metadata.Source set to "fallback" and Metadata.FallbackReason describing
// the failure.
func (c *Client) Generate(ctx context.Context, req types.StrategyRequest) *types.StrategyDocument {
	sections, err := c.generateRemote(ctx, req)
	if err != nil {
		log.Printf("[strategy] generation for %q failed, using fallback: %v", req.CompanyName, err)
		doc := FallbackDocument(req, c.config.Now())
		doc.Metadata.FallbackReason = err.Error()
		return doc
	}
	return types.NewStrategyDocument(req, sections, types.SourceRemote, c.config.Now())
}

// generateRemote performs the single generation call and normalizes the result.
func (c *Client) generateRemote(ctx context.Context, req types.StrategyRequest) (types.Sections, error) {
	body, err := c.apiRequest(ctx, http.MethodPost, EndpointGenerate, newGenerateRequest(req))
	if err != nil {
		return nil, err
	}

	if err := schemas.Validate(schemas.GenerateResponseSchema, body); err != nil {
		return nil, &TransportError{
			Endpoint:   EndpointGenerate,
			StatusCode: http.StatusOK,
			Message:    "malformed response body",
			Cause:      err,
		}
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &TransportError{
			Endpoint:   EndpointGenerate,
			StatusCode: http.StatusOK,
			Message:    "malformed response body",
			Cause:      err,
		}
	}

	if !resp.Success || !resp.hasStrategy() {
		msg := resp.Error
		if msg == "" {
			msg = genericFailureMessage
		}
		return nil, &LogicalFailure{Message: msg}
	}

	sections, err := decodeSections(resp.Strategy)
	if err != nil {
		return nil, &TransportError{
			Endpoint:   EndpointGenerate,
			StatusCode: http.StatusOK,
			Message:    "malformed strategy payload",
			Cause:      err,
		}
	}
	if len(sections) == 0 {
		return nil, &LogicalFailure{Message: "strategy contains no sections"}
	}

	return sections, nil
}

// apiRequest sends a JSON request and returns the raw body of a 2xx response.
// Every failure is reported as a *TransportError: StatusCode 0 for network
// errors and timeouts, the response status otherwise. A 2xx body that is not
// valid JSON, or is larger than Config.MaxResponseBytes, is a transport
// failure too.
func (c *Client) apiRequest(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	url := c.config.BaseURL + endpoint

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request for %s: %w", endpoint, err)
		}
		reqBody = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseBytes+1))
	if err != nil {
		return nil, &TransportError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    "failed to read response body",
			Cause:      err,
		}
	}
	if int64(len(body)) > c.config.MaxResponseBytes {
		return nil, &TransportError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("malformed response body: larger than %d bytes", c.config.MaxResponseBytes),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &errBody) == nil && errBody.Error != "" {
			msg = errBody.Error
		}
		return nil, &TransportError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: msg}
	}

	if !json.Valid(body) {
		return nil, &TransportError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    "malformed response body",
		}
	}

	return body, nil
}
