package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jonathan/markitup/internal/retry"
)

// Remote export formats accepted by the backend.
const (
	RemoteFormatMarkdown = "markdown"
	RemoteFormatJSON     = "json"
	RemoteFormatPDF      = "pdf"
)

// SectionUpdate is the body of a section update.
type SectionUpdate struct {
	Content         string   `json:"content"`
	KeyPoints       []string `json:"key_points,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// The calls below return errors like any other API call; only Generate has
// the fallback policy. Read calls are retried with the configured options.

// ListStrategies returns the strategies stored by the backend.
func (c *Client) ListStrategies(ctx context.Context) (json.RawMessage, error) {
	return c.getWithRetry(ctx, EndpointStrategies)
}

// GetStrategy returns a single stored strategy.
func (c *Client) GetStrategy(ctx context.Context, id string) (json.RawMessage, error) {
	if id == "" {
		return nil, fmt.Errorf("strategy id is required")
	}
	return c.getWithRetry(ctx, strategyPath(id))
}

// Templates returns the strategy templates offered by the backend.
func (c *Client) Templates(ctx context.Context) (json.RawMessage, error) {
	return c.getWithRetry(ctx, EndpointTemplates)
}

// UpdateSection replaces the content of one section of a stored strategy.
func (c *Client) UpdateSection(ctx context.Context, strategyID, sectionID string, update SectionUpdate) (json.RawMessage, error) {
	if strategyID == "" || sectionID == "" {
		return nil, fmt.Errorf("strategy id and section id are required")
	}
	endpoint := fmt.Sprintf("/strategies/%s/sections/%s/", url.PathEscape(strategyID), url.PathEscape(sectionID))
	return c.apiRequest(ctx, http.MethodPut, endpoint, update)
}

// OptimizeStrategy asks the backend to refine a stored strategy.
func (c *Client) OptimizeStrategy(ctx context.Context, id string) (json.RawMessage, error) {
	if id == "" {
		return nil, fmt.Errorf("strategy id is required")
	}
	return c.apiRequest(ctx, http.MethodPost, strategyPath(id)+"optimize/", nil)
}

// ExportStrategy asks the backend to export a stored strategy.
func (c *Client) ExportStrategy(ctx context.Context, id, format string) (json.RawMessage, error) {
	switch format {
	case RemoteFormatMarkdown, RemoteFormatJSON, RemoteFormatPDF:
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	if id == "" {
		return nil, fmt.Errorf("strategy id is required")
	}
	endpoint := strategyPath(id) + "export/?format=" + url.QueryEscape(format)
	return c.apiRequest(ctx, http.MethodGet, endpoint, nil)
}

// Health reports whether the backend answers the strategies listing.
func (c *Client) Health(ctx context.Context) bool {
	_, err := c.apiRequest(ctx, http.MethodGet, EndpointStrategies, nil)
	return err == nil
}

func (c *Client) getWithRetry(ctx context.Context, endpoint string) (json.RawMessage, error) {
	body, err := retry.Do(ctx, func(ctx context.Context) ([]byte, error) {
		return c.apiRequest(ctx, http.MethodGet, endpoint, nil)
	}, c.config.Retry)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func strategyPath(id string) string {
	return "/strategies/" + url.PathEscape(id) + "/"
}
