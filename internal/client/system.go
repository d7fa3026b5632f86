package client

import (
	"context"
	"encoding/json"
	"net/http"
)

// GetConfig returns the configuration document.
func (c *Client) GetConfig(ctx context.Context) (map[string]any, error) {
	var doc map[string]any
	if err := c.getJSON(ctx, "/api/config", nil, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// GetConfigSchema returns the raw schema document.
func (c *Client) GetConfigSchema(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/api/config/schema", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// SaveConfig replaces the configuration document.
func (c *Client) SaveConfig(ctx context.Context, doc map[string]any) error {
	return c.sendJSON(ctx, http.MethodPost, "/api/config", doc, nil)
}
