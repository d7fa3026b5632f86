package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/knx2openhab/dashboard/internal/models"
)

// ServiceStatus returns the systemd state of a service.
func (c *Client) ServiceStatus(ctx context.Context, name string) (*models.ServiceStatus, error) {
	var s models.ServiceStatus
	if err := c.getJSON(ctx, "/api/service/"+url.PathEscape(name)+"/status", nil, &s); err != nil {
		return nil, err
	}
	s.Name = name
	return &s, nil
}

// RestartService restarts a service.
func (c *Client) RestartService(ctx context.Context, name string) (models.OpResult, error) {
	var res models.OpResult
	err := c.sendJSON(ctx, http.MethodPost, "/api/service/restart", map[string]string{"service": name}, &res)
	return res, err
}

// Version returns the deployed backend version.
func (c *Client) Version(ctx context.Context) (*models.VersionInfo, error) {
	var v models.VersionInfo
	if err := c.getJSON(ctx, "/api/version", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// CheckVersion compares the deployed version with the latest upstream.
func (c *Client) CheckVersion(ctx context.Context) (*models.UpdateCheck, error) {
	var u models.UpdateCheck
	if err := c.getJSON(ctx, "/api/version/check", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// TriggerUpdate starts the backend self-update.
func (c *Client) TriggerUpdate(ctx context.Context) (*models.UpdateTrigger, error) {
	var t models.UpdateTrigger
	if err := c.sendJSON(ctx, http.MethodPost, "/api/version/update", nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateLog returns the output of the running update.
func (c *Client) UpdateLog(ctx context.Context) (string, error) {
	var l models.UpdateLog
	if err := c.getJSON(ctx, "/api/version/log", nil, &l); err != nil {
		return "", err
	}
	return l.Log, nil
}
