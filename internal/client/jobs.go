package client

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/knx2openhab/dashboard/internal/models"
)

// ListJobs returns every job known to the backend.
func (c *Client) ListJobs(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	if err := c.getJSON(ctx, "/api/jobs", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetJob returns the full job including log, stats and backups.
func (c *Client) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := c.getJSON(ctx, "/api/job/"+url.PathEscape(id), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// PatchJobLog mirrors the client log to the backend.
func (c *Client) PatchJobLog(ctx context.Context, id string, entries []models.LogEntry) error {
	body := map[string]any{"log": entries}
	return c.sendJSON(ctx, http.MethodPatch, "/api/job/"+url.PathEscape(id), body, nil)
}

// DeleteJob removes a job from the history.
func (c *Client) DeleteJob(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodDelete, "/api/job/"+url.PathEscape(id), nil, nil)
}

// Rollback restores the named backup of a job.
func (c *Client) Rollback(ctx context.Context, id, backup string) (models.OpResult, error) {
	var res models.OpResult
	err := c.sendJSON(ctx, http.MethodPost, "/api/job/"+url.PathEscape(id)+"/rollback", map[string]string{"backup": backup}, &res)
	return res, err
}

// Rerun starts a new job from the input of an existing one.
func (c *Client) Rerun(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := c.sendJSON(ctx, http.MethodPost, "/api/job/"+url.PathEscape(id)+"/rerun", nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Deploy copies the staged files of a job into the live configuration.
func (c *Client) Deploy(ctx context.Context, id string) (models.OpResult, error) {
	var res models.OpResult
	err := c.sendJSON(ctx, http.MethodPost, "/api/job/"+url.PathEscape(id)+"/deploy", nil, &res)
	return res, err
}

// JobPreview returns the building tree parsed by a job.
func (c *Client) JobPreview(ctx context.Context, id string) (*models.ProjectPreview, error) {
	var p models.ProjectPreview
	if err := c.getJSON(ctx, "/api/job/"+url.PathEscape(id)+"/preview", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// FileDiff returns the backend-computed diff of one generated file.
func (c *Client) FileDiff(ctx context.Context, id, path string) ([]models.DiffEntry, error) {
	var entries []models.DiffEntry
	q := url.Values{"path": {path}}
	if err := c.getJSON(ctx, "/api/job/"+url.PathEscape(id)+"/file/diff", q, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// FilePreview returns a file's content. With jobID set the staged version
// of that job is returned, with backup set the version inside that backup.
func (c *Client) FilePreview(ctx context.Context, path, backup, jobID string) (*models.FileContent, error) {
	q := url.Values{"path": {path}}
	if backup != "" {
		q.Set("backup", backup)
	}
	if jobID != "" {
		q.Set("job_id", jobID)
	}
	var fc models.FileContent
	if err := c.getJSON(ctx, "/api/file/preview", q, &fc); err != nil {
		return nil, err
	}
	return &fc, nil
}

// Upload is a project export to submit.
type Upload struct {
	Filename string
	Body     io.Reader
	Password string
}

func (u Upload) encode() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", u.Filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, u.Body); err != nil {
		return nil, "", err
	}
	if u.Password != "" {
		if err := w.WriteField("password", u.Password); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *Client) postMultipart(ctx context.Context, path string, u Upload, out any) error {
	body, contentType, err := u.encode()
	if err != nil {
		return errors.Wrapf(err, "encode upload %s", u.Filename)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, out)
}

// UploadProject submits a project export and returns the created job.
func (c *Client) UploadProject(ctx context.Context, u Upload) (*models.Job, error) {
	var job models.Job
	if err := c.postMultipart(ctx, "/api/upload", u, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// PreviewProject parses a project export without starting a job.
func (c *Client) PreviewProject(ctx context.Context, u Upload) (*models.ProjectPreview, error) {
	var p models.ProjectPreview
	if err := c.postMultipart(ctx, "/api/project/preview", u, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Events opens the server-sent event stream of a job. The caller owns the
// returned body; cancelling ctx closes it.
func (c *Client) Events(ctx context.Context, id string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/job/"+url.PathEscape(id)+"/events", nil, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "open event stream for job %s", id)
	}
	if err := checkStatus(resp); err != nil {
		_ = resp.Body.Close()
		return nil, errors.Wrapf(err, "open event stream for job %s", id)
	}
	return resp.Body, nil
}

// Status returns the job counters of the backend.
func (c *Client) Status(ctx context.Context) (*models.BackendStatus, error) {
	var s models.BackendStatus
	if err := c.getJSON(ctx, "/api/status", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
