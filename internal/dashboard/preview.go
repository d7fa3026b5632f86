package dashboard

import (
	"context"

	"github.com/knx2openhab/dashboard/internal/diff"
	"github.com/knx2openhab/dashboard/internal/models"
	"github.com/knx2openhab/dashboard/internal/stats"
	"github.com/knx2openhab/dashboard/internal/validation"
)

// PreviewFile opens the preview dialog for one generated file of the
// selected job. handle is the escaped filename from the statistics table.
// The backend diff is used when available, otherwise the diff is computed
// against the file inside the latest backup. A file without a backup copy
// is new: every line shows as added.
func (s *Session) PreviewFile(ctx context.Context, handle string) (*models.PreviewData, error) {
	name, err := stats.ParseActionHandle(handle)
	if err != nil {
		return nil, s.fail("Preview", err)
	}
	path := stats.NormalizePath(name)
	if err := validation.ValidateFilePath(path); err != nil {
		return nil, s.fail("Preview", err)
	}

	s.mu.Lock()
	job := s.job
	s.mu.Unlock()
	if job == nil {
		return nil, s.fail("Preview", ErrNoJobSelected)
	}

	current, err := s.deps.Backend.FilePreview(ctx, path, "", job.ID)
	if err != nil {
		return nil, s.fail("Preview", err)
	}

	p := &models.PreviewData{Filename: path, Current: *current}
	if latest, ok := job.LatestBackup(); ok {
		original, err := s.deps.Backend.FilePreview(ctx, path, latest.Name, "")
		if err != nil {
			s.debugf("%s: no original of %s in %s: %v", s.id, path, latest.Name, err)
		} else {
			p.Original = original
		}
	}

	entries, err := s.deps.Backend.FileDiff(ctx, job.ID, path)
	if err == nil && entries != nil {
		p.Diff = diff.FromBackend(entries)
	} else {
		if err != nil {
			s.debugf("%s: backend diff of %s unavailable: %v", s.id, path, err)
		}
		var original string
		if p.Original != nil {
			original = p.Original.Content
		}
		p.Diff = diff.Compute(original, p.Current.Content, s.opts.DiffStrategy)
		p.Computed = true
	}

	s.mu.Lock()
	s.preview = p
	s.mu.Unlock()
	s.view.Preview(p)
	return p, nil
}

// ClosePreview drops the open preview.
func (s *Session) ClosePreview() {
	s.mu.Lock()
	s.preview = nil
	s.mu.Unlock()
	s.view.Preview(nil)
}

// Preview returns the open preview, if any.
func (s *Session) Preview() *models.PreviewData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}
