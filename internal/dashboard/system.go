package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/knx2openhab/dashboard/internal/client"
	"github.com/knx2openhab/dashboard/internal/models"
	"github.com/knx2openhab/dashboard/internal/services"
	"github.com/knx2openhab/dashboard/internal/validation"
)

// RefreshServices reads the state of every configured service. A service
// whose status cannot be read is shown as inactive with the error.
func (s *Session) RefreshServices(ctx context.Context) error {
	list := make([]models.ServiceStatus, 0, len(s.opts.Services))
	var firstErr error
	for _, name := range s.opts.Services {
		st, err := s.deps.Backend.ServiceStatus(ctx, name)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			list = append(list, models.ServiceStatus{Name: name, Status: client.Message(err)})
			continue
		}
		list = append(list, *st)
	}

	s.mu.Lock()
	s.services = list
	s.mu.Unlock()
	s.view.Services(list)
	if firstErr != nil {
		s.debugf("%s: service status: %v", s.id, firstErr)
	}
	return firstErr
}

// RestartService restarts one of the configured services.
func (s *Session) RestartService(ctx context.Context, name string) error {
	if err := validation.ValidateService(name, s.opts.Services); err != nil {
		return s.fail("Restart", err)
	}
	s.info("Restarting %s...", name)

	res, err := s.deps.Backend.RestartService(ctx, name)
	if err != nil {
		s.record(services.ActionRestartService, "", name, false, client.Message(err))
		return s.fail("Restart "+name, err)
	}
	s.record(services.ActionRestartService, "", name, res.OK, res.Message())
	if !res.OK {
		return s.fail("Restart "+name, fmt.Errorf("%s", res.Message()))
	}
	s.info("%s restarted", name)
	_ = s.RefreshServices(ctx)
	return nil
}

// CheckVersion reads the deployed backend version and whether an update
// is available.
func (s *Session) CheckVersion(ctx context.Context) error {
	st, err := s.updater.Check(ctx)
	s.mu.Lock()
	s.version = st
	updLog := s.updLog
	s.mu.Unlock()
	s.view.Version(st.Info, st.Check, updLog)
	if err != nil {
		s.debugf("%s: version check: %v", s.id, err)
	}
	return err
}

// Update triggers the backend self-update and follows its log in the
// background. Only one update runs per session.
func (s *Session) Update(ctx context.Context) error {
	if !s.updating.CompareAndSwap(false, true) {
		return s.fail("Update", ErrUpdateRunning)
	}
	s.info("Starting update...")

	started := s.background(func(bg context.Context) {
		defer s.updating.Store(false)

		final, err := s.updater.Run(bg, s.updateProgress)
		if err != nil {
			s.record(services.ActionUpdate, "", "", false, err.Error())
			if !errors.Is(err, context.Canceled) {
				_ = s.fail("Update", err)
			}
			return
		}
		s.record(services.ActionUpdate, "", "", true, "")
		s.updateProgress(final)
		s.info("Update finished")
		_ = s.CheckVersion(bg)
	})
	if !started {
		s.updating.Store(false)
		return ErrSessionClosed
	}
	return nil
}

func (s *Session) updateProgress(text string) {
	s.mu.Lock()
	s.updLog = text
	v := s.version
	s.mu.Unlock()
	s.view.Version(v.Info, v.Check, text)
}

// AutoRefresh reloads the job list every interval until the session
// closes. Failures only update the status line.
func (s *Session) AutoRefresh(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.background(func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.RefreshJobs(ctx)
			}
		}
	})
}
