// Package updater drives the backend self-update: version check, trigger
// and polling of the update log.
package updater

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/knx2openhab/dashboard/internal/models"
)

// Trigger statuses reported by the backend.
const (
	StatusUpdating  = "updating"
	StatusSimulated = "simulated"
)

// Backend is the part of the backend API used by the updater.
type Backend interface {
	Version(ctx context.Context) (*models.VersionInfo, error)
	CheckVersion(ctx context.Context) (*models.UpdateCheck, error)
	TriggerUpdate(ctx context.Context) (*models.UpdateTrigger, error)
	UpdateLog(ctx context.Context) (string, error)
}

// Progress receives the full update log whenever it grows.
type Progress func(logText string)

// Updater polls the update log until it stops changing.
type Updater struct {
	backend     Backend
	interval    time.Duration
	stableAfter int
	maxErrors   int
}

// New creates an updater polling every interval.
func New(backend Backend, interval time.Duration) *Updater {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Updater{
		backend:     backend,
		interval:    interval,
		stableAfter: 5,
		maxErrors:   15,
	}
}

// Status is the combined result of the version and check endpoints.
type Status struct {
	Info  *models.VersionInfo
	Check *models.UpdateCheck
}

// Check reads the deployed version and asks whether an update exists.
func (u *Updater) Check(ctx context.Context) (Status, error) {
	var st Status
	info, err := u.backend.Version(ctx)
	if err != nil {
		return st, fmt.Errorf("failed to read version: %w", err)
	}
	st.Info = info

	check, err := u.backend.CheckVersion(ctx)
	if err != nil {
		return st, fmt.Errorf("failed to check for updates: %w", err)
	}
	st.Check = check
	return st, nil
}

// Run triggers the update and follows its log. It returns the final log
// once the log has been unchanged for several polls, or ctx's error.
func (u *Updater) Run(ctx context.Context, progress Progress) (string, error) {
	trigger, err := u.backend.TriggerUpdate(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to start update: %w", err)
	}
	if trigger.Error != "" {
		return "", fmt.Errorf("failed to start update: %s", trigger.Error)
	}
	log.Printf("[Updater] Update %s: %s", trigger.Status, trigger.Message)
	if trigger.Status == StatusSimulated {
		return trigger.Message, nil
	}

	return u.Follow(ctx, progress)
}

// Follow polls the update log without triggering.
func (u *Updater) Follow(ctx context.Context, progress Progress) (string, error) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	var (
		last    string
		stable  int
		errs    int
		started bool
	)
	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}

		text, err := u.backend.UpdateLog(ctx)
		if err != nil {
			// the backend restarts during the update
			errs++
			if errs >= u.maxErrors {
				return last, fmt.Errorf("update log unavailable: %w", err)
			}
			continue
		}
		errs = 0

		if text != last || !started {
			started = true
			last = text
			stable = 0
			if progress != nil {
				progress(text)
			}
			continue
		}
		stable++
		if stable >= u.stableAfter && last != "" {
			log.Printf("[Updater] Update log settled")
			return last, nil
		}
	}
}
