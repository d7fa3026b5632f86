package updater

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knx2openhab/dashboard/internal/models"
)

type fakeBackend struct {
	mu       sync.Mutex
	trigger  *models.UpdateTrigger
	logs     []string
	logErrs  int
	polls    int
	check    *models.UpdateCheck
	checkErr error
}

func (f *fakeBackend) Version(ctx context.Context) (*models.VersionInfo, error) {
	return &models.VersionInfo{CommitShort: "abc123", Branch: "main"}, nil
}

func (f *fakeBackend) CheckVersion(ctx context.Context) (*models.UpdateCheck, error) {
	return f.check, f.checkErr
}

func (f *fakeBackend) TriggerUpdate(ctx context.Context) (*models.UpdateTrigger, error) {
	return f.trigger, nil
}

func (f *fakeBackend) UpdateLog(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.logErrs > 0 {
		f.logErrs--
		return "", errors.New("connection refused")
	}
	if len(f.logs) == 0 {
		return "", nil
	}
	text := f.logs[0]
	if len(f.logs) > 1 {
		f.logs = f.logs[1:]
	}
	return text, nil
}

func newTestUpdater(b Backend) *Updater {
	u := New(b, time.Millisecond)
	u.stableAfter = 3
	u.maxErrors = 4
	return u
}

func TestCheck(t *testing.T) {
	b := &fakeBackend{check: &models.UpdateCheck{UpdateAvailable: true, LatestCommit: "def456"}}

	st, err := newTestUpdater(b).Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", st.Info.CommitShort)
	assert.True(t, st.Check.UpdateAvailable)
}

func TestCheck_Error(t *testing.T) {
	b := &fakeBackend{checkErr: errors.New("offline")}

	st, err := newTestUpdater(b).Check(context.Background())
	require.Error(t, err)
	assert.NotNil(t, st.Info)
	assert.Contains(t, err.Error(), "offline")
}

func TestRun_FollowsLogUntilStable(t *testing.T) {
	b := &fakeBackend{
		trigger: &models.UpdateTrigger{Status: StatusUpdating, Message: "Update started"},
		logs:    []string{"pull", "pull\nbuild", "pull\nbuild\nrestart"},
		logErrs: 2,
	}

	var seen []string
	final, err := newTestUpdater(b).Run(context.Background(), func(text string) {
		seen = append(seen, text)
	})
	require.NoError(t, err)
	assert.Equal(t, "pull\nbuild\nrestart", final)
	assert.Equal(t, []string{"pull", "pull\nbuild", "pull\nbuild\nrestart"}, seen)
}

func TestRun_Simulated(t *testing.T) {
	b := &fakeBackend{trigger: &models.UpdateTrigger{Status: StatusSimulated, Message: "simulated on windows"}}

	final, err := newTestUpdater(b).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "simulated on windows", final)
	assert.Zero(t, b.polls)
}

func TestRun_TriggerError(t *testing.T) {
	b := &fakeBackend{trigger: &models.UpdateTrigger{Error: "Update failed"}}

	_, err := newTestUpdater(b).Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Update failed")
}

func TestFollow_GivesUpAfterErrors(t *testing.T) {
	b := &fakeBackend{logErrs: 100}

	_, err := newTestUpdater(b).Follow(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update log unavailable")
}

func TestFollow_Cancelled(t *testing.T) {
	b := &fakeBackend{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestUpdater(b).Follow(ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
