package service

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recorder struct {
	calls []string
	fail  string
}

func (r *recorder) run(args ...string) error {
	call := strings.Join(args, " ")
	r.calls = append(r.calls, call)
	if call == r.fail {
		return errors.New("exit status 1")
	}
	return nil
}

func testUnit() Unit {
	return Unit{
		ExecPath:   "/usr/local/bin/dashboard",
		ConfigPath: "/etc/dash/config.yaml",
		User:       "openhab",
		WorkingDir: "/var/lib/dash",
		After:      []string{"knx2openhab.service"},
	}
}

func TestUnitRender(t *testing.T) {
	out, err := testUnit().Render()
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	for _, want := range []string{
		"ExecStart=/usr/local/bin/dashboard serve -config /etc/dash/config.yaml",
		"After=network.target knx2openhab.service",
		"Wants=knx2openhab.service",
		"User=openhab",
		"ReadWritePaths=/var/lib/dash",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("unit missing %q:\n%s", want, out)
		}
	}

	u := testUnit()
	u.After = nil
	out, _ = u.Render()
	if strings.Contains(out, "Wants=") {
		t.Errorf("unit without dependencies should not have Wants:\n%s", out)
	}
}

func TestInstallerInstall(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	i := &Installer{Dir: dir, Systemctl: rec.run}

	if err := i.Install(testUnit()); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, Name+".service")); err != nil {
		t.Fatalf("unit file not written: %v", err)
	}
	want := []string{"daemon-reload", "enable " + Name, "restart " + Name}
	if strings.Join(rec.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", rec.calls, want)
	}
}

func TestInstallerInstallStopsOnFailure(t *testing.T) {
	rec := &recorder{fail: "enable " + Name}
	i := &Installer{Dir: t.TempDir(), Systemctl: rec.run}

	err := i.Install(testUnit())
	if err == nil || !strings.Contains(err.Error(), "systemctl enable") {
		t.Fatalf("expected enable failure, got %v", err)
	}
	if len(rec.calls) != 2 {
		t.Errorf("expected install to stop after enable, calls = %v", rec.calls)
	}
}

func TestInstallerUninstall(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{fail: "stop " + Name}
	i := &Installer{Dir: dir, Systemctl: rec.run}
	if err := os.WriteFile(filepath.Join(dir, Name+".service"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := i.Uninstall(); err != nil {
		t.Fatalf("Uninstall failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, Name+".service")); !os.IsNotExist(err) {
		t.Errorf("unit file still present")
	}

	// missing file is not an error
	if err := i.Uninstall(); err != nil {
		t.Fatalf("second Uninstall failed: %v", err)
	}
}
