// Package service installs the dashboard as a systemd unit.
package service

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
)

// Name is the systemd unit name of the dashboard.
const Name = "knx2openhab-dashboard"

// ErrUnsupported is returned on systems without systemd.
var ErrUnsupported = errors.New("systemd not available on this system")

// Unit describes the installed service.
type Unit struct {
	ExecPath   string
	ConfigPath string
	User       string
	WorkingDir string
	// After lists units that must be up first, usually the conversion
	// backend.
	After []string
}

const unitTemplate = `[Unit]
Description=knx2openhab dashboard
After=network.target{{range .After}} {{.}}{{end}}
{{- if .After}}
Wants={{join .After " "}}
{{- end}}

[Service]
Type=simple
User={{.User}}
WorkingDirectory={{.WorkingDir}}
ExecStart={{.ExecPath}} serve -config {{.ConfigPath}}
Restart=on-failure
RestartSec=5
StandardOutput=journal
StandardError=journal
NoNewPrivileges=true
ProtectSystem=strict
ReadWritePaths={{.WorkingDir}}
PrivateTmp=true

[Install]
WantedBy=multi-user.target
`

var unitTmpl = template.Must(template.New("unit").Funcs(template.FuncMap{"join": strings.Join}).Parse(unitTemplate))

// DefaultUnit returns the unit for the running executable.
func DefaultUnit() Unit {
	execPath, _ := os.Executable()
	if p, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = p
	}
	return Unit{
		ExecPath:   execPath,
		ConfigPath: "/etc/knx2openhab-dashboard/config.yaml",
		User:       "openhab",
		WorkingDir: "/var/lib/knx2openhab-dashboard",
		After:      []string{"knx2openhab.service"},
	}
}

// Render produces the unit file content.
func (u Unit) Render() (string, error) {
	var buf bytes.Buffer
	if err := unitTmpl.Execute(&buf, u); err != nil {
		return "", fmt.Errorf("failed to render unit: %w", err)
	}
	return buf.String(), nil
}

// Systemctl runs one systemctl invocation.
type Systemctl func(args ...string) error

// Installer writes unit files and drives systemctl.
type Installer struct {
	Dir       string
	Systemctl Systemctl
}

// NewInstaller returns an installer for /etc/systemd/system. It fails on
// systems without systemd.
func NewInstaller() (*Installer, error) {
	if runtime.GOOS != "linux" {
		return nil, ErrUnsupported
	}
	if _, err := exec.LookPath("systemctl"); err != nil {
		return nil, ErrUnsupported
	}
	return &Installer{Dir: "/etc/systemd/system", Systemctl: runSystemctl}, nil
}

func (i *Installer) path() string {
	return filepath.Join(i.Dir, Name+".service")
}

// Install writes the unit, then enables and starts it.
func (i *Installer) Install(u Unit) error {
	content, err := u.Render()
	if err != nil {
		return err
	}
	if err := os.WriteFile(i.path(), []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write unit file: %w", err)
	}
	for _, args := range [][]string{{"daemon-reload"}, {"enable", Name}, {"restart", Name}} {
		if err := i.Systemctl(args...); err != nil {
			return fmt.Errorf("systemctl %s: %w", args[0], err)
		}
	}
	return nil
}

// Uninstall stops the unit and removes its file.
func (i *Installer) Uninstall() error {
	// not running or not enabled is fine
	_ = i.Systemctl("stop", Name)
	_ = i.Systemctl("disable", Name)

	if err := os.Remove(i.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove unit file: %w", err)
	}
	return i.Systemctl("daemon-reload")
}

func runSystemctl(args ...string) error {
	out, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
