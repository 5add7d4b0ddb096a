// Package service registers the watcher to start at boot: a systemd unit on
// Linux and a service control manager entry on Windows.
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

	"github.com/Nomadcxx/cinesync/internal/logging"
)

const (
	UnitName       = "cinesync.service"
	WindowsName    = "CineSync"
	DefaultUnitDir = "/etc/systemd/system"
)

var ErrUnsupportedPlatform = errors.New("service registration is not supported on this platform")

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// Status is what the service manager reports for the watcher.
type Status struct {
	Installed bool
	State     string
}

// Manager installs, removes and queries the watcher service.
type Manager struct {
	goos       string
	runner     Runner
	unitDir    string
	binary     string
	workDir    string
	configFile string
	user       string
	logger     *logging.Logger
}

// New returns a manager for binary, which is started with --watch from
// workDir.
func New(binary, workDir string, options ...func(*Manager)) *Manager {
	m := &Manager{
		goos:    runtime.GOOS,
		runner:  execRunner{},
		unitDir: DefaultUnitDir,
		binary:  binary,
		workDir: workDir,
		logger:  logging.Nop(),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

func WithRunner(r Runner) func(*Manager) {
	return func(m *Manager) {
		m.runner = r
	}
}

func WithPlatform(goos string) func(*Manager) {
	return func(m *Manager) {
		m.goos = goos
	}
}

func WithUnitDir(dir string) func(*Manager) {
	return func(m *Manager) {
		m.unitDir = dir
	}
}

// WithConfigFile passes --config to the registered command.
func WithConfigFile(path string) func(*Manager) {
	return func(m *Manager) {
		m.configFile = path
	}
}

// WithUser runs the systemd unit as user instead of root.
func WithUser(user string) func(*Manager) {
	return func(m *Manager) {
		m.user = user
	}
}

func WithLogger(logger *logging.Logger) func(*Manager) {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// UnitPath is where the systemd unit is written.
func (m *Manager) UnitPath() string {
	return filepath.Join(m.unitDir, UnitName)
}

func (m *Manager) Install() error {
	switch m.goos {
	case "linux":
		return m.installSystemd()
	case "windows":
		return m.installWindows()
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedPlatform, m.goos)
}

func (m *Manager) Uninstall() error {
	switch m.goos {
	case "linux":
		return m.uninstallSystemd()
	case "windows":
		return m.uninstallWindows()
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedPlatform, m.goos)
}

func (m *Manager) Status() (Status, error) {
	switch m.goos {
	case "linux":
		return m.statusSystemd()
	case "windows":
		return m.statusWindows()
	}
	return Status{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, m.goos)
}

func (m *Manager) watchArgs() []string {
	args := []string{"--watch"}
	if m.configFile != "" {
		args = append(args, "--config", m.configFile)
	}
	return args
}

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=CineSync media watcher
After=network-online.target local-fs.target
Wants=network-online.target

[Service]
Type=simple
{{- if .User}}
User={{.User}}
{{- end}}
ExecStart={{.ExecStart}}
WorkingDirectory={{.WorkDir}}
Environment=WORKING_DIRECTORY={{.WorkDir}}
Restart=always
RestartSec=5

[Install]
WantedBy=multi-user.target
`))

// Unit renders the systemd unit file.
func (m *Manager) Unit() (string, error) {
	execStart := append([]string{m.binary}, m.watchArgs()...)
	for i, arg := range execStart {
		if strings.ContainsAny(arg, " \t") {
			execStart[i] = `"` + arg + `"`
		}
	}

	var buf bytes.Buffer
	err := unitTemplate.Execute(&buf, struct {
		User      string
		ExecStart string
		WorkDir   string
	}{
		User:      m.user,
		ExecStart: strings.Join(execStart, " "),
		WorkDir:   m.workDir,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (m *Manager) installSystemd() error {
	unit, err := m.Unit()
	if err != nil {
		return fmt.Errorf("render unit: %w", err)
	}
	if err := os.WriteFile(m.UnitPath(), []byte(unit), 0644); err != nil {
		return fmt.Errorf("write %s: %w", m.UnitPath(), err)
	}
	m.logger.Info("service", "unit written", logging.F("path", m.UnitPath()))

	for _, args := range [][]string{
		{"daemon-reload"},
		{"enable", UnitName},
		{"start", UnitName},
	} {
		if err := m.run("systemctl", args...); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) uninstallSystemd() error {
	// Stopping a unit that is not running is not an error worth reporting.
	m.run("systemctl", "stop", UnitName)
	m.run("systemctl", "disable", UnitName)

	if err := os.Remove(m.UnitPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", m.UnitPath(), err)
	}
	return m.run("systemctl", "daemon-reload")
}

func (m *Manager) statusSystemd() (Status, error) {
	if _, err := os.Stat(m.UnitPath()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Status{State: "not installed"}, nil
		}
		return Status{}, err
	}
	// is-active exits non-zero for anything but "active"; the output is
	// still the state.
	out, _ := m.runner.Run("systemctl", "is-active", UnitName)
	state := strings.TrimSpace(string(out))
	if state == "" {
		state = "unknown"
	}
	return Status{Installed: true, State: state}, nil
}

func (m *Manager) installWindows() error {
	// The binary answers the service control manager itself, see RunWatcher.
	binPath := `"` + m.binary + `"`
	for _, arg := range m.watchArgs() {
		if strings.ContainsAny(arg, " \t") {
			arg = `"` + arg + `"`
		}
		binPath += " " + arg
	}

	if err := m.run("sc", "create", WindowsName, "binPath=", binPath, "start=", "auto", "DisplayName=", "CineSync media watcher"); err != nil {
		return err
	}
	return m.run("sc", "start", WindowsName)
}

func (m *Manager) uninstallWindows() error {
	m.run("sc", "stop", WindowsName)
	return m.run("sc", "delete", WindowsName)
}

func (m *Manager) statusWindows() (Status, error) {
	out, err := m.runner.Run("sc", "query", WindowsName)
	if err != nil {
		// 1060: the specified service does not exist as an installed service.
		if strings.Contains(string(out), "1060") {
			return Status{State: "not installed"}, nil
		}
		return Status{}, fmt.Errorf("sc query: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return Status{Installed: true, State: parseSCState(string(out))}, nil
}

// parseSCState extracts the state word from `sc query` output, e.g.
// "STATE              : 4  RUNNING".
func parseSCState(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "STATE") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 4 {
			return strings.ToLower(fields[3])
		}
	}
	return "unknown"
}

func (m *Manager) run(name string, args ...string) error {
	m.logger.Debug("service", "running", logging.F("command", name+" "+strings.Join(args, " ")))
	out, err := m.runner.Run(name, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
