package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/kardianos/service"

	"github.com/carewatch/carewatch/internal/config"
)

// Exit codes for the service management commands
const (
	ExitSuccess          = 0
	ExitPermissionDenied = 1
	ExitServiceNotFound  = 1
	ExitNotRunning       = 1
	ExitServiceExists    = 2
	ExitAlreadyRunning   = 2
	ExitStopFailed       = 2
	ExitConfigError      = 3
	ExitStartFailed      = 3
)

// ServiceConfig holds configuration for creating the service.
type ServiceConfig struct {
	ConfigPath string
	UserMode   bool
}

// program implements the service.Program interface for kardianos/service.
type program struct {
	daemon     *Daemon
	configPath string
}

// Start is called when the service starts.
// Per kardianos/service, this must return quickly - start work in goroutine.
func (p *program) Start(s service.Service) error {
	var cfg *config.Config
	var err error

	if p.configPath != "" {
		cfg, err = config.LoadConfigFromPath(p.configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	d, err := New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}
	p.daemon = d

	go func() {
		if err := p.daemon.Start(); err != nil {
			// Log and exit; the service manager handles restart
			fmt.Fprintf(os.Stderr, "daemon start error: %v\n", err)
		}
	}()

	return nil
}

// Stop is called when the service stops.
func (p *program) Stop(s service.Service) error {
	if p.daemon != nil {
		return p.daemon.Stop()
	}
	return nil
}

// NewService creates a new service instance.
func NewService(svcConfig ServiceConfig) (service.Service, error) {
	prg := &program{
		configPath: svcConfig.ConfigPath,
	}

	cfg := &service.Config{
		Name:        "carewatchd",
		DisplayName: "CareWatch Health Assistant Daemon",
		Description: "Background daemon that manages emergency alerts, inactivity monitoring, and the health profile for CareWatch.",
	}

	userMode := svcConfig.UserMode
	if !userMode {
		userMode = isUserServiceInstalled()
	}
	if userMode {
		cfg.Option = service.KeyValue{
			"UserService": true,
		}
	}

	switch runtime.GOOS {
	case "darwin":
		cfg.Option = mergeOptions(cfg.Option, service.KeyValue{
			"KeepAlive": true,
			"RunAtLoad": true,
		})
	case "linux":
		cfg.Option = mergeOptions(cfg.Option, service.KeyValue{
			"Restart": "on-failure",
		})
	case "windows":
		cfg.Option = mergeOptions(cfg.Option, service.KeyValue{
			"OnFailure":              "restart",
			"OnFailureDelayDuration": "5s",
			"OnFailureResetPeriod":   10,
		})
	}

	if svcConfig.ConfigPath != "" {
		cfg.Arguments = []string{"run", "--config", svcConfig.ConfigPath}
	} else {
		cfg.Arguments = []string{"run"}
	}

	return service.New(prg, cfg)
}

// mergeOptions merges two KeyValue maps.
func mergeOptions(base, additional service.KeyValue) service.KeyValue {
	if base == nil {
		base = service.KeyValue{}
	}
	for k, v := range additional {
		base[k] = v
	}
	return base
}

// Install installs the service.
func Install(svcConfig ServiceConfig) error {
	svc, err := NewService(svcConfig)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	status, err := svc.Status()
	if err == nil && status != service.StatusUnknown {
		return fmt.Errorf("service already installed")
	}

	if err := svc.Install(); err != nil {
		if os.IsPermission(err) {
			return &PermissionError{Err: err}
		}
		return fmt.Errorf("failed to install service: %w", err)
	}

	return nil
}

// Uninstall removes the service.
func Uninstall() error {
	svc, err := NewService(ServiceConfig{})
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	status, err := svc.Status()
	if err != nil || status == service.StatusUnknown {
		return fmt.Errorf("service not installed")
	}

	if status == service.StatusRunning {
		_ = svc.Stop()
	}

	if err := svc.Uninstall(); err != nil {
		if os.IsPermission(err) {
			return &PermissionError{Err: err}
		}
		return fmt.Errorf("failed to uninstall service: %w", err)
	}

	return nil
}

// StartService starts the installed service.
func StartService() error {
	svc, err := NewService(ServiceConfig{})
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	status, err := svc.Status()
	if err != nil {
		return fmt.Errorf("service not installed")
	}

	if status == service.StatusRunning {
		return fmt.Errorf("service already running")
	}

	if err := svc.Start(); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	return nil
}

// StopService stops the running service.
func StopService() error {
	svc, err := NewService(ServiceConfig{})
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	status, err := svc.Status()
	if err != nil {
		return fmt.Errorf("service not installed")
	}

	if status != service.StatusRunning {
		return fmt.Errorf("service not running")
	}

	if err := svc.Stop(); err != nil {
		return fmt.Errorf("failed to stop service: %w", err)
	}

	return nil
}

// RestartService restarts the service.
func RestartService() error {
	svc, err := NewService(ServiceConfig{})
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	if _, err := svc.Status(); err != nil {
		return fmt.Errorf("service not installed")
	}

	if err := svc.Restart(); err != nil {
		return fmt.Errorf("failed to restart service: %w", err)
	}

	return nil
}

// ServiceStatus is the service state plus daemon process details for the
// status command.
type ServiceStatus struct {
	State string `json:"state"`
	PID   int    `json:"pid,omitempty"`
}

// GetStatus retrieves the service status, falling back to the pidfile when
// no service is installed.
func GetStatus(cfg *config.Config) (*ServiceStatus, error) {
	svc, err := NewService(ServiceConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	status := &ServiceStatus{State: "not_installed"}

	svcStatus, err := svc.Status()
	if err == nil {
		switch svcStatus {
		case service.StatusRunning:
			status.State = "running"
		case service.StatusStopped:
			status.State = "stopped"
		default:
			status.State = "unknown"
		}
	}

	if cfg != nil {
		if pid, err := CheckPIDFile(cfg.Storage.PIDPath()); err == nil && pid > 0 {
			status.PID = pid
			if status.State == "not_installed" {
				// Running directly, not under a service manager
				status.State = "running"
			}
		}
	}

	return status, nil
}

// PermissionError indicates an operation requires elevated privileges.
type PermissionError struct {
	Err error
}

func (e *PermissionError) Error() string {
	if runtime.GOOS == "windows" {
		return "administrator privileges required"
	}
	return "permission denied (try with sudo)"
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}

// isUserServiceInstalled checks if the service plist exists in user's LaunchAgents.
func isUserServiceInstalled() bool {
	if runtime.GOOS != "darwin" {
		return false
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return false
	}
	plistPath := filepath.Join(homeDir, "Library", "LaunchAgents", "carewatchd.plist")
	_, err = os.Stat(plistPath)
	return err == nil
}
