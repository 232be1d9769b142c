package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// systemctl runs systemctl with args. Replaced in tests.
var systemctl = func(args ...string) error {
	out, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %v: %w: %s", args, err, out)
	}
	return nil
}

// Install writes the systemd units for the current executable and starts
// the socket. The service is started on the first connection.
func Install(configPath, socketPath string, allowNonRootAccess bool) error {
	// Get the path to the current executable
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	err = os.Chmod(exePath, 0755)
	if err != nil {
		return fmt.Errorf("failed to chmod the current executable to 0755: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	return installUnits(UnitOptions{
		ExePath:            exePath,
		ConfigPath:         configPath,
		SocketPath:         socketPath,
		AllowNonRootAccess: allowNonRootAccess,
	})
}

func installUnits(opts UnitOptions) error {
	service, socket, err := RenderUnits(opts)
	if err != nil {
		return fmt.Errorf("failed to render units: %w", err)
	}

	logrus.Infof("writing systemd units to %s", UnitDir)

	// mkdir -p
	err = os.MkdirAll(UnitDir, 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", UnitDir, err)
	}

	units := []struct {
		name string
		data []byte
	}{
		{serviceName, service},
		{socketName, socket},
	}
	for _, u := range units {
		p := filepath.Join(UnitDir, u.name)
		// warn if the file already exists
		if _, err := os.Stat(p); err == nil {
			logrus.Warnf("%s already exists, overwriting", p)
		}
		if err := os.WriteFile(p, u.data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", p, err)
		}
	}

	logrus.Infof("starting chargify")

	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	// The running service keeps its old listener, restart it if present.
	if err := systemctl("enable", "--now", socketName); err != nil {
		return err
	}
	if err := systemctl("try-restart", serviceName); err != nil {
		return err
	}

	return nil
}
