package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Uninstall stops chargify and removes its systemd units.
func Uninstall() error {
	logrus.Infof("stopping chargify")

	err := systemctl("disable", "--now", socketName, serviceName)
	if err != nil {
		return fmt.Errorf("failed to stop chargify: %w. Are you root?", err)
	}

	logrus.Infof("removing systemd units")

	for _, name := range []string{serviceName, socketName} {
		p := filepath.Join(UnitDir, name)
		// if the file doesn't exist, we don't need to remove it
		err = os.Remove(p)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w. Are you root?", p, err)
		}
	}

	return systemctl("daemon-reload")
}
