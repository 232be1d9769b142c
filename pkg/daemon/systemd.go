package daemon

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/activation"
	sddaemon "github.com/coreos/go-systemd/v22/daemon"
	"github.com/sirupsen/logrus"
)

// socketName is the FileDescriptorName= of the API socket in the unit.
const socketName = "api"

// listen returns the systemd-activated API listener if there is one, and
// otherwise a fresh unix socket at socketPath.
func listen(socketPath string) (l net.Listener, activated bool, err error) {
	if len(activation.Files(false)) > 0 {
		named, err := activation.ListenersWithNames()
		if err != nil {
			return nil, false, fmt.Errorf("failed to get systemd listeners: %w", err)
		}
		if lns, ok := named[socketName]; ok && len(lns) > 0 {
			return lns[0], true, nil
		}
		for _, lns := range named {
			if len(lns) > 0 && lns[0] != nil {
				return lns[0], true, nil
			}
		}
	}

	// A socket left behind by a crashed daemon would make Listen fail.
	if _, err := os.Stat(socketPath); err == nil {
		logrus.Warnf("removing stale socket %s", socketPath)
		if err := os.Remove(socketPath); err != nil {
			return nil, false, err
		}
	}

	l, err = net.Listen("unix", socketPath)
	if err != nil {
		return nil, false, err
	}
	return l, false, nil
}

func notifyReady() {
	sent, err := sddaemon.SdNotify(false, sddaemon.SdNotifyReady)
	if err != nil {
		logrus.Warnf("failed to send sd_notify ready: %v", err)
		return
	}
	if sent {
		logrus.Debug("notified systemd: ready")
	}
}

func notifyStopping() {
	if _, err := sddaemon.SdNotify(false, sddaemon.SdNotifyStopping); err != nil {
		logrus.Warnf("failed to send sd_notify stopping: %v", err)
	}
}

// runWatchdog pings the systemd watchdog at half its interval until ctx is
// done. It returns immediately when the watchdog is not enabled.
func runWatchdog(ctx context.Context) {
	interval, err := sddaemon.SdWatchdogEnabled(false)
	if err != nil {
		logrus.Warnf("failed to check systemd watchdog: %v", err)
		return
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sddaemon.SdNotify(false, sddaemon.SdNotifyWatchdog); err != nil {
				logrus.Warnf("failed to send sd_notify watchdog: %v", err)
			}
		}
	}
}
