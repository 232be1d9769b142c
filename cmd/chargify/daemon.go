package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ahmmedrejowan/chargify/pkg/daemon"
	"github.com/ahmmedrejowan/chargify/pkg/version"
)

var (
	// alwaysAllowNonRootAccess indicates whether to always allow non-root users to access the chargify daemon.
	alwaysAllowNonRootAccess = false
)

// NewDaemonCommand .
func NewDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "daemon",
		Hidden:  true,
		Short:   "Run chargify daemon in the foreground",
		GroupID: gAdvanced,
		Long: `Run chargify daemon in the foreground.

Normally systemd starts the daemon through chargify.socket (see 'chargify install').
Run it by hand to debug a battery source, e.g. with --log-level debug.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version":      version.Version,
				"commit":       version.GitCommit,
				"config":       configPath,
				"socket":       unixSocketPath,
				"allowNonRoot": alwaysAllowNonRootAccess,
				"pid":          os.Getpid(),
			}).Info("chargify daemon starting")
			if os.Geteuid() != 0 {
				logrus.Warn("not running as root, the default socket, state and session paths may not be writable")
			}
			return daemon.Run(configPath, unixSocketPath, alwaysAllowNonRootAccess)
		},
	}

	f := cmd.Flags()

	f.BoolVar(&alwaysAllowNonRootAccess, "always-allow-non-root-access", false,
		"Always allow non-root users to access the daemon.")

	return cmd
}
