package daemon

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ahmmedrejowan/chargify/pkg/alarm"
	"github.com/ahmmedrejowan/chargify/pkg/config"
	"github.com/ahmmedrejowan/chargify/pkg/events"
	"github.com/ahmmedrejowan/chargify/pkg/source"
	"github.com/ahmmedrejowan/chargify/pkg/telemetry"
)

// engineOptions maps the config onto the telemetry engine.
func engineOptions(conf config.Config) telemetry.Options {
	return telemetry.Options{
		PollInterval:       conf.PollInterval(),
		EstimateWindow:     conf.EstimateWindow(),
		HistoryCapacity:    conf.HistoryCapacity(),
		MinSessionDuration: conf.MinSessionDuration(),
		Normalizer:         telemetry.Normalizer{CurrentThreshold: conf.CurrentThreshold()},
	}
}

func Run(configPath string, unixSocketPath string, allowNonRoot bool) error {
	conf, err := config.NewFile(configPath)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to parse config during startup")
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	src, err := source.Open(conf.Source(), conf.SysfsRoot())
	if err != nil {
		return pkgerrors.Wrap(err, "failed to open battery source")
	}

	store, err := openStore(conf.Storage())
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open %s session store", conf.Storage().Backend)
	}
	defer func() {
		logrus.Info("closing session store")
		if err := store.Close(); err != nil {
			logrus.Errorf("failed to close session store: %v", err)
		}
	}()

	hub := events.NewEventHub()

	evaluator, err := alarm.NewEvaluator(
		conf.Alarms(),
		alarm.NewFileState(conf.AlarmStatePath()),
		alarm.LogNotifier{Logger: logrus.StandardLogger()},
		alarm.HubNotifier{Hub: hub},
	)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to load alarm state")
	}

	engine := telemetry.NewEngine(src, store, hub, engineOptions(conf))

	s := &server{
		conf:   conf,
		engine: engine,
		store:  store,
		hub:    hub,
		alarms: evaluator,
		now:    time.Now,
	}

	// Receive SIGHUP to reload config. Only alarm settings are applied.
	// Engine, source and storage settings need a daemon restart.
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := conf.Load()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			evaluator.SetSettings(conf.Alarms())
			logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")
		}
	}()

	srv := &http.Server{
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	l, activated, err := listen(unixSocketPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to listen on %s", unixSocketPath)
	}

	if !activated && (conf.AllowNonRootAccess() || allowNonRoot) {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			_ = l.Close()
			return err
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		logrus.WithField("systemd", activated).Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine.Start(ctx)
	go runAlarms(ctx, hub, evaluator)
	go runWatchdog(ctx)

	notifyReady()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigc:
		logrus.Infof("caught signal \"%s\": shutting down.", sig)
	case err = <-serveErr:
		logrus.Errorf("http server failed: %v", err)
	}

	notifyStopping()

	logrus.Info("stopping telemetry engine")
	engine.Stop()
	cancel()

	logrus.Info("shutting down http server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	shutdownCancel()

	engine.WaitPersisted()

	logrus.Info("exiting")
	return err
}
