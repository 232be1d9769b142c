package daemon

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ahmmedrejowan/chargify/pkg/alarm"
	"github.com/ahmmedrejowan/chargify/pkg/config"
	"github.com/ahmmedrejowan/chargify/pkg/events"
	"github.com/ahmmedrejowan/chargify/pkg/metrics"
	"github.com/ahmmedrejowan/chargify/pkg/storage"
	"github.com/ahmmedrejowan/chargify/pkg/telemetry"
)

// server holds everything the HTTP handlers need.
type server struct {
	conf   config.Config
	engine *telemetry.Engine
	store  storage.SessionStore
	hub    *events.EventHub
	alarms *alarm.Evaluator
	now    func() time.Time
}

func (s *server) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))

	router.GET("/version", getVersion)
	router.GET("/config", s.getConfig)
	router.GET("/state", s.getState)
	router.GET("/history", s.getHistory)
	router.GET("/history/:metric", s.getHistoryMetric)
	router.GET("/session", s.getSession)
	router.GET("/sessions", s.getSessions)
	router.DELETE("/sessions", s.clearSessions)
	router.DELETE("/sessions/:id", s.deleteSession)
	router.GET("/alarms", s.getAlarms)
	router.PUT("/alarms", s.setAlarms)
	router.GET("/events", s.streamEvents)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return router
}
