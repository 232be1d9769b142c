package daemon

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ahmmedrejowan/chargify/pkg/config"
	"github.com/ahmmedrejowan/chargify/pkg/storage"
	"github.com/ahmmedrejowan/chargify/pkg/telemetry"
	"github.com/ahmmedrejowan/chargify/pkg/version"
)

func abort(c *gin.Context, code int, err error) {
	c.IndentedJSON(code, err.Error())
	_ = c.AbortWithError(code, err)
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

func (s *server) getConfig(c *gin.Context) {
	fc, err := config.Effective(s.conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func (s *server) getState(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.engine.State())
}

func (s *server) getHistory(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.engine.Histories())
}

func (s *server) getHistoryMetric(c *gin.Context) {
	m, ok := telemetry.ParseMetric(c.Param("metric"))
	if !ok {
		abort(c, http.StatusNotFound, fmt.Errorf("unknown metric %q, expected one of %v", c.Param("metric"), telemetry.Metrics))
		return
	}
	c.IndentedJSON(http.StatusOK, s.engine.History(m))
}

func (s *server) getSession(c *gin.Context) {
	stats, ok := s.engine.Session()
	if !ok {
		abort(c, http.StatusNotFound, errors.New("no battery reading yet"))
		return
	}
	c.IndentedJSON(http.StatusOK, stats.Summary(s.now()))
}

// getSessions serves stored sessions, newest first. today=true limits them
// to sessions started since local midnight; limit caps the count.
func (s *server) getSessions(c *gin.Context) {
	limit := -1
	if v := c.Query("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 0 {
			abort(c, http.StatusBadRequest, fmt.Errorf("limit must be a non-negative integer, got %q", v))
			return
		}
		limit = l
	}

	today := false
	if v := c.Query("today"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			abort(c, http.StatusBadRequest, fmt.Errorf("today must be a boolean, got %q", v))
			return
		}
		today = b
	}

	ctx := c.Request.Context()
	var (
		sessions []storage.ChargingSession
		err      error
	)
	switch {
	case today:
		sessions, err = s.store.QuerySince(ctx, startOfDay(s.now()))
		if err == nil && limit >= 0 && len(sessions) > limit {
			sessions = sessions[:limit]
		}
	case limit >= 0:
		sessions, err = s.store.QueryRecent(ctx, limit)
	default:
		sessions, err = s.store.QueryAll(ctx)
	}
	if err != nil {
		logrus.Errorf("getSessions failed: %v", err)
		abort(c, http.StatusInternalServerError, err)
		return
	}
	if sessions == nil {
		sessions = []storage.ChargingSession{}
	}

	c.IndentedJSON(http.StatusOK, sessions)
}

func (s *server) clearSessions(c *gin.Context) {
	if err := s.store.ClearAll(c.Request.Context()); err != nil {
		logrus.Errorf("clearSessions failed: %v", err)
		abort(c, http.StatusInternalServerError, err)
		return
	}

	logrus.Infof("cleared all charging sessions")
	c.IndentedJSON(http.StatusOK, "cleared all charging sessions")
}

func (s *server) deleteSession(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abort(c, http.StatusBadRequest, fmt.Errorf("invalid session id %q", c.Param("id")))
		return
	}

	err = s.store.DeleteByID(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		abort(c, http.StatusNotFound, fmt.Errorf("session %d not found", id))
		return
	}
	if err != nil {
		logrus.Errorf("deleteSession failed: %v", err)
		abort(c, http.StatusInternalServerError, err)
		return
	}

	logrus.Infof("deleted charging session %d", id)
	c.IndentedJSON(http.StatusOK, fmt.Sprintf("deleted session %d", id))
}

func (s *server) getAlarms(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.alarms.Settings())
}

// setAlarms merges the request body over the current settings, so a
// partial document only changes the keys it names.
func (s *server) setAlarms(c *gin.Context) {
	settings := s.alarms.Settings()
	if err := c.BindJSON(&settings); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if err := s.conf.SetAlarms(settings); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if err := s.conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		abort(c, http.StatusInternalServerError, err)
		return
	}
	s.alarms.SetSettings(settings)

	logrus.WithField("alarms", settings).Infof("updated alarm settings")
	c.IndentedJSON(http.StatusCreated, settings)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
