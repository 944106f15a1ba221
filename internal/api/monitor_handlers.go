package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yeheng/monitor/internal/monitor"
	"github.com/yeheng/monitor/internal/monitorerr"
)

func (r *Router) handleCreateMonitor(c *gin.Context) {
	var m monitor.Monitor
	if err := c.ShouldBindJSON(&m); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	m.ID = uuid.New()

	if err := r.store.CreateMonitor(c.Request.Context(), &m); err != nil {
		writeError(c, err)
		return
	}
	r.refreshScheduler(c)
	writeJSON(c, http.StatusCreated, m)
}

func (r *Router) handleListMonitors(c *gin.Context) {
	monitors, err := r.store.ListMonitors(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, monitors)
}

func (r *Router) handleGetMonitor(c *gin.Context) {
	id, err := parseMonitorID(c)
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	m, err := r.store.GetMonitor(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, m)
}

func (r *Router) handleUpdateMonitor(c *gin.Context) {
	id, err := parseMonitorID(c)
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}

	existing, err := r.store.GetMonitor(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	var m monitor.Monitor
	if err := c.ShouldBindJSON(&m); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	m.ID = id
	m.CreatedAt = existing.CreatedAt

	if err := r.store.UpdateMonitor(c.Request.Context(), &m); err != nil {
		writeError(c, err)
		return
	}
	r.refreshScheduler(c)
	writeJSON(c, http.StatusOK, m)
}

func (r *Router) handleDeleteMonitor(c *gin.Context) {
	id, err := parseMonitorID(c)
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	if err := r.store.DeleteMonitor(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	r.refreshScheduler(c)
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleListResults(c *gin.Context) {
	id, err := parseMonitorID(c)
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	results, err := r.store.ListResults(c.Request.Context(), id, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, results)
}

func parseMonitorID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.UUID{}, monitorerr.Wrap(monitorerr.KindValidation, "invalid monitor id", err)
	}
	return id, nil
}

// refreshScheduler makes the write take effect immediately; the scheduler
// does not poll the store on its own. Scheduler is optional: a bare API deployment
// (no in-process dispatcher) simply skips this.
func (r *Router) refreshScheduler(c *gin.Context) {
	if r.scheduler == nil {
		return
	}
	if err := r.scheduler.Refresh(c.Request.Context()); err != nil {
		r.logger.Error("refreshing scheduler after monitor write failed", "error", err)
	}
}
