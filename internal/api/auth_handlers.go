package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeheng/monitor/internal/auth"
)

// handleLogin authenticates an operator with username/password or a
// bearer token and, on success, returns a fresh JWT (spec ambient auth
// surface; grounded on the teacher's internal/server/auth_handlers.go).
func (r *Router) handleLogin(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	if req.Method == "" {
		req.Method = auth.AuthMethodBasic
	}

	result, err := r.authService.Authenticate(c.Request.Context(), req)
	if err != nil || !result.Success {
		writeJSON(c, http.StatusUnauthorized, errorResp{Error: "invalid credentials"})
		return
	}
	writeJSON(c, http.StatusOK, result)
}
