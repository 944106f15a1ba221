package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeheng/monitor/internal/monitorerr"
)

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func writeJSON(c *gin.Context, code int, v any) {
	c.Header("Content-Type", "application/json")
	c.Status(code)
	_ = json.NewEncoder(c.Writer).Encode(v)
}

// writeError maps a monitorerr.Error to its HTTP status; any other error
// is treated as an internal failure.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var me *monitorerr.Error
	if errors.As(err, &me) {
		status = me.Kind.HTTPStatus()
	}
	writeJSON(c, status, errorResp{Error: err.Error()})
}

// sanitizeBase normalizes a mount prefix: "" and "/" both mean the API
// is mounted at the server root, otherwise it is forced to start with
// '/' and never ends with one.
func sanitizeBase(bp string) string {
	bp = strings.TrimSpace(bp)
	if bp == "" || bp == "/" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	return strings.TrimRight(bp, "/")
}
