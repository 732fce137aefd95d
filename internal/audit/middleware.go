package audit

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// WriteAuditMiddleware emits an audit event for every write request under
// /api/. Reads are skipped; they are too chatty to be worth recording.
func WriteAuditMiddleware(c *Client) gin.HandlerFunc {
	if c == nil {
		return func(gc *gin.Context) { gc.Next() }
	}
	return func(gc *gin.Context) {
		start := time.Now()
		gc.Next()

		path := gc.Request.URL.Path
		method := strings.ToUpper(gc.Request.Method)
		if !strings.HasPrefix(path, "/api/") {
			return
		}
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return
		}

		status := gc.Writer.Status()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		c.Emit(ctx, "http.write", method+" "+path, map[string]any{
			"method":   method,
			"path":     path,
			"status":   status,
			"duration": time.Since(start).String(),
		})
	}
}
