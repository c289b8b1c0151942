package interceptor

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	"github.com/multiversx/mx-chain-core-go/core/check"
)

const apiComponent = "api"

// GinMiddleware records every request duration and status code, and turns handler panics into recorded
// errors answered with 500
func GinMiddleware(recorder APIRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		endpoint := c.FullPath()
		if len(endpoint) == 0 {
			endpoint = c.Request.URL.Path
		}

		defer func() {
			value := recover()
			if value != nil {
				recordPanic(recorder, value, debug.Stack(), common.ErrorContext{
					Component: apiComponent,
					URL:       endpoint,
					Extra: map[string]interface{}{
						"method": c.Request.Method,
					},
				})
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}

			if check.IfNil(recorder) {
				return
			}
			recorder.TrackAPIPerformance(endpoint, c.Request.Method, c.Writer.Status(), time.Since(start))

			for _, ginErr := range c.Errors {
				recorder.TrackError(common.NewErrorInfo(ginErr.Err), common.ErrorContext{
					Component: apiComponent,
					Action:    "handler_error",
					URL:       endpoint,
					Extra: map[string]interface{}{
						"method": c.Request.Method,
						"status": fmt.Sprint(c.Writer.Status()),
					},
				}, common.ErrorTypeAPI, "")
			}
		}()

		c.Next()
	}
}
