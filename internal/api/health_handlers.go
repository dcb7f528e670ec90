package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourname/inkjournal/internal/llm"
	"github.com/yourname/inkjournal/internal/response"
)

func GetHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, response.OK())
	}
}

// GetProviderHealth always answers 200; the body says whether the provider is reachable.
func GetProviderHealth(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		probe := app.Provider()
		if !probe.Available() {
			c.JSON(http.StatusOK, response.ProviderDown(http.StatusInternalServerError, "missing_api_key", "OpenAI API key missing"))
			return
		}
		if err := probe.Ping(c.Request.Context()); err != nil {
			app.Logger().Warnw("provider health check failed", "request_id", c.GetString("request_id"), "error", err)
			var le *llm.Error
			if errors.As(err, &le) {
				code := le.Code
				if code == "" {
					code = string(le.Kind)
				}
				c.JSON(http.StatusOK, response.ProviderDown(le.Status, code, le.Message))
				return
			}
			c.JSON(http.StatusOK, response.ProviderDown(0, "", err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.ProviderUp(probe.Model()))
	}
}
