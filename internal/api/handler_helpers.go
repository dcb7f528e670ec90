package api

import (
	"github.com/gin-gonic/gin"
	"github.com/yourname/inkjournal/internal"
	"github.com/yourname/inkjournal/internal/response"
)

func HandleError(c *gin.Context, logger internal.Logger, err error, status int, body response.ErrorBody) {
	requestID := c.GetString("request_id")
	logger.Errorw(body.Error, "request_id", requestID, "status", status, "error", err)
	c.JSON(status, body)
}

func HandleSuccess(c *gin.Context, logger internal.Logger, data interface{}) {
	requestID := c.GetString("request_id")
	logger.Infof("[request_id=%s] Success", requestID)
	c.JSON(200, data)
}
