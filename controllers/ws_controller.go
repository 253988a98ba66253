package controllers

import (
	"github.com/gin-gonic/gin"
)

// WSController hands the request to the hub; it returns when the socket closes.
func (ctl *Controller) WSController(c *gin.Context) {
	ctl.hub.ServeWS(c.Writer, c.Request)
}
