package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"social-hub/services"
	"social-hub/utils"
)

// Controller holds the dependencies of every REST handler.
type Controller struct {
	store  *services.Store
	tokens *services.TokenIssuer
	hub    *services.Hub
	log    *logrus.Logger
}

func New(store *services.Store, tokens *services.TokenIssuer, hub *services.Hub, log *logrus.Logger) *Controller {
	return &Controller{store: store, tokens: tokens, hub: hub, log: log}
}

// idParam parses a positive numeric path parameter, answering 400 otherwise.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// pageParams reads limit/offset; the store clamps them.
func pageParams(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return limit, offset
}

func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		utils.RespondBadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}
