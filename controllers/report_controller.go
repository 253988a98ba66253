package controllers

import (
	"github.com/gin-gonic/gin"

	"social-hub/middlewares"
	"social-hub/services"
	"social-hub/utils"
)

func (ctl *Controller) CreateReport(c *gin.Context) {
	var input services.ReportInput
	if !bindJSON(c, &input) {
		return
	}
	report, err := ctl.store.CreateReport(c.Request.Context(), middlewares.CurrentUserID(c), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondCreated(c, report)
}
