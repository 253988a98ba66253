package controllers

import (
	"github.com/gin-gonic/gin"

	"social-hub/middlewares"
	"social-hub/services"
	"social-hub/utils"
)

func (ctl *Controller) CreateStory(c *gin.Context) {
	var input services.StoryInput
	if !bindJSON(c, &input) {
		return
	}
	story, err := ctl.store.CreateStory(c.Request.Context(), middlewares.CurrentUserID(c), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondCreated(c, story)
}

func (ctl *Controller) ActiveStories(c *gin.Context) {
	stories, err := ctl.store.ActiveStories(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, stories, nil)
}

func (ctl *Controller) ViewStory(c *gin.Context) {
	id, ok := idParam(c, "storyId")
	if !ok {
		return
	}
	first, err := ctl.store.ViewStory(c.Request.Context(), id, middlewares.CurrentUserID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, gin.H{"firstView": first}, nil)
}
