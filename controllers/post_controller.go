package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"social-hub/middlewares"
	"social-hub/models"
	"social-hub/services"
	"social-hub/utils"
)

func (ctl *Controller) CreatePost(c *gin.Context) {
	var input services.MediaInput
	if !bindJSON(c, &input) {
		return
	}
	post, err := ctl.store.CreatePost(c.Request.Context(), middlewares.CurrentUserID(c), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondCreated(c, post)
}

// Feed 首页动态
func (ctl *Controller) Feed(c *gin.Context) {
	limit, offset := pageParams(c)
	posts, err := ctl.store.FeedPosts(c.Request.Context(), limit, offset)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, posts, gin.H{"limit": limit, "offset": offset})
}

func (ctl *Controller) UserPosts(c *gin.Context) {
	id, ok := idParam(c, "userId")
	if !ok {
		return
	}
	limit, offset := pageParams(c)
	posts, err := ctl.store.UserPosts(c.Request.Context(), id, limit, offset)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, posts, nil)
}

func (ctl *Controller) DeletePost(c *gin.Context) {
	id, ok := idParam(c, "postId")
	if !ok {
		return
	}
	if err := ctl.store.DeletePost(c.Request.Context(), middlewares.CurrentUserID(c), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, gin.H{"deleted": true}, nil)
}

func (ctl *Controller) TogglePostLike(c *gin.Context) {
	id, ok := idParam(c, "postId")
	if !ok {
		return
	}
	res, err := ctl.store.TogglePostLike(c.Request.Context(), middlewares.CurrentUserID(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, res, nil)
}

func (ctl *Controller) ToggleCommentLike(c *gin.Context) {
	id, ok := idParam(c, "commentId")
	if !ok {
		return
	}
	res, err := ctl.store.ToggleCommentLike(c.Request.Context(), middlewares.CurrentUserID(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, res, nil)
}

func (ctl *Controller) CreateComment(c *gin.Context) {
	id, ok := idParam(c, "postId")
	if !ok {
		return
	}
	var input struct {
		Content string `json:"content" binding:"required"`
	}
	if !bindJSON(c, &input) {
		return
	}
	comment, err := ctl.store.CreateComment(c.Request.Context(), middlewares.CurrentUserID(c), id, input.Content)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondCreated(c, comment)
}

func (ctl *Controller) PostComments(c *gin.Context) {
	id, ok := idParam(c, "postId")
	if !ok {
		return
	}
	comments, err := ctl.store.PostComments(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, comments, nil)
}

func (ctl *Controller) SearchPosts(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		utils.RespondSuccess(c, []models.Post{}, nil)
		return
	}
	posts, err := ctl.store.SearchPosts(c.Request.Context(), q)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, posts, nil)
}
