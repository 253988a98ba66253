package controllers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"social-hub/middlewares"
	"social-hub/models"
	"social-hub/services"
	"social-hub/utils"
)

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register 用户注册
func (ctl *Controller) Register(c *gin.Context) {
	var input services.RegisterInput
	if !bindJSON(c, &input) {
		return
	}
	user, err := ctl.store.Register(c.Request.Context(), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	token, err := ctl.tokens.GenerateToken(user)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondCreated(c, authResponse{Token: token, User: user})
}

// Login 用户登录
func (ctl *Controller) Login(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &input) {
		return
	}
	user, err := ctl.store.Authenticate(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	token, err := ctl.tokens.GenerateToken(user)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ctl.log.WithField("user_id", user.ID).Info("user logged in")
	utils.RespondSuccess(c, authResponse{Token: token, User: user}, nil)
}

// GetUserInfo 当前登录用户
func (ctl *Controller) GetUserInfo(c *gin.Context) {
	user, err := ctl.store.GetUser(c.Request.Context(), middlewares.CurrentUserID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, user, nil)
}

func (ctl *Controller) UpdateProfile(c *gin.Context) {
	var patch services.ProfilePatch
	if !bindJSON(c, &patch) {
		return
	}
	user, err := ctl.store.UpdateProfile(c.Request.Context(), middlewares.CurrentUserID(c), patch)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, user, nil)
}

// GetUserProfile 公开资料，不含邮箱和钱包
func (ctl *Controller) GetUserProfile(c *gin.Context) {
	id, ok := idParam(c, "userId")
	if !ok {
		return
	}
	user, err := ctl.store.GetUser(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, user.Profile(), nil)
}

func (ctl *Controller) ToggleFollow(c *gin.Context) {
	id, ok := idParam(c, "userId")
	if !ok {
		return
	}
	res, err := ctl.store.ToggleFollow(c.Request.Context(), middlewares.CurrentUserID(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, res, nil)
}

func (ctl *Controller) Followers(c *gin.Context) {
	ctl.followList(c, ctl.store.Followers)
}

func (ctl *Controller) Following(c *gin.Context) {
	ctl.followList(c, ctl.store.Following)
}

func (ctl *Controller) followList(c *gin.Context, list func(ctx context.Context, userID uint) ([]models.UserSummary, error)) {
	id, ok := idParam(c, "userId")
	if !ok {
		return
	}
	users, err := list(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, users, nil)
}

// SearchUsers returns an empty list for an empty query.
func (ctl *Controller) SearchUsers(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		utils.RespondSuccess(c, []models.UserSummary{}, nil)
		return
	}
	users, err := ctl.store.SearchUsers(c.Request.Context(), q)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, users, nil)
}
