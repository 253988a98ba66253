package controllers

import (
	"github.com/gin-gonic/gin"

	"social-hub/middlewares"
	"social-hub/services"
	"social-hub/utils"
)

func (ctl *Controller) CreateProduct(c *gin.Context) {
	var input services.ProductInput
	if !bindJSON(c, &input) {
		return
	}
	product, err := ctl.store.CreateProduct(c.Request.Context(), middlewares.CurrentUserID(c), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondCreated(c, product)
}

func (ctl *Controller) Products(c *gin.Context) {
	limit, offset := pageParams(c)
	products, err := ctl.store.Products(c.Request.Context(), c.Query("category"), limit, offset)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, products, gin.H{"limit": limit, "offset": offset})
}

func (ctl *Controller) UserProducts(c *gin.Context) {
	id, ok := idParam(c, "userId")
	if !ok {
		return
	}
	products, err := ctl.store.UserProducts(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, products, nil)
}

func (ctl *Controller) GetProduct(c *gin.Context) {
	id, ok := idParam(c, "productId")
	if !ok {
		return
	}
	product, err := ctl.store.ViewProduct(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, product, nil)
}

func (ctl *Controller) MarkProductSold(c *gin.Context) {
	id, ok := idParam(c, "productId")
	if !ok {
		return
	}
	product, err := ctl.store.MarkProductSold(c.Request.Context(), middlewares.CurrentUserID(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, product, nil)
}
