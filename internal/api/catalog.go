package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"cafe/internal/models"
)

type categoryRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required"`
}

type menuItemRequest struct {
	CategoryID  uint                `json:"category_id" binding:"required"`
	Name        string              `json:"name" binding:"required"`
	Slug        string              `json:"slug" binding:"required"`
	Weight      decimal.NullDecimal `json:"weight"`
	Capacity    decimal.NullDecimal `json:"capacity"`
	Price       decimal.Decimal     `json:"price"`
	Description *string             `json:"description"`
	Image       *string             `json:"image"`
}

func (r menuItemRequest) model() models.MenuItem {
	return models.MenuItem{
		CategoryID:  r.CategoryID,
		Name:        r.Name,
		Slug:        r.Slug,
		Weight:      r.Weight,
		Capacity:    r.Capacity,
		Price:       r.Price,
		Description: r.Description,
		Image:       r.Image,
	}
}

// Catalog handlers

func (a *CafeAPI) ListCategories(c *gin.Context) {
	categories, err := a.catalog.ListCategories(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (a *CafeAPI) ListMenu(c *gin.Context) {
	categoryID, err := pathID(c)
	if err != nil {
		a.badRequest(c, err)
		return
	}
	items, err := a.catalog.ListMenu(c.Request.Context(), categoryID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (a *CafeAPI) SortMenu(c *gin.Context) {
	categoryID, err := pathID(c)
	if err != nil {
		a.badRequest(c, err)
		return
	}
	items, err := a.catalog.SortMenu(c.Request.Context(), categoryID, c.DefaultQuery("sort", "asc"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (a *CafeAPI) SearchMenu(c *gin.Context) {
	categoryID, err := pathID(c)
	if err != nil {
		a.badRequest(c, err)
		return
	}
	items, err := a.catalog.SearchMenu(c.Request.Context(), categoryID, c.Query("search"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (a *CafeAPI) CreateMenuItem(c *gin.Context) {
	var req menuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}
	item, err := a.catalog.CreateMenuItem(c.Request.Context(), req.model())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (a *CafeAPI) UpdateMenuItem(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		a.badRequest(c, err)
		return
	}
	var req menuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}
	item, err := a.catalog.UpdateMenuItem(c.Request.Context(), id, req.model())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (a *CafeAPI) DeleteMenuItem(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		a.badRequest(c, err)
		return
	}
	if err := a.catalog.DeleteMenuItem(c.Request.Context(), id); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "menu item deleted"})
}

func (a *CafeAPI) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}
	category, err := a.catalog.CreateCategory(c.Request.Context(), models.Category{Name: req.Name, Slug: req.Slug})
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (a *CafeAPI) DeleteCategory(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		a.badRequest(c, err)
		return
	}
	if err := a.catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "category deleted"})
}
