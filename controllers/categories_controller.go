package controllers

import (
	"net/http"

	"github.com/cloudpharmacy/cloudstore/dto"
	"github.com/cloudpharmacy/cloudstore/services"
	"github.com/gin-gonic/gin"
)

func (a *App) AddCategory() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.CreateCategoryDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			a.writeError(c, services.NewValidationError("name", "Name is required"))
			return
		}

		cat, err := a.Categories.Create(c.Request.Context(), body.Name, body.Slug)
		if err != nil {
			a.writeError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success":  true,
			"message":  "new category created",
			"category": cat,
		})
	}
}

func (a *App) GetCategories() gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := a.Categories.List(c.Request.Context())
		if err != nil {
			a.writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"message":    "All Categories List",
			"categories": items,
		})
	}
}

func (a *App) GetCategory() gin.HandlerFunc {
	return func(c *gin.Context) {
		cat, err := a.Categories.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			a.writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"message":  "Get Single Category Successfully",
			"category": cat,
		})
	}
}

func (a *App) UpdateCategory() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.UpdateCategoryDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			a.writeError(c, services.NewValidationError("", "invalid request body"))
			return
		}

		cat, err := a.Categories.Update(c.Request.Context(), c.Param("id"), body.Name, body.Slug)
		if err != nil {
			a.writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"message":  "Category Updated Successfully",
			"category": cat,
		})
	}
}

func (a *App) DeleteCategory() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.Categories.Delete(c.Request.Context(), c.Param("id")); err != nil {
			a.writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Category Deleted Successfully",
		})
	}
}
