package controllers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/cloudpharmacy/cloudstore/dto"
	"github.com/cloudpharmacy/cloudstore/services"
	"github.com/cloudpharmacy/cloudstore/utils"
	"github.com/gin-gonic/gin"
)

func (a *App) AddProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		in, photo, err := a.readProductForm(c)
		if err != nil {
			a.writeError(c, err)
			return
		}

		product, err := a.Catalog.Create(c.Request.Context(), in, photo)
		if err != nil {
			a.writeError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Product Created Successfully",
			"product": product,
		})
	}
}

func (a *App) GetProducts() gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := a.Catalog.List(c.Request.Context())
		if err != nil {
			a.writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"message":     "All Products",
			"numproducts": len(products),
			"products":    products,
		})
	}
}

func (a *App) GetProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := a.Catalog.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			a.writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Single Product Fetched",
			"product": product,
		})
	}
}

// ProductPhoto streams the stored photo with its stored content type.
func (a *App) ProductPhoto() gin.HandlerFunc {
	return func(c *gin.Context) {
		blob, err := a.Catalog.Photo(c.Request.Context(), c.Param("id"))
		if err != nil {
			a.writeError(c, err)
			return
		}

		c.Header("Cache-Control", "public, max-age=86400")
		c.Data(http.StatusOK, blob.ContentType, blob.Data)
	}
}

func (a *App) UpdateProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		in, photo, err := a.readProductForm(c)
		if err != nil {
			a.writeError(c, err)
			return
		}

		product, err := a.Catalog.Update(c.Request.Context(), c.Param("id"), in, photo)
		if err != nil {
			a.writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Product Updated Successfully",
			"product": product,
		})
	}
}

func (a *App) DeleteProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.Catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
			a.writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Product Deleted successfully",
		})
	}
}

func (a *App) FilterProducts() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ProductFilterDTO
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			a.writeError(c, services.NewValidationError("", "invalid filter body"))
			return
		}

		products, err := a.Catalog.Filter(c.Request.Context(), services.ProductFilter{
			CategoryIDs: body.Checked,
			PriceRange:  body.Radio,
		})
		if err != nil {
			a.writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"products": products,
		})
	}
}

func (a *App) ProductCount() gin.HandlerFunc {
	return func(c *gin.Context) {
		total, err := a.Catalog.Count(c.Request.Context())
		if err != nil {
			a.writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"total":   total,
		})
	}
}

// ProductList serves one page of the newest products. Non-numeric pages
// fall back to page 1.
func (a *App) ProductList() gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParseIntDefault(strings.TrimSpace(c.Param("page")), 1)

		products, err := a.Catalog.ListPage(c.Request.Context(), page)
		if err != nil {
			a.writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"products": products,
		})
	}
}

// SearchProducts answers with a bare JSON array.
func (a *App) SearchProducts() gin.HandlerFunc {
	return func(c *gin.Context) {
		keyword := c.Param("keyword")
		if keyword == "" {
			keyword = c.Query("q")
		}

		products, err := a.Catalog.Search(c.Request.Context(), keyword)
		if err != nil {
			a.writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, products)
	}
}

func (a *App) RelatedProducts() gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := a.Catalog.Related(c.Request.Context(), c.Param("pid"), c.Param("cid"))
		if err != nil {
			a.writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"message":  "Related products fetched",
			"products": products,
		})
	}
}

func (a *App) ProductsByCategory() gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := a.Catalog.ByCategory(c.Request.Context(), c.Param("id"))
		if err != nil {
			a.writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"message":  "Products by category fetched",
			"products": products,
		})
	}
}
