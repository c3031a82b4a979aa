package controllers

import (
	"net/http"

	"github.com/cloudpharmacy/cloudstore/middleware"
	"github.com/cloudpharmacy/cloudstore/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// App holds the services the HTTP handlers delegate to.
type App struct {
	Catalog    *services.CatalogService
	Categories *services.CategoryService
	Auth       *services.AuthService
	Logger     *zap.Logger
}

func NewApp(catalog *services.CatalogService, categories *services.CategoryService, auth *services.AuthService, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{Catalog: catalog, Categories: categories, Auth: auth, Logger: logger}
}

// RegisterRoutes mounts every route under prefix. Writes require an admin
// bearer token signed with secret.
func RegisterRoutes(r *gin.Engine, app *App, prefix, secret string) {
	r.GET("/ping", Ping())

	api := r.Group(prefix)
	api.GET("/ping", Ping())
	api.POST("/auth/login", app.Login())

	api.GET("/products", app.GetProducts())
	api.GET("/products/count", app.ProductCount())
	api.GET("/products/page/:page", app.ProductList())
	api.GET("/products/search", app.SearchProducts())
	api.GET("/products/search/:keyword", app.SearchProducts())
	api.GET("/products/related/:pid/:cid", app.RelatedProducts())
	api.GET("/products/category/:id", app.ProductsByCategory())
	api.POST("/products/filter", app.FilterProducts())
	api.GET("/products/:id", app.GetProduct())
	api.GET("/products/:id/photo", app.ProductPhoto())

	api.GET("/categories", app.GetCategories())
	api.GET("/categories/:id", app.GetCategory())

	admin := api.Group("")
	admin.Use(middleware.AuthMiddleware(secret), middleware.RequireAdmin())
	{
		admin.POST("/products", app.AddProduct())
		admin.PUT("/products/:id", app.UpdateProduct())
		admin.DELETE("/products/:id", app.DeleteProduct())

		admin.POST("/categories", app.AddCategory())
		admin.PUT("/categories/:id", app.UpdateCategory())
		admin.DELETE("/categories/:id", app.DeleteCategory())
	}
}

func Ping() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	}
}
