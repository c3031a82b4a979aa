package controllers

import (
	"net/http"

	"github.com/cloudpharmacy/cloudstore/dto"
	"github.com/cloudpharmacy/cloudstore/services"
	"github.com/gin-gonic/gin"
)

func (a *App) Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.LoginDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			a.writeError(c, services.NewValidationError("", "email and password are required"))
			return
		}

		token, _, err := a.Auth.Login(c.Request.Context(), body.Email, body.Password)
		if err != nil {
			a.writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"token":   token,
		})
	}
}
