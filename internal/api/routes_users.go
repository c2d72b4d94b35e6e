package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yueyuegd/sonarqube/internal/handlers"
)

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler) {
	users := api.Group("/users")
	{
		users.POST("", handler.Create)
		users.GET("/:login", handler.Get)
		users.POST("/:login/deactivate", handler.Deactivate)
	}
}
