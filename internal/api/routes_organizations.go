package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yueyuegd/sonarqube/internal/handlers"
)

func registerOrganizationRoutes(api *gin.RouterGroup, handler *handlers.OrganizationHandler) {
	orgs := api.Group("/organizations")
	{
		orgs.GET("", handler.List)
		orgs.POST("", handler.Create)
		orgs.GET("/:key", handler.Get)
		orgs.GET("/:key/members", handler.ListMembers)
		orgs.POST("/:key/members", handler.AddMember)
		orgs.DELETE("/:key/members/:login", handler.RemoveMember)
	}
}
