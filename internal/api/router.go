package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/yueyuegd/sonarqube/internal/app"
	"github.com/yueyuegd/sonarqube/internal/handlers"
	"github.com/yueyuegd/sonarqube/internal/middleware"
	"github.com/yueyuegd/sonarqube/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(db *gorm.DB, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	registerHealthRoutes(r, db)

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	flags := services.StaticFlags{PersonalOrganizations: cfg.Features.Organizations.Personal}

	orgHandler, err := handlers.NewOrganizationHandler(db, flags)
	if err != nil {
		return nil, err
	}
	userHandler, err := handlers.NewUserHandler(db, flags)
	if err != nil {
		return nil, err
	}

	api := r.Group("/api")
	registerOrganizationRoutes(api, orgHandler)
	registerUserRoutes(api, userHandler)

	return r, nil
}
