package server

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/meetapp/meet-backend/internal/config"
)

// Router groups the route surfaces registrars attach to: Public for
// unauthenticated endpoints, API for the authenticated /api group, Admin for
// the /api/admin group.
type Router struct {
	Engine *gin.Engine
	Public *gin.RouterGroup
	API    *gin.RouterGroup
	Admin  *gin.RouterGroup
}

// Registrar is a common interface for all HTTP service registrars
type Registrar interface {
	Register(rt *Router)
}

// NewRouter builds the gin engine with recovery and the auth middleware
// chain applied to the API and admin groups.
func NewRouter(cfg *config.Config) *Router {
	if cfg.App.ENV != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), RequestLogger())

	public := engine.Group("")
	api := engine.Group("/api", AuthRequired(cfg))
	admin := api.Group("/admin", AdminRequired())

	return &Router{
		Engine: engine,
		Public: public,
		API:    api,
		Admin:  admin,
	}
}

// StartHTTPServer registers all provided services and serves the API.
func StartHTTPServer(cfg *config.Config, rt *Router, registrars ...Registrar) error {
	for _, r := range registrars {
		r.Register(rt)
	}

	addr := fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)
	if err := rt.Engine.Run(addr); err != nil {
		return fmt.Errorf("http server stopped: %w", err)
	}
	return nil
}
