package server

import (
	"net/http"

	"bac-tracker/internal/handlers"
	"bac-tracker/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
)

type Deps struct {
	SessionSecret string
	Handlers      *handlers.Handlers
	Users         middleware.UserLookup
	Offices       middleware.OfficeResolver
	Logger        hclog.Logger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	log := d.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}

	store := cookie.NewStore([]byte(d.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   8 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("bac_session", store))
	r.Use(middleware.RequestID(log.Named("http")))
	r.Use(middleware.InjectActor(d.Users, d.Offices))

	h := d.Handlers

	// AUTH
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)

	auth := r.Group("/")
	auth.Use(middleware.RequireAuth())

	// ОТДЕЛЫ
	auth.GET("/offices", h.ListOffices)

	// ПРОЕКТЫ
	auth.GET("/projects", h.ListProjects)
	auth.POST("/projects", h.CreateProject)
	auth.GET("/projects/:id", h.ShowProject)
	auth.POST("/projects/:id/stages", h.SubmitStage)
	auth.PUT("/projects/:id/header", h.UpdateHeader)
	auth.GET("/projects/:id/history", h.ShowProjectHistory)

	// HEALTHCHECK
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return r
}
