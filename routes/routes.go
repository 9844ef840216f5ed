// Package routes assembles the Gin engine for the admin API.
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mabletask/admin/handlers"
	"mabletask/admin/middleware"
	"mabletask/admin/utils"
)

type Deps struct {
	Auth     *handlers.AuthHandlers
	Events   *handlers.EventHandlers
	Products *handlers.ProductHandlers

	Issuer      *utils.TokenIssuer
	APIKey      string
	Origin      string
	AuthLimiter *middleware.RateLimiter
	Logger      *zap.Logger
}

// NewRouter wires every endpoint. Product ids contain slashes, so routing
// runs on the escaped path and clients must path-escape the id segment.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.UseRawPath = true
	r.UnescapePathValues = true

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.CORSMiddleware(d.Origin))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/signup", d.AuthLimiter.Middleware(), d.Auth.Signup)
		auth.POST("/signin", d.AuthLimiter.Middleware(), d.Auth.Signin)
		auth.POST("/signout", d.Auth.Signout)
	}

	api.GET("/events", d.Events.ListEvents)
	api.GET("/dashboard/events", d.Events.Dashboard)

	protected := api.Group("/")
	protected.Use(middleware.AuthRequired(d.Issuer, d.APIKey, d.Logger))
	{
		protected.POST("/events", d.Events.TrackEvent)
		protected.GET("/profile", d.Auth.Profile)

		stats := protected.Group("/stats")
		{
			stats.GET("/event-counts", d.Events.GetEventCountsOverTime)
			stats.GET("/unique-users", d.Events.GetUniqueUsersOverTime)
		}

		products := protected.Group("/products")
		{
			products.GET("", d.Products.List)
			products.POST("", d.Products.Create)
			products.GET("/:id", d.Products.Get)
			products.PUT("/:id", d.Products.Update)
			products.DELETE("/:id", d.Products.Delete)
		}
	}

	return r
}
