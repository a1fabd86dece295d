// Package router assembles the gin.Engine from an App: shared middleware,
// health/readiness endpoints, and each registered Module's routes.
package router

import (
	"net/http"

	movinghttp "movingintake/internal/http"
	"movingintake/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// New builds the gin.Engine for app.
func New(app *movinghttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(cors(app.Config))

	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/api/ready", func(c *gin.Context) {
		if app.Health == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
		if err := app.Health.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	v1 := engine.Group("/api/v1")
	admin := v1.Group("/admin")
	admin.Use(httpkit.AuthRequired(app.Config), httpkit.RequireRole("admin"))

	rc := &movinghttp.RouterContext{
		Engine:    engine,
		V1:        v1,
		Protected: v1.Group(""),
		Admin:     admin,
		Config:    app.Config,
	}
	rc.Protected.Use(httpkit.AuthRequired(app.Config))

	for _, mod := range app.Modules {
		mod.RegisterRoutes(rc)
	}

	return engine
}

func cors(cfg movinghttp.RouterConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case cfg.GetCORSAllowAll():
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && containsOrigin(cfg.GetCORSOrigins(), origin):
			c.Header("Access-Control-Allow-Origin", origin)
			if cfg.GetCORSAllowCreds() {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func containsOrigin(origins []string, origin string) bool {
	for _, o := range origins {
		if o == origin {
			return true
		}
	}
	return false
}
