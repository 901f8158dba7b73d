// Package webserver exposes the verification pipeline over HTTP.
package webserver

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tradesafe/tradeverify/src/cache"
	"github.com/tradesafe/tradeverify/src/verification"
)

func New(runner Runner, store verification.Store, records *cache.Records) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, runner, store, records)
	return g
}

func attachRoutes(r *gin.Engine, runner Runner, store verification.Store, records *cache.Records) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	verH := NewVerifications(runner, store, records)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/verifications", verH.Create)
		v1.GET("/verifications/:id", verH.Get)
	}
}
