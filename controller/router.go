package controller

import (
	"github.com/gin-gonic/gin"
)

const Version = "1.0.0"

// NewRouter wires the API routes onto a gin engine.
func NewRouter(c *RAGController) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "pdfrag",
			"version": Version,
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/query", c.QueryRAG)
		apiV1.GET("/documents", c.ListDocuments)
		apiV1.POST("/documents", c.IngestDocument)
		apiV1.GET("/annotated/:name", c.DownloadAnnotated)
	}
	return router
}
