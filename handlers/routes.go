package handlers

import (
	"github.com/gin-gonic/gin"
)

// NewRouter wires the API routes onto a gin engine.
func NewRouter(h *APIHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(h.Logger))

	api := router.Group("/api")
	{
		api.POST("/chat", h.Chat)

		api.GET("/students", h.GetStudents)
		api.GET("/students/listing", h.GetListing)
		api.GET("/students/search", h.SearchStudents)
		api.POST("/students", h.AddStudent)

		api.POST("/import/students", h.ImportStudents)
		api.GET("/export/students", h.ExportStudents)

		api.GET("/ping", PingHandler)
	}
	return router
}
