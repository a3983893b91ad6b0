package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/docstore"

	mcpE "github.com/flarexio/docstore/mcp"
)

func AddRouters(r *gin.Engine, endpoints docstore.EndpointSet) {
	api := r.Group("/api")
	{
		api.GET("/tables", ListTablesHandler(endpoints.ListTables))
		api.POST("/tables", CreateTableHandler(endpoints.CreateTable))
		api.DELETE("/tables/:table_name", DeleteTableHandler(endpoints.DeleteTable))
		api.POST("/tables/:table_name/documents", AddDocumentHandler(endpoints.AddDocument))
		api.GET("/tables/:table_name/search", SearchHandler(endpoints.Search))
	}
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}
