package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"

	"github.com/flarexio/docstore"
)

func CreateTableHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req docstore.CreateTableRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			abort(c, http.StatusBadRequest, err)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, http.StatusExpectationFailed, err)
			return
		}

		result, ok := resp.(docstore.Result)
		if !ok {
			abort(c, http.StatusInternalServerError, errors.New("invalid response type"))
			return
		}

		c.JSON(http.StatusOK, docstore.CreateTableReport(result))
	}
}

func AddDocumentHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req docstore.AddDocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		req.TableName = c.Param("table_name")

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, http.StatusExpectationFailed, err)
			return
		}

		result, ok := resp.(docstore.Result)
		if !ok {
			abort(c, http.StatusInternalServerError, errors.New("invalid response type"))
			return
		}

		c.JSON(http.StatusOK, docstore.AddDocumentReport(result))
	}
}

func SearchHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req docstore.SearchRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}

		req.TableName = c.Param("table_name")

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, http.StatusExpectationFailed, err)
			return
		}

		result, ok := resp.(docstore.Result)
		if !ok {
			abort(c, http.StatusInternalServerError, errors.New("invalid response type"))
			return
		}

		c.JSON(http.StatusOK, docstore.SearchResponse(result))
	}
}

func DeleteTableHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := docstore.DeleteTableRequest{
			TableName: c.Param("table_name"),
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, http.StatusExpectationFailed, err)
			return
		}

		result, ok := resp.(docstore.Result)
		if !ok {
			abort(c, http.StatusInternalServerError, errors.New("invalid response type"))
			return
		}

		c.JSON(http.StatusOK, docstore.DeleteTableReport(result))
	}
}

func ListTablesHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		resp, err := endpoint(ctx, nil)
		if err != nil {
			abort(c, http.StatusExpectationFailed, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func abort(c *gin.Context, code int, err error) {
	c.JSON(code, docstore.ErrorReport(err))
	c.Error(err)
	c.Abort()
}
