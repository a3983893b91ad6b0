package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/suite"

	"github.com/flarexio/docstore"
	"github.com/flarexio/docstore/embedding"
	"github.com/flarexio/docstore/persistence/sqlite"
	"github.com/flarexio/docstore/vector"

	mcpE "github.com/flarexio/docstore/mcp"
)

type httpTransportTestSuite struct {
	suite.Suite
	router *gin.Engine
	svc    docstore.Service
}

func (suite *httpTransportTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	cfg := docstore.Config{
		Store: vector.Config{
			Backend:    vector.BackendSQLite,
			Persistent: true,
			Path:       suite.T().TempDir(),
			Dimension:  16,
		},
	}

	store, err := sqlite.NewSQLiteVectorStore(cfg.Store)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	svc, err := docstore.NewService(cfg, store, embedding.NewHashEmbedder(16))
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	r := gin.New()
	AddRouters(r, docstore.MakeEndpoints(svc))

	mcpEndpoints := map[mcp.MCPMethod]mcpE.MCPEndpoint{
		mcp.MethodPing:      mcpE.PingEndpoint(svc),
		mcp.MethodToolsCall: mcpE.CallToolEndpoint(svc),
	}
	AddStreamableRouters(r, mcpEndpoints)

	suite.router = r
	suite.svc = svc
}

func (suite *httpTransportTestSuite) TearDownTest() {
	if suite.svc != nil {
		suite.svc.Close()
	}
}

func (suite *httpTransportTestSuite) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *httpTransportTestSuite) TestScenario() {
	w := suite.do(http.MethodPost, "/api/tables", `{"table_name": "docs"}`)
	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"status": "success", "message": "Table 'docs' created."}`, w.Body.String())

	w = suite.do(http.MethodPost, "/api/tables", `{"table_name": "docs"}`)
	suite.JSONEq(`{"status": "error", "message": "Table 'docs' already exists."}`, w.Body.String())

	w = suite.do(http.MethodPost, "/api/tables/docs/documents", `{"document": "hello world"}`)
	suite.JSONEq(`{"status": "success", "message": "Document added."}`, w.Body.String())

	w = suite.do(http.MethodGet, "/api/tables/docs/search?query=hello", "")
	suite.Equal(http.StatusOK, w.Code)

	var docs []docstore.SearchResult
	if err := json.Unmarshal(w.Body.Bytes(), &docs); err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Len(docs, 1)
	suite.Equal("hello world", docs[0].Text)
	suite.Len(docs[0].Vector, 16)

	w = suite.do(http.MethodGet, "/api/tables", "")
	suite.Contains(w.Body.String(), `"name":"docs"`)

	w = suite.do(http.MethodDelete, "/api/tables/docs", "")
	suite.JSONEq(`{"status": "success", "message": "Table 'docs' deleted."}`, w.Body.String())

	w = suite.do(http.MethodDelete, "/api/tables/docs", "")
	suite.JSONEq(`{"status": "info", "message": "Table 'docs' not found, skipping."}`, w.Body.String())

	w = suite.do(http.MethodGet, "/api/tables/docs/search?query=hello", "")
	suite.JSONEq(`{"status": "error", "message": "Table 'docs' not found."}`, w.Body.String())
}

func (suite *httpTransportTestSuite) TestCreateDefaultTable() {
	w := suite.do(http.MethodPost, "/api/tables", "")
	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"status": "success", "message": "Table 'default_global_table' created."}`, w.Body.String())
}

func (suite *httpTransportTestSuite) TestBadRequest() {
	w := suite.do(http.MethodPost, "/api/tables/docs/documents", `{"document": `)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Contains(w.Body.String(), `"status":"error"`)
}

func (suite *httpTransportTestSuite) TestMCPStreamable() {
	w := suite.do(http.MethodPost, "/mcp/", `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	suite.Equal(http.StatusAccepted, w.Code)
	suite.Empty(w.Body.String())

	w = suite.do(http.MethodPost, "/mcp/", `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"jsonrpc":"2.0","id":1,"result":{}}`, w.Body.String())

	w = suite.do(http.MethodPost, "/mcp/", `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	suite.Equal(http.StatusNotFound, w.Code)

	body := `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"add_doc","arguments":{"tableName":"notes","document":"buy milk"}}}`
	w = suite.do(http.MethodPost, "/mcp/", body)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `Document added.`)
}

func TestHTTPTransportTestSuite(t *testing.T) {
	suite.Run(t, new(httpTransportTestSuite))
}

func TestEndpointFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	failing := func(ctx context.Context, request any) (any, error) {
		return nil, errors.New("embedding provider failure: quota exceeded")
	}

	r := gin.New()
	r.GET("/search/:table_name", SearchHandler(failing))

	req := httptest.NewRequest(http.MethodGet, "/search/docs?query=x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusExpectationFailed {
		t.Fatalf("expected 417, got %d", w.Code)
	}

	var report docstore.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}

	if report.Status != docstore.StatusError {
		t.Fatalf("expected error status, got %s", report.Status)
	}
}
