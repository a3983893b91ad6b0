package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/docstore"
)

var ErrUnknownTool = errors.New("unknown tool")

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  mcp.MCPMethod   `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func ErrorResponse(id mcp.RequestId, code int, message string) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      id,
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    code,
			Message: message,
		},
	}
}

type MCPEndpoint func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage

const MCPSERVER_INSTRUCTIONS string = `docstore keeps text documents in named tables and finds them again by meaning.

Available tools:
- create_table: create an empty table (default table when no name is given)
- add_doc: embed a document and append it to a table, creating the table if needed
- search: return the 5 documents most similar to a query
- delete_table: drop a table and all of its documents

Every tool answers with a JSON document: a status/message object, or an array of results for search.`

const (
	ToolCreateTable = "create_table"
	ToolAddDoc      = "add_doc"
	ToolSearch      = "search"
	ToolDeleteTable = "delete_table"
)

func Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(ToolCreateTable,
			mcp.WithDescription("Creates a new table. If no table name is provided, a default table will be created."),
			mcp.WithString("tableName", mcp.Description("Name of the table to create")),
		),
		mcp.NewTool(ToolAddDoc,
			mcp.WithDescription("Adds a document to a table. If no table name is provided, the document will be added to a default table."),
			mcp.WithString("document", mcp.Required(), mcp.Description("Text of the document")),
			mcp.WithString("tableName", mcp.Description("Name of the target table")),
		),
		mcp.NewTool(ToolSearch,
			mcp.WithDescription("Searches for similar documents in a table. If no table name is provided, the search will be performed on a default table."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Text to search for")),
			mcp.WithString("tableName", mcp.Description("Name of the table to search")),
		),
		mcp.NewTool(ToolDeleteTable,
			mcp.WithDescription("Deletes a table."),
			mcp.WithString("tableName", mcp.Required(), mcp.Description("Name of the table to delete")),
		),
	}
}

func InitializeEndpoint(svc docstore.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		protocolVersion := mcp.LATEST_PROTOCOL_VERSION
		if clientVersion := params.ProtocolVersion; clientVersion != "" {
			if slices.Contains(mcp.ValidProtocolVersions, clientVersion) {
				protocolVersion = clientVersion
			}
		}

		result := &mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged,omitempty"`
				}{},
			},
			ServerInfo: mcp.Implementation{
				Name:    "docstore",
				Version: "1.0.0",
			},
			Instructions: MCPSERVER_INSTRUCTIONS,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func PingEndpoint(svc docstore.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  struct{}{}, // empty response
		}
	}
}

func ListToolsEndpoint(svc docstore.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		result := &mcp.ListToolsResult{
			Tools: Tools(),
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type toolArguments struct {
	TableName string `json:"tableName"`
	Document  string `json:"document"`
	Query     string `json:"query"`
}

// CallToolEndpoint runs one of Tools() against the service. Anticipated
// conditions and service failures alike come back as the JSON report text;
// only malformed calls are JSON-RPC errors.
func CallToolEndpoint(svc docstore.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params callToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		var args toolArguments
		if len(params.Arguments) > 0 {
			if err := json.Unmarshal(params.Arguments, &args); err != nil {
				return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
			}
		}

		output, err := callTool(ctx, svc, params.Name, args)
		if errors.Is(err, ErrUnknownTool) {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error()+": "+params.Name)
		}

		var result *mcp.CallToolResult
		if err != nil {
			bs, _ := json.Marshal(docstore.ErrorReport(err))
			result = mcp.NewToolResultError(string(bs))
		} else {
			bs, err := json.Marshal(output)
			if err != nil {
				return ErrorResponse(req.ID, mcp.INTERNAL_ERROR, err.Error())
			}

			result = mcp.NewToolResultText(string(bs))
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func callTool(ctx context.Context, svc docstore.Service, name string, args toolArguments) (any, error) {
	switch name {
	case ToolCreateTable:
		result, err := svc.CreateTable(ctx, args.TableName)
		if err != nil {
			return nil, err
		}

		return docstore.CreateTableReport(result), nil

	case ToolAddDoc:
		result, err := svc.AddDocument(ctx, args.TableName, args.Document)
		if err != nil {
			return nil, err
		}

		return docstore.AddDocumentReport(result), nil

	case ToolSearch:
		result, err := svc.SearchDocuments(ctx, args.TableName, args.Query)
		if err != nil {
			return nil, err
		}

		return docstore.SearchResponse(result), nil

	case ToolDeleteTable:
		result, err := svc.DeleteTable(ctx, args.TableName)
		if err != nil {
			return nil, err
		}

		return docstore.DeleteTableReport(result), nil

	default:
		return nil, ErrUnknownTool
	}
}
