package docstore

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"
)

type EndpointSet struct {
	CreateTable endpoint.Endpoint
	AddDocument endpoint.Endpoint
	Search      endpoint.Endpoint
	DeleteTable endpoint.Endpoint
	ListTables  endpoint.Endpoint
}

func MakeEndpoints(svc Service) EndpointSet {
	return EndpointSet{
		CreateTable: CreateTableEndpoint(svc),
		AddDocument: AddDocumentEndpoint(svc),
		Search:      SearchEndpoint(svc),
		DeleteTable: DeleteTableEndpoint(svc),
		ListTables:  ListTablesEndpoint(svc),
	}
}

type CreateTableRequest struct {
	TableName string `json:"table_name,omitempty"`
}

func CreateTableEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(CreateTableRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.CreateTable(ctx, req.TableName)
	}
}

type AddDocumentRequest struct {
	TableName string `json:"table_name,omitempty"`
	Document  string `json:"document"`
}

func AddDocumentEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(AddDocumentRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.AddDocument(ctx, req.TableName, req.Document)
	}
}

type SearchRequest struct {
	TableName string `json:"table_name,omitempty" form:"table_name"`
	Query     string `json:"query" form:"query"`
	K         int    `json:"k,omitempty" form:"k"`
}

func SearchEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(SearchRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.SearchDocuments(ctx, req.TableName, req.Query, req.K)
	}
}

type DeleteTableRequest struct {
	TableName string `json:"table_name"`
}

func DeleteTableEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(DeleteTableRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.DeleteTable(ctx, req.TableName)
	}
}

func ListTablesEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		return svc.ListTables(ctx)
	}
}
