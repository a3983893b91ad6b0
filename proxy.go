package docstore

import (
	"context"
	"errors"
)

// ProxyMiddleware serves the Service through a remote EndpointSet; the
// wrapped Service is ignored.
func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return nil
}

func (mw *proxyMiddleware) CreateTable(ctx context.Context, name string) (Result, error) {
	req := CreateTableRequest{
		TableName: name,
	}

	resp, err := mw.endpoints.CreateTable(ctx, req)
	return result(resp, err)
}

func (mw *proxyMiddleware) AddDocument(ctx context.Context, name string, text string) (Result, error) {
	req := AddDocumentRequest{
		TableName: name,
		Document:  text,
	}

	resp, err := mw.endpoints.AddDocument(ctx, req)
	return result(resp, err)
}

func (mw *proxyMiddleware) SearchDocuments(ctx context.Context, name string, query string, k ...int) (Result, error) {
	n := 0
	if len(k) > 0 {
		n = k[0]
	}

	req := SearchRequest{
		TableName: name,
		Query:     query,
		K:         n,
	}

	resp, err := mw.endpoints.Search(ctx, req)
	return result(resp, err)
}

func (mw *proxyMiddleware) DeleteTable(ctx context.Context, name string) (Result, error) {
	req := DeleteTableRequest{
		TableName: name,
	}

	resp, err := mw.endpoints.DeleteTable(ctx, req)
	return result(resp, err)
}

func (mw *proxyMiddleware) ListTables(ctx context.Context) ([]TableInfo, error) {
	resp, err := mw.endpoints.ListTables(ctx, nil)
	if err != nil {
		return nil, err
	}

	tables, ok := resp.([]TableInfo)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return tables, nil
}

func result(resp any, err error) (Result, error) {
	if err != nil {
		return Result{}, err
	}

	r, ok := resp.(Result)
	if !ok {
		return Result{}, errors.New("invalid response type")
	}

	return r, nil
}
