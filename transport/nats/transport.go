package nats

import (
	"context"
	"encoding/json"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/docstore"
)

func CreateTableHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return requestHandler[docstore.CreateTableRequest](endpoint)
}

func AddDocumentHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return requestHandler[docstore.AddDocumentRequest](endpoint)
}

func SearchHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return requestHandler[docstore.SearchRequest](endpoint)
}

func DeleteTableHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return requestHandler[docstore.DeleteTableRequest](endpoint)
}

func ListTablesHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx := context.Background()
		resp, err := endpoint(ctx, nil)
		if err != nil {
			r.Error("417", err.Error(), nil)
			return
		}

		tables, ok := resp.([]docstore.TableInfo)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		r.RespondJSON(&tables)
	}
}

// requestHandler decodes a Req from the message body and responds with
// the docstore.Result of the endpoint.
func requestHandler[Req any](endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req Req
		if data := r.Data(); len(data) > 0 {
			if err := json.Unmarshal(data, &req); err != nil {
				r.Error("400", err.Error(), nil)
				return
			}
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error("417", err.Error(), nil)
			return
		}

		result, ok := resp.(docstore.Result)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		r.RespondJSON(&result)
	}
}
