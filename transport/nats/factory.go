package nats

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/docstore"
)

func MakeEndpoints(nc *nats.Conn, prefix string) *docstore.EndpointSet {
	return &docstore.EndpointSet{
		CreateTable: ResultEndpoint[docstore.CreateTableRequest](nc, prefix+".create_table"),
		AddDocument: ResultEndpoint[docstore.AddDocumentRequest](nc, prefix+".add_doc"),
		Search:      ResultEndpoint[docstore.SearchRequest](nc, prefix+".search"),
		DeleteTable: ResultEndpoint[docstore.DeleteTableRequest](nc, prefix+".delete_table"),
		ListTables:  ListTablesEndpoint(nc, prefix+".list_tables"),
	}
}

// ResultEndpoint sends a Req to topic and decodes the docstore.Result reply.
func ResultEndpoint[Req any](nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(Req)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(ctx, nats.DefaultTimeout)
		defer cancel()

		resp, err := nc.RequestWithContext(ctx, topic, data)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var result docstore.Result
		if err := json.Unmarshal(resp.Data, &result); err != nil {
			return nil, err
		}

		return result, nil
	}
}

func ListTablesEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, nats.DefaultTimeout)
		defer cancel()

		resp, err := nc.RequestWithContext(ctx, topic, nil)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var tables []docstore.TableInfo
		if err := json.Unmarshal(resp.Data, &tables); err != nil {
			return nil, err
		}

		return tables, nil
	}
}

func Error(msg *nats.Msg) error {
	if msg == nil {
		return errors.New("nil message")
	}

	code := msg.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}

	description := msg.Header.Get(micro.ErrorHeader)
	if description == "" {
		description = "unknown error"
	}

	return errors.New(code + ":" + description)
}
