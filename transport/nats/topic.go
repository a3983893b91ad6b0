package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/docstore"
)

func AddEndpoints(group micro.Group, endpoints docstore.EndpointSet) {
	group.AddEndpoint("create_table", CreateTableHandler(endpoints.CreateTable))
	group.AddEndpoint("add_doc", AddDocumentHandler(endpoints.AddDocument))
	group.AddEndpoint("search", SearchHandler(endpoints.Search))
	group.AddEndpoint("delete_table", DeleteTableHandler(endpoints.DeleteTable))
	group.AddEndpoint("list_tables", ListTablesHandler(endpoints.ListTables))
}
