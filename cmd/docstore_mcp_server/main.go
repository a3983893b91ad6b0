package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/docstore"
	"github.com/flarexio/docstore/embedding"
	"github.com/flarexio/docstore/persistence/chromem"
	"github.com/flarexio/docstore/persistence/sqlite"
	"github.com/flarexio/docstore/vector"

	mcpE "github.com/flarexio/docstore/mcp"
	natsT "github.com/flarexio/docstore/transport/nats"
)

func main() {
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "docstore_mcp_server",
		Usage: "Docstore MCP Server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Root directory of the local store",
				Value: "./docstore",
			},
			&cli.StringFlag{
				Name:    "gemini-api-key",
				Usage:   "API key of the Gemini embedding provider",
				Sources: cli.EnvVars("GEMINI_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL",
				Value:   "wss://nats.flarex.io",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.StringFlag{
				Name:    "nats-creds",
				Usage:   "NATS user credentials file",
				Sources: cli.EnvVars("NATS_CREDS"),
			},
			&cli.StringFlag{
				Name:  "edge-id",
				Usage: "Edge ID of a remote docstore service. If not specified, uses the local store",
			},
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// stdout belongs to the protocol
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}

	log, err := cfg.Build()
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	var svc docstore.Service

	if edgeID := cmd.String("edge-id"); edgeID != "" {
		opts := []nats.Option{
			nats.Name("Docstore MCP Server - " + edgeID),
		}

		if creds := cmd.String("nats-creds"); creds != "" {
			opts = append(opts, nats.UserCredentials(creds))
		}

		nc, err := nats.Connect(cmd.String("nats"), opts...)
		if err != nil {
			return err
		}
		defer nc.Drain()

		topic := fmt.Sprintf("edges.%s.docstore", edgeID)
		endpoints := natsT.MakeEndpoints(nc, topic)

		svc = docstore.ProxyMiddleware(endpoints)(svc)
	} else {
		local, err := localService(cmd)
		if err != nil {
			return err
		}
		defer local.Close()

		svc = docstore.LoggingMiddleware(log)(local)
	}

	s := NewStdioMCPServer(os.Stdin, os.Stdout)
	s.AddEndpoint(mcp.MethodInitialize, mcpE.InitializeEndpoint(svc))
	s.AddEndpoint(mcp.MethodPing, mcpE.PingEndpoint(svc))
	s.AddEndpoint(mcp.MethodToolsList, mcpE.ListToolsEndpoint(svc))
	s.AddEndpoint(mcp.MethodToolsCall, mcpE.CallToolEndpoint(svc))

	err = s.Listen(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func localService(cmd *cli.Command) (docstore.Service, error) {
	path := cmd.String("path")

	cfg := docstore.DefaultConfig()

	f, err := os.Open(filepath.Join(path, "config.yaml"))
	if err == nil {
		defer f.Close()

		cfg = docstore.Config{}
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, err
		}
	}

	if cfg.Store.Path == "" || cmd.IsSet("path") {
		cfg.Store.Path = path
	}

	cfg.Store.Persistent = true

	if key := cmd.String("gemini-api-key"); key != "" && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = key
	}

	cfg.ApplyDefaults()

	var store vector.Store
	if cfg.Store.Backend == vector.BackendChromem {
		store, err = chromem.NewChromemVectorStore(cfg.Store)
	} else {
		store, err = sqlite.NewSQLiteVectorStore(cfg.Store)
	}

	if err != nil {
		return nil, err
	}

	embedder, err := embedding.NewEmbedder(cfg.Embedding)
	if err != nil {
		embedder = embedding.Unavailable(cfg.Embedding.Dimension, err)
	}

	svc, err := docstore.NewService(cfg, store, embedder)
	if err != nil {
		store.Close()
		return nil, err
	}

	return svc, nil
}
