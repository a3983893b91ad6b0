package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/docstore"
	"github.com/flarexio/docstore/embedding"
	"github.com/flarexio/docstore/persistence/chromem"
	"github.com/flarexio/docstore/persistence/sqlite"
	"github.com/flarexio/docstore/vector"

	mcpE "github.com/flarexio/docstore/mcp"
	httpT "github.com/flarexio/docstore/transport/http"
	natsT "github.com/flarexio/docstore/transport/nats"
)

func main() {
	// a missing .env is fine, the environment may already carry the keys
	_ = godotenv.Load()

	err := run(context.Background(), os.Args, os.Stdout)
	if err != nil {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}

		log.Fatal(err.Error())
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	return newCommand(stdout).Run(ctx, operandsLast(args))
}

func newCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "docstore",
		Usage:  "Local document store with vector similarity search",
		Writer: stdout,
		// exit codes are left to main
		ExitErrHandler: func(ctx context.Context, cmd *cli.Command, err error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Root directory of the store",
				Value: "./docstore",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Config file (default: <path>/config.yaml)",
			},
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "Table backend: chromem or sqlite",
				Sources: cli.EnvVars("DOCSTORE_BACKEND"),
			},
			&cli.StringFlag{
				Name:    "provider",
				Usage:   "Embedding provider: gemini, ollama, openai or hash",
				Sources: cli.EnvVars("DOCSTORE_PROVIDER"),
			},
			&cli.StringFlag{
				Name:    "gemini-api-key",
				Usage:   "API key of the Gemini embedding provider",
				Sources: cli.EnvVars("GEMINI_API_KEY"),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log at debug level to stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "create_table",
				Usage:     "Create an empty table",
				ArgsUsage: "[table_name]",
				Action:    createTable,
			},
			{
				Name:      "add_doc",
				Usage:     "Embed a document and add it to a table",
				ArgsUsage: "<document>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "table_name",
						Usage: "Target table, created on first use",
					},
				},
				Action: addDocument,
			},
			{
				Name:      "search",
				Usage:     "Return the documents nearest to a query",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "table_name",
						Usage: "Table to search",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results (default from config)",
					},
				},
				Action: search,
			},
			{
				Name:      "delete_table",
				Usage:     "Drop a table and its documents",
				ArgsUsage: "<table_name>",
				Action:    deleteTable,
			},
			{
				Name:   "list_tables",
				Usage:  "List every table with its document count",
				Action: listTables,
			},
			{
				Name:  "serve",
				Usage: "Serve the store over HTTP, MCP and NATS",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "http-addr",
						Usage: "HTTP server address",
						Value: ":8080",
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
						Usage: "Edge ID; enables the NATS transport",
					},
				},
				Action: serve,
			},
		},
	}
}

// valueFlags are the flags whose value is a separate argument.
var valueFlags = map[string]bool{
	"path":           true,
	"config":         true,
	"backend":        true,
	"provider":       true,
	"gemini-api-key": true,
	"table_name":     true,
	"limit":          true,
	"k":              true,
}

func takesValue(arg string) bool {
	name := strings.TrimLeft(arg, "-")
	if strings.Contains(name, "=") {
		return false
	}

	return valueFlags[name]
}

// operandsLast rewrites the arguments of add_doc and search so their flags
// come first and the operands follow a "--" terminator. The parser keeps
// an empty operand only in that position, and add_doc "" is a valid call.
func operandsLast(args []string) []string {
	if len(args) == 0 {
		return args
	}

	out := []string{args[0]}

	i := 1
	found := false
	for i < len(args) {
		arg := args[i]
		out = append(out, arg)
		i++

		if arg == "add_doc" || arg == "search" {
			found = true
			break
		}

		if takesValue(arg) && i < len(args) {
			out = append(out, args[i])
			i++
		}
	}

	if !found {
		return args
	}

	var flags, operands []string
	for ; i < len(args); i++ {
		arg := args[i]

		if arg == "--" {
			operands = append(operands, args[i+1:]...)
			break
		}

		if strings.HasPrefix(arg, "-") && arg != "-" {
			flags = append(flags, arg)

			if takesValue(arg) && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}

			continue
		}

		operands = append(operands, arg)
	}

	out = append(out, flags...)
	if len(operands) > 0 {
		out = append(out, "--")
		out = append(out, operands...)
	}

	return out
}

func setup(cmd *cli.Command) (docstore.Service, *zap.Logger, error) {
	var (
		log *zap.Logger
		err error
	)

	if cmd.Bool("verbose") {
		log, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		log, err = cfg.Build()
	}

	if err != nil {
		return nil, nil, err
	}

	zap.ReplaceGlobals(log)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, log, err
	}

	var store vector.Store
	switch cfg.Store.Backend {
	case vector.BackendChromem:
		store, err = chromem.NewChromemVectorStore(cfg.Store)
	case vector.BackendSQLite:
		store, err = sqlite.NewSQLiteVectorStore(cfg.Store)
	default:
		err = errors.New("unsupported backend: " + string(cfg.Store.Backend))
	}

	if err != nil {
		return nil, log, err
	}

	embedder, err := embedding.NewEmbedder(cfg.Embedding)
	if err != nil {
		log.Warn("embedding provider unavailable", zap.Error(err))
		embedder = embedding.Unavailable(cfg.Embedding.Dimension, err)
	}

	svc, err := docstore.NewService(cfg, store, embedder)
	if err != nil {
		store.Close()
		return nil, log, err
	}

	svc = docstore.LoggingMiddleware(log)(svc)

	return svc, log, nil
}

func loadConfig(cmd *cli.Command) (docstore.Config, error) {
	path := cmd.String("path")

	cfg := docstore.DefaultConfig()

	filename := cmd.String("config")
	if filename == "" {
		filename = filepath.Join(path, "config.yaml")
	}

	f, err := os.Open(filename)
	switch {
	case err == nil:
		defer f.Close()

		cfg = docstore.Config{}
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return cfg, err
		}

	case errors.Is(err, fs.ErrNotExist) && !cmd.IsSet("config"):

	default:
		return cfg, err
	}

	if cfg.Store.Path == "" || cmd.IsSet("path") {
		cfg.Store.Path = path
	}

	cfg.Store.Persistent = true

	if backend := cmd.String("backend"); backend != "" {
		cfg.Store.Backend = vector.Backend(backend)
	}

	if provider := cmd.String("provider"); provider != "" {
		cfg.Embedding.Provider = embedding.Provider(provider)
	}

	if key := cmd.String("gemini-api-key"); key != "" && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = key
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// command wraps an action with the service lifecycle. Any error reaching
// it is unanticipated: it is printed as a JSON error report and the
// process exits with status 1.
func command(action func(ctx context.Context, cmd *cli.Command, svc docstore.Service) (any, error)) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		svc, log, err := setup(cmd)
		if log != nil {
			defer log.Sync()
		}

		if err != nil {
			return fail(cmd, err)
		}
		defer svc.Close()

		output, err := action(ctx, cmd, svc)
		if err != nil {
			return fail(cmd, err)
		}

		return printJSON(cmd, output)
	}
}

func fail(cmd *cli.Command, err error) error {
	if err := printJSON(cmd, docstore.ErrorReport(err)); err != nil {
		return err
	}

	return cli.Exit("", 1)
}

func printJSON(cmd *cli.Command, v any) error {
	return json.NewEncoder(cmd.Root().Writer).Encode(v)
}

var createTable = command(func(ctx context.Context, cmd *cli.Command, svc docstore.Service) (any, error) {
	result, err := svc.CreateTable(ctx, cmd.Args().First())
	if err != nil {
		return nil, err
	}

	return docstore.CreateTableReport(result), nil
})

var addDocument = command(func(ctx context.Context, cmd *cli.Command, svc docstore.Service) (any, error) {
	if cmd.Args().Len() == 0 {
		return docstore.Report{Status: docstore.StatusError, Message: "Document is required."}, nil
	}

	result, err := svc.AddDocument(ctx, cmd.String("table_name"), cmd.Args().First())
	if err != nil {
		return nil, err
	}

	return docstore.AddDocumentReport(result), nil
})

var search = command(func(ctx context.Context, cmd *cli.Command, svc docstore.Service) (any, error) {
	if cmd.Args().Len() == 0 {
		return docstore.Report{Status: docstore.StatusError, Message: "Query is required."}, nil
	}

	result, err := svc.SearchDocuments(ctx, cmd.String("table_name"), cmd.Args().First(), int(cmd.Int("limit")))
	if err != nil {
		return nil, err
	}

	return docstore.SearchResponse(result), nil
})

var deleteTable = command(func(ctx context.Context, cmd *cli.Command, svc docstore.Service) (any, error) {
	result, err := svc.DeleteTable(ctx, cmd.Args().First())
	if err != nil {
		return nil, err
	}

	return docstore.DeleteTableReport(result), nil
})

var listTables = command(func(ctx context.Context, cmd *cli.Command, svc docstore.Service) (any, error) {
	return svc.ListTables(ctx)
})

func serve(ctx context.Context, cmd *cli.Command) error {
	svc, log, err := setup(cmd)
	if log != nil {
		defer log.Sync()
	}

	if err != nil {
		return err
	}
	defer svc.Close()

	endpoints := docstore.MakeEndpoints(svc)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Add NATS Transport
	if edgeID := cmd.String("edge-id"); edgeID != "" {
		opts := []nats.Option{
			nats.Name("Docstore Server - " + edgeID),
		}

		if creds := cmd.String("nats-creds"); creds != "" {
			opts = append(opts, nats.UserCredentials(creds))
		}

		nc, err := nats.Connect(cmd.String("nats"), opts...)
		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "docstore",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}

		root := srv.AddGroup("edges." + edgeID + ".docstore")
		natsT.AddEndpoints(root, endpoints)

		g.Go(func() error {
			<-ctx.Done()
			return srv.Stop()
		})

		log.Info("nats transport ready", zap.String("edge", edgeID))
	}

	// Add HTTP Transport
	{
		r := gin.Default()
		httpT.AddRouters(r, endpoints)

		mcpEndpoints := make(map[mcp.MCPMethod]mcpE.MCPEndpoint)
		mcpEndpoints[mcp.MethodInitialize] = mcpE.InitializeEndpoint(svc)
		mcpEndpoints[mcp.MethodPing] = mcpE.PingEndpoint(svc)
		mcpEndpoints[mcp.MethodToolsList] = mcpE.ListToolsEndpoint(svc)
		mcpEndpoints[mcp.MethodToolsCall] = mcpE.CallToolEndpoint(svc)
		httpT.AddStreamableRouters(r, mcpEndpoints)

		server := &http.Server{
			Addr:    cmd.String("http-addr"),
			Handler: r,
		}

		g.Go(func() error {
			err := server.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}

			return err
		})

		g.Go(func() error {
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			return server.Shutdown(shutdownCtx)
		})

		log.Info("http transport ready", zap.String("addr", server.Addr))
	}

	err = g.Wait()

	log.Info("graceful shutdown")
	return err
}
