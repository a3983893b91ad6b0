package docstore

import (
	"context"

	"go.uber.org/zap"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "docstore"),
	)

	return func(next Service) Service {
		log.Debug("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Debug("service closed")
	return nil
}

func (mw *loggingMiddleware) CreateTable(ctx context.Context, name string) (Result, error) {
	log := mw.log.With(
		zap.String("action", "create_table"),
		zap.String("table", name),
	)

	result, err := mw.next.CreateTable(ctx, name)
	if err != nil {
		log.Error(err.Error())
		return result, err
	}

	log.Info("table created", zap.String("outcome", string(result.Outcome)))
	return result, nil
}

func (mw *loggingMiddleware) AddDocument(ctx context.Context, name string, text string) (Result, error) {
	log := mw.log.With(
		zap.String("action", "add_document"),
		zap.String("table", name),
		zap.Int("length", len(text)),
	)

	result, err := mw.next.AddDocument(ctx, name, text)
	if err != nil {
		log.Error(err.Error())
		return result, err
	}

	log.Info("document added", zap.String("outcome", string(result.Outcome)))
	return result, nil
}

func (mw *loggingMiddleware) SearchDocuments(ctx context.Context, name string, query string, k ...int) (Result, error) {
	log := mw.log.With(
		zap.String("action", "search_documents"),
		zap.String("table", name),
		zap.String("query", query),
	)

	if len(k) > 0 && k[0] > 0 {
		log = log.With(
			zap.Int("k", k[0]),
		)
	}

	result, err := mw.next.SearchDocuments(ctx, name, query, k...)
	if err != nil {
		log.Error(err.Error())
		return result, err
	}

	log.Info("documents searched",
		zap.String("outcome", string(result.Outcome)),
		zap.Int("count", len(result.Documents)),
	)
	return result, nil
}

func (mw *loggingMiddleware) DeleteTable(ctx context.Context, name string) (Result, error) {
	log := mw.log.With(
		zap.String("action", "delete_table"),
		zap.String("table", name),
	)

	result, err := mw.next.DeleteTable(ctx, name)
	if err != nil {
		log.Error(err.Error())
		return result, err
	}

	log.Info("table deleted", zap.String("outcome", string(result.Outcome)))
	return result, nil
}

func (mw *loggingMiddleware) ListTables(ctx context.Context) ([]TableInfo, error) {
	log := mw.log.With(
		zap.String("action", "list_tables"),
	)

	tables, err := mw.next.ListTables(ctx)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("tables listed", zap.Int("count", len(tables)))
	return tables, nil
}
