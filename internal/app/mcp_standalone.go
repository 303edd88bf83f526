package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"csvjson/internal/etl"
	mcpserver "csvjson/internal/mcp"
	"csvjson/internal/service"
	"csvjson/internal/storage"
)

// ServeMCP runs the converter as a standalone MCP server on stdin/stdout with
// no GUI. Logs go to stderr. It returns when stdin closes.
func ServeMCP(logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var recorder service.RunRecorder
	deps := mcpserver.Deps{Logger: logger}

	_, dbPath := dataPaths()
	db, err := storage.New(dbPath)
	if err != nil {
		logger.Warn("run history disabled", zap.String("path", dbPath), zap.Error(err))
	} else {
		defer db.Close()
		runs := storage.NewRunStore(db)
		recorder = runs
		deps.Runs = runs
	}

	// No frontend: events and dialogs are dropped, results go back as tool output.
	convert := service.NewConversionService(etl.NewConverter(), recorder, nil, nil, logger)
	defer func() {
		convert.Stop()
		convert.Wait(ctx)
	}()
	deps.Convert = convert

	return mcpserver.New(deps).ServeStdio()
}
