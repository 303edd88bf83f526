package app

import (
	"context"
	"os"
	"path/filepath"
	"time"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"csvjson/internal/etl"
	_ "csvjson/internal/etl/sources" // register all sources via init()
	"csvjson/internal/service"
	"csvjson/internal/storage"
)

// shutdownTimeout bounds how long Shutdown waits for a running conversion.
const shutdownTimeout = 10 * time.Second

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx    context.Context
	logger *zap.Logger

	db   *storage.DB
	runs *storage.RunStore

	selection *service.Selection
	convert   *service.ConversionService
}

// New creates a new App.
func New(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		logger:    logger,
		selection: service.NewSelection(),
	}
}

// dataPaths returns the data directory and the history database path.
func dataPaths() (string, string) {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local", "share", "csvjson")
	return dataDir, filepath.Join(dataDir, "csvjson.db")
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	// Run history is optional: conversions still work without it.
	_, dbPath := dataPaths()
	db, err := storage.New(dbPath)
	if err != nil {
		a.logger.Error("failed to open history database", zap.String("path", dbPath), zap.Error(err))
	} else {
		a.db = db
		a.runs = storage.NewRunStore(db)
	}

	var recorder service.RunRecorder
	if a.runs != nil {
		recorder = a.runs
	}
	a.convert = service.NewConversionService(etl.NewConverter(), recorder, a, &dialogNotifier{app: a}, a.logger)
	a.logger.Info("app started", zap.String("db", dbPath), zap.Bool("history", a.runs != nil))
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.convert != nil {
		a.convert.Stop()
		waitCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		a.convert.Wait(waitCtx)
		cancel()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// Emit implements service.EventEmitter by forwarding to the Wails runtime.
func (a *App) Emit(ctx context.Context, event string, data any) {
	if a.ctx == nil {
		return
	}
	wailsRuntime.EventsEmit(a.ctx, event, data)
}

// dialogNotifier shows native message dialogs.
type dialogNotifier struct {
	app *App
}

func (n *dialogNotifier) show(kind wailsRuntime.DialogType, title, message string) {
	if n.app.ctx == nil {
		return
	}
	if _, err := wailsRuntime.MessageDialog(n.app.ctx, wailsRuntime.MessageDialogOptions{
		Type:    kind,
		Title:   title,
		Message: message,
	}); err != nil {
		n.app.logger.Warn("message dialog failed", zap.String("title", title), zap.Error(err))
	}
}

func (n *dialogNotifier) Info(title, message string)    { n.show(wailsRuntime.InfoDialog, title, message) }
func (n *dialogNotifier) Warning(title, message string) { n.show(wailsRuntime.WarningDialog, title, message) }
func (n *dialogNotifier) Error(title, message string)   { n.show(wailsRuntime.ErrorDialog, title, message) }
