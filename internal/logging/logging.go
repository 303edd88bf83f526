package logging

import (
	"fmt"

	wailsLogger "github.com/wailsapp/wails/v2/pkg/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the application logger. Output goes to stderr so the MCP
// stdio transport keeps stdout to itself.
func New(debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// WailsAdapter routes the wails runtime logger (and wailsRuntime.Log*f)
// into zap.
type WailsAdapter struct {
	log *zap.Logger
}

var _ wailsLogger.Logger = (*WailsAdapter)(nil)

// NewWailsAdapter wraps logger for use as options.App.Logger.
func NewWailsAdapter(logger *zap.Logger) *WailsAdapter {
	return &WailsAdapter{log: logger.Named("wails").WithOptions(zap.AddCallerSkip(1))}
}

func (w *WailsAdapter) Print(message string)   { w.log.Info(message) }
func (w *WailsAdapter) Trace(message string)   { w.log.Debug(message) }
func (w *WailsAdapter) Debug(message string)   { w.log.Debug(message) }
func (w *WailsAdapter) Info(message string)    { w.log.Info(message) }
func (w *WailsAdapter) Warning(message string) { w.log.Warn(message) }
func (w *WailsAdapter) Error(message string)   { w.log.Error(message) }
func (w *WailsAdapter) Fatal(message string)   { w.log.Fatal(message) }
