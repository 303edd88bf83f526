package app

import (
	"errors"
	"fmt"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"csvjson/internal/etl"
	"csvjson/internal/service"
)

// ============================================================
// Conversion
// ============================================================

// historyLimit caps the runs shown in the UI.
const historyLimit = 50

// ConvertInput is what the form submits. Files come from the selection.
type ConvertInput struct {
	OutputDir      string `json:"outputDir"`
	Merge          bool   `json:"merge"`
	MergedFileName string `json:"mergedFileName"`
	Delimiter      string `json:"delimiter"`
}

func jobFromInput(files []string, input ConvertInput) etl.ConversionJob {
	return etl.ConversionJob{
		Files:          files,
		OutputDir:      input.OutputDir,
		Merge:          input.Merge,
		MergedFileName: input.MergedFileName,
		Delimiter:      input.Delimiter,
	}
}

// ── Selection ──────────────────────────────────────────────

// AddFiles opens a native multi-file dialog and appends the picks.
func (a *App) AddFiles() ([]string, error) {
	paths, err := wailsRuntime.OpenMultipleFilesDialog(a.ctx, wailsRuntime.OpenDialogOptions{
		Title: "Select CSV Files",
		Filters: []wailsRuntime.FileFilter{
			{DisplayName: "CSV Files", Pattern: "*.csv"},
			{DisplayName: "TSV Files", Pattern: "*.tsv;*.tab"},
			{DisplayName: "All Files", Pattern: "*.*"},
		},
	})
	if err != nil {
		return a.selection.Paths(), err
	}
	return a.selection.Add(paths...), nil
}

// ClearFiles empties the selection.
func (a *App) ClearFiles() []string {
	a.selection.Clear()
	return a.selection.Paths()
}

// RemoveFile drops one entry from the selection.
func (a *App) RemoveFile(index int) ([]string, error) {
	return a.selection.Remove(index)
}

// ListFiles returns the current selection in order.
func (a *App) ListFiles() []string {
	return a.selection.Paths()
}

// BrowseOutputDir opens a native directory dialog.
// An empty string means the user cancelled.
func (a *App) BrowseOutputDir() (string, error) {
	return wailsRuntime.OpenDirectoryDialog(a.ctx, wailsRuntime.OpenDialogOptions{
		Title:                "Select Output Directory",
		CanCreateDirectories: true,
	})
}

// ── Run ────────────────────────────────────────────────────

// StartConversion runs the selected files in the background and returns the
// job ID. Validation problems are shown as a warning dialog and returned.
func (a *App) StartConversion(input ConvertInput) (string, error) {
	if a.convert == nil {
		return "", fmt.Errorf("app not started")
	}
	id, err := a.convert.Start(a.ctx, jobFromInput(a.selection.Paths(), input))
	if err != nil {
		a.warnValidation(err)
		return "", err
	}
	return id, nil
}

// IsConverting reports whether a conversion is running. The frontend polls it.
func (a *App) IsConverting() bool {
	return a.convert != nil && a.convert.Running()
}

// SetWatch turns watch mode on or off for the current selection.
func (a *App) SetWatch(enabled bool, input ConvertInput) error {
	if a.convert == nil {
		return fmt.Errorf("app not started")
	}
	if !enabled {
		a.convert.StopWatch()
		return nil
	}
	if err := a.convert.Watch(a.ctx, jobFromInput(a.selection.Paths(), input)); err != nil {
		a.warnValidation(err)
		return err
	}
	return nil
}

// IsWatching reports whether watch mode is on.
func (a *App) IsWatching() bool {
	return a.convert != nil && a.convert.Watching()
}

// validationMessages are the warning dialog texts for rejected requests.
var validationMessages = []struct {
	err error
	msg string
}{
	{service.ErrNoInputFiles, "Please select CSV files first."},
	{service.ErrNoOutputDir, "Please choose an output directory."},
}

func (a *App) warnValidation(err error) {
	for _, v := range validationMessages {
		if errors.Is(err, v.err) {
			(&dialogNotifier{app: a}).Warning("Warning", v.msg)
			return
		}
	}
	if errors.Is(err, service.ErrConversionRunning) {
		a.logger.Debug("conversion request ignored", zap.Error(err))
		return
	}
	a.logger.Warn("conversion request failed", zap.Error(err))
}

// ── Inspection ─────────────────────────────────────────────

// RequiredFields lists the fields kept in the output, in order.
func (a *App) RequiredFields() []string {
	out := make([]string, len(etl.RequiredFields))
	copy(out, etl.RequiredFields)
	return out
}

// ListSources lists the supported input formats.
func (a *App) ListSources() []etl.SourceSpec {
	return etl.ListSources()
}

// PreviewFile shows the header, field coverage and first rows of one input.
func (a *App) PreviewFile(path string) (*etl.PreviewResult, error) {
	if a.convert == nil {
		return nil, fmt.Errorf("app not started")
	}
	return a.convert.Preview(a.ctx, path, 10)
}

// ListRuns returns recent conversion runs, newest first.
func (a *App) ListRuns() ([]etl.RunLog, error) {
	if a.runs == nil {
		return []etl.RunLog{}, nil
	}
	return a.runs.ListRuns(historyLimit)
}
