package main

import (
	"embed"
	"flag"
	"fmt"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"go.uber.org/zap"

	csvjsonApp "csvjson/internal/app"
	"csvjson/internal/logging"
)

//go:embed all:frontend/dist
var assets embed.FS

//go:embed build/appicon.png
var icon []byte

func main() {
	mcpMode := flag.Bool("mcp", false, "run as a headless MCP server on stdin/stdout")
	flag.Parse()

	logger, err := logging.New(false)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *mcpMode {
		if err := csvjsonApp.ServeMCP(logger); err != nil {
			logger.Fatal("mcp server", zap.Error(err))
		}
		return
	}

	app := csvjsonApp.New(logger)

	// macOS needs an Edit menu for Cmd+C/V/X/A to reach the WebView
	appMenu := menu.NewMenu()
	appMenu.Append(menu.EditMenu())

	err = wails.Run(&options.App{
		Title:     "CSV to JSON Converter",
		Width:     700,
		Height:    530,
		MinWidth:  600,
		MinHeight: 480,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 245, G: 245, B: 245, A: 1},
		Menu:             appMenu,
		Logger:           logging.NewWailsAdapter(logger),
		OnStartup:        app.Startup,
		OnShutdown:       app.Shutdown,
		Bind: []interface{}{
			app,
		},
		Mac: &mac.Options{
			About: &mac.AboutInfo{
				Title:   "CSV to JSON Converter",
				Message: "Converts CSV files to JSON, one file per input or merged",
				Icon:    icon,
			},
		},
	})

	if err != nil {
		logger.Error("wails run", zap.Error(err))
	}
}
