package main

import (
	"embed"
	"flag"
	"log"

	"github.com/magicphoto/relief/pkg/config"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	settingsPath := flag.String("settings", config.DefaultPath, "path to the JSON settings file")
	flag.Parse()

	settings, err := config.LoadOrDefault(*settingsPath)
	if err != nil {
		log.Fatalf("Loading settings: %v", err)
	}
	app := NewAppWithSettings(settings)

	err = wails.Run(&options.App{
		Title:  "Relief",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup: app.startup,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
