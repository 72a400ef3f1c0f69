package main

import (
	"context"
	"fmt"
	"log"

	"github.com/pkgforge/gallery/internal/server"
	"github.com/pkgforge/gallery/internal/server/config"
)

var (
	buildVersion = "N/A"
	buildDate    = "N/A"
)

func main() {
	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)

	cfg := config.LoadConfig()

	app := server.NewApp(cfg)
	if err := app.Run(context.Background()); err != nil {
		log.Fatal(err)
	}
}
