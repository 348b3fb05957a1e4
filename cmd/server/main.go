package main

import (
	"context"
	"log"

	"github.com/kyan-si/kyan/internal/config"
	"github.com/kyan-si/kyan/internal/server"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
