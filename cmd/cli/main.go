package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/dmitrijs2005/librarian/internal/client/cli"
	"github.com/dmitrijs2005/librarian/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		log.Fatalf("%v", err)
	}

}
