package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jomapps/aladdin-sub006/internal/app"
	"github.com/jomapps/aladdin-sub006/internal/platform/shutdown"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	a.Start()

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	err = a.Run(ctx)
	a.Close()
	if err != nil {
		fmt.Printf("server exited: %v\n", err)
		os.Exit(1)
	}
}
