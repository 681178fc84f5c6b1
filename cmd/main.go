package main

import (
	"fmt"
	"os"

	"github.com/yungbote/neurobridge-backend/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	fmt.Printf("Server listening on %s\n", a.Cfg.ListenAddr)
	if err := a.Run(a.Cfg.ListenAddr); err != nil {
		a.Log.Warn("Server failed", "error", err)
	}
}
