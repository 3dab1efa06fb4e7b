package main

import (
	"context"
	"os"

	"github.com/arnavshah/staff-calendar-api-go/pkg/app"
	"github.com/arnavshah/staff-calendar-api-go/pkg/config"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	if cfg.GinMode == "" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(cfg.GinMode)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal("could not start", "error", err)
	}
	if err := a.Bootstrap(context.Background()); err != nil {
		a.Logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	a.Logger.Info("Server starting", "port", cfg.Port)
	if err := a.Router().Run(":" + cfg.Port); err != nil {
		a.Logger.Error("could not run server", "error", err)
		os.Exit(1)
	}
}
