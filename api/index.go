package handler

import (
	"context"
	"net/http"

	"github.com/arnavshah/staff-calendar-api-go/pkg/app"
	"github.com/arnavshah/staff-calendar-api-go/pkg/config"
	"github.com/gin-gonic/gin"
)

var r http.Handler

func init() {
	cfg := config.Load()
	// The serverless filesystem is read-only outside /tmp
	if cfg.LogDir == "logs" {
		cfg.LogDir = "/tmp/logs"
	}

	gin.SetMode(gin.ReleaseMode)
	a, err := app.New(cfg)
	if err != nil {
		panic(err)
	}
	if err := a.Bootstrap(context.Background()); err != nil {
		a.Logger.Error("bootstrap failed", "error", err)
	}
	r = a.Router()
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
