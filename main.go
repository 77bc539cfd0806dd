package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agrovista/fieldmap/backend"
	"github.com/agrovista/fieldmap/config"
	"github.com/agrovista/fieldmap/logger"
	"github.com/agrovista/fieldmap/models"
	"github.com/agrovista/fieldmap/routers"
	"github.com/agrovista/fieldmap/services"
	"github.com/agrovista/fieldmap/views"
)

func main() {
	log := logger.L()
	defer log.Sync()

	if err := models.InitDB(config.DBPath); err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}

	// Remote backend when configured, otherwise the local gorm store is
	// the authoritative collaborator.
	var be backend.Client
	if config.RemoteBase != "" {
		be = backend.NewHTTPClient(config.RemoteBase, log)
		log.Info("using remote backend", zap.String("base", config.RemoteBase))
	} else {
		be = backend.NewLocal(models.DB, config.MaxAreaHa, log)
	}

	edit := services.NewEditManager()
	status := services.NewStatusService()
	split := services.NewSplitOrchestrator(be, edit, config.MaxAreaHa, log)
	split.OnSession = status.SetSplitTarget
	split.OnApplied = func(ev services.AppliedEvent) {
		log.Info("aoi set changed", zap.Uints("affected", ev.AffectedAOIIDs))
	}

	// Status polling belongs out here, not inside the engine.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller := services.NewStatusPoller(status, be, config.FarmID,
		time.Duration(config.PollSeconds)*time.Second, log)
	go poller.Run(ctx)

	uc := &views.UserController{BE: be, Split: split, Edit: edit, Status: status}
	r := gin.Default()
	routers.GeoRouters(r, uc)

	log.Info("listening", zap.String("addr", config.Listen))
	if err := r.Run(config.Listen); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
