package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/db"
	montypes "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/monitoring"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Hub      *realtime.Hub
	bus      realtime.Bus
	cancel   context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	dbService, err := db.New(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	theDB := dbService.DB()

	var bus realtime.Bus
	if cfg.RedisEnabled {
		bus, err = realtime.NewRedisBus(log)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init snapshot bus: %w", err)
		}
	}
	hub := realtime.NewHub(bus, log)

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, hub)
	if err != nil {
		log.Sync()
		return nil, err
	}
	handlerset := wireHandlers(log, reposet, serviceset)
	router := wireRouter(cfg, handlerset)

	return &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		Hub:      hub,
		bus:      bus,
	}, nil
}

// Start launches the background job worker and, on forwarding instances, the
// bus subscription that replays remote snapshots into the local hub.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.JobWorker != nil {
		go a.Services.JobWorker.Start(ctx)
	}

	if a.bus != nil && a.Cfg.RedisForward {
		err := a.bus.StartForwarder(ctx, func(snap montypes.RiskSnapshot) {
			a.Hub.DispatchLocal(ctx, snap)
		})
		if err != nil {
			a.Log.Error("snapshot forwarder failed to start", "error", err)
		}
	}
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(a.Cfg.Addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.bus != nil {
		_ = a.bus.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
