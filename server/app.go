package server

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"openwan/config"
	"openwan/internal/db"
	"openwan/internal/devices"
	"openwan/internal/gateway"
	"openwan/internal/health"
	"openwan/internal/logs"
	"openwan/internal/middleware"
	"openwan/internal/models"
	"openwan/internal/notify"
	"openwan/internal/poller"
	"openwan/internal/wanstatus"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type App struct {
	cfg        *config.Config
	Router     *mux.Router
	httpServer *http.Server

	db     *gorm.DB
	poller *poller.Poller
	ctx    context.Context
	cancel context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) {
	a.cfg = cfg

	// 1) Логи
	logs.Init(logs.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		File:   a.cfg.Logging.File,
	})

	// 2) БД
	if drv := a.cfg.Database.Driver; drv != "" {
		d, err := db.Open(drv, a.cfg.Database.DSN)
		if err != nil {
			log.Fatalf("db open failed: %v", err)
		}
		a.db = d
	}

	// ---- DB migrations (only if DB is connected) ----
	if a.db != nil {
		// 1) One-off normalization of the legacy recipient column
		if err := db.MigrateRecipientColumn(a.db); err != nil {
			logs.Logger.Warnf("recipient column migration: %v", err)
		}

		// 2) AutoMigrate domain models
		if err := a.db.AutoMigrate(
			&models.Device{},
			&models.WanStatusRecord{},
		); err != nil {
			logs.Logger.Errorf("automigrate: %v", err)
		}
	}

	// 3) Роутер + middleware
	a.Router = mux.NewRouter()
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(middleware.LoggerMW)

	// 4) Health маршруты
	if a.db != nil {
		health.RegisterRoutesWithDB(a.Router, a.db) // /healthz и /readyz
	} else {
		health.RegisterRoutes(a.Router)
	}

	// 5) Доменные компоненты: шлюзовый клиент, устройства, детектор, почта
	if a.db != nil {
		gwClient := gateway.NewClient(a.cfg.Gateway.Timeout)
		devStore := devices.NewStore(a.db)

		sender := notify.NewSMTPSender(notify.SMTPConfig{
			Host:     a.cfg.Mail.Host,
			Port:     a.cfg.Mail.Port,
			Username: a.cfg.Mail.Username,
			Password: a.cfg.Mail.Password,
			From:     a.cfg.Mail.From,
		})
		dispatcher := notify.NewDispatcher(devStore, sender)

		wanSvc := wanstatus.NewService(wanstatus.NewRepo(a.db), dispatcher)

		devHTTP := devices.NewHTTP(devStore, gwClient)
		devHTTP.RegisterRoutes(a.Router)

		wanHTTP := wanstatus.NewHTTP(wanSvc)
		wanHTTP.RegisterRoutes(a.Router)

		// 6) Внутренний поллер (опционален: вход по умолчанию — POST /wanstatus)
		if a.cfg.Poller.Enabled {
			a.poller = poller.New(devStore, gwClient, wanSvc, a.cfg.Poller.Interval)
		}
	}

	a.Router.Walk(func(rt *mux.Route, r *mux.Router, ancestors []*mux.Route) error {
		path, _ := rt.GetPathTemplate()
		methods, _ := rt.GetMethods()
		log.Printf("route: %-6v %s", methods, path)
		return nil
	})
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return ErrNotInitialized
	}
	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-sigs; a.cancel() }()

	if a.poller != nil {
		go a.poller.Start(a.ctx)
	}

	a.httpServer = &http.Server{
		Addr:         bind,
		Handler:      a.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-a.ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.httpServer.Shutdown(ctx)
	return nil
}

var ErrNotInitialized = &initError{"server not initialized (call Initialize(cfg) first)"}

type initError struct{ s string }

func (e *initError) Error() string { return e.s }
