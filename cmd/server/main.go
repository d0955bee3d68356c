package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/config"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/repository/mongodb"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/repository/sheets"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/scheduler"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/server/handlers"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/server/router"
	attendancesvc "github.com/polatjonbaxtiyorov/mytushlikbot/internal/service/attendance"
	menusvc "github.com/polatjonbaxtiyorov/mytushlikbot/internal/service/menus"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/service/notify"
	rostersvc "github.com/polatjonbaxtiyorov/mytushlikbot/internal/service/roster"
	settlementsvc "github.com/polatjonbaxtiyorov/mytushlikbot/internal/service/settlement"
	"github.com/polatjonbaxtiyorov/mytushlikbot/pkg/clients/telegram"
	"github.com/polatjonbaxtiyorov/mytushlikbot/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	location, err := time.LoadLocation(cfg.Lunch.Timezone)
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.String("timezone", cfg.Lunch.Timezone), zap.Error(err))
	}

	ledger, err := sheets.NewGoogleSheetLedger(context.Background(), cfg.Sheets, location, baseLogger.Named("repo.sheets"))
	if err != nil {
		baseLogger.Fatal("failed to init sheets ledger", zap.Error(err))
	}

	store, err := mongodb.NewMongoStore(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	if err := store.EnsureIndexes(context.Background()); err != nil {
		baseLogger.Fatal("failed to ensure mongodb indexes", zap.Error(err))
	}

	botClient := telegram.NewClient(cfg.Telegram)
	notifier := notify.NewTelegramNotifier(botClient, baseLogger.Named("svc.notify"))

	attendanceSvc := attendancesvc.NewService(store, store, store, ledger, notifier, location, baseLogger.Named("svc.attendance"))
	settlementSvc := settlementsvc.NewService(store, store, store, ledger, notifier, attendanceSvc, location, baseLogger.Named("svc.settlement"))
	rosterSvc := rostersvc.NewService(store, store, store, ledger, notifier, cfg.Lunch.DefaultInitialBalance, cfg.Lunch.DefaultDailyPrice, baseLogger.Named("svc.roster"))
	menuSvc := menusvc.NewService(store, location, baseLogger.Named("svc.menus"))

	attendanceHandler := handlers.NewAttendanceHandler(attendanceSvc, baseLogger.Named("handlers.attendance"))
	rosterHandler := handlers.NewRosterHandler(rosterSvc, menuSvc, baseLogger.Named("handlers.roster"))
	adminHandler := handlers.NewAdminHandler(rosterSvc, menuSvc, settlementSvc, baseLogger.Named("handlers.admin"))
	engine := router.New(attendanceHandler, rosterHandler, adminHandler, store, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(settlementSvc, location, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
