package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"horse-race/backend/internal/api"
	"horse-race/backend/internal/config"
	"horse-race/backend/internal/core/domain/service"
	"horse-race/backend/internal/game"
	"horse-race/backend/internal/maps"
	"horse-race/backend/internal/stats"
	"horse-race/backend/internal/storage/sqlite"
	"horse-race/backend/internal/telemetry"
	"horse-race/backend/internal/transport/racerpc"
	"horse-race/backend/internal/transport/ws"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "config.json", "путь к файлу конфигурации")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Хранилище карт и статистики
	store, err := sqlite.Open(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatalf("Ошибка открытия базы %s: %v", cfg.DatabasePath, err)
	}
	defer store.Close()

	library := maps.NewLibrary(store, logger)
	if n, err := library.EnsureDefaults(ctx); err != nil {
		logger.Fatalf("Ошибка создания встроенных карт: %v", err)
	} else if n > 0 {
		logger.Printf("Созданы встроенные карты: %d", n)
	}

	watcher, err := maps.NewWatcher(cfg.MapsDir, library, logger)
	if err != nil {
		logger.Fatalf("Ошибка наблюдения за каталогом карт: %v", err)
	}
	watcher.OnImport(func(m maps.MapData) {
		logger.Printf("Импортирована карта %q (%s)", m.Name, m.ID)
	})
	if n, err := watcher.ImportExisting(ctx); err != nil {
		logger.Printf("ПРЕДУПРЕЖДЕНИЕ: %v", err)
	} else if n > 0 {
		logger.Printf("Импортировано карт из %s: %d", cfg.MapsDir, n)
	}
	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Printf("Наблюдение за картами остановлено: %v", err)
		}
	}()

	// Симуляция
	settings := game.DefaultSettings()
	settings.Horse.Count = cfg.HorseCount
	settings.Countdown.Initial = cfg.CountdownInitial
	sim := game.NewSimulation(settings, newRand(cfg.Seed), logger)

	recorder, err := stats.NewRecorder(ctx, store, logger)
	if err != nil {
		logger.Fatalf("Ошибка загрузки статистики: %v", err)
	}
	sim.AddListener(recorder)

	race := service.NewRaceService(sim, library, recorder, logger)
	if m, ok, err := race.LoadDefaultMap(ctx); err != nil {
		logger.Printf("ПРЕДУПРЕЖДЕНИЕ: карта по умолчанию не загружена: %v", err)
	} else if ok {
		logger.Printf("Загружена карта %q", m.Name)
	}

	wsServer := ws.NewWSServer(race, logger)
	sim.AddListener(wsServer)

	tm := telemetry.NewTelemetryManager(logger)
	tm.SetEnabled(cfg.Telemetry)

	// Игровой цикл
	ticker := game.NewGameTicker(cfg.TickRate, logger)
	ticker.RegisterSystem(game.NewRaceSystem(sim, ticker, logger))
	ticker.RegisterSystem(game.NewTelemetrySystem(sim, tm, time.Second, logger))
	ticker.RegisterSystem(game.NewBroadcastSystem(sim, ticker, wsServer, cfg.BroadcastEvery(), logger))
	ticker.RegisterSystem(game.NewGameMetricsSystem(ticker, logger))
	if err := ticker.Start(); err != nil {
		logger.Fatalf("Ошибка запуска игрового цикла: %v", err)
	}
	defer ticker.Stop()

	// HTTP: REST + WebSocket
	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(api.Deps{
			Race:      race,
			Telemetry: tm,
			Ticker:    ticker,
			WS:        wsServer,
			Logger:    logger,
		}),
	}
	go func() {
		logger.Printf("HTTP сервер слушает %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("Ошибка HTTP сервера: %v", err)
			stop()
		}
	}()

	// gRPC
	grpcServer := racerpc.NewGRPCServer(racerpc.NewServer(race, logger))
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Fatalf("Ошибка открытия порта gRPC %s: %v", cfg.GRPCAddr, err)
		}
		go func() {
			logger.Printf("gRPC сервер слушает %s", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Printf("Ошибка gRPC сервера: %v", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Println("Завершение работы...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	wsServer.CloseAll()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Ошибка остановки HTTP сервера: %v", err)
	}
	grpcServer.GracefulStop()

	snapshots, events := wsServer.Stats()
	logger.Printf("Отправлено снимков: %d, событий: %d", snapshots, events)
	if cfg.Telemetry {
		tm.PrintSummary()
	}
}

// newRand источник случайности симуляции. Нулевое зерно - случайное.
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
}
