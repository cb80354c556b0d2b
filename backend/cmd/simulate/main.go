package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"horse-race/backend/internal/core/domain/service"
	"horse-race/backend/internal/game"
	"horse-race/backend/internal/maps"
	"horse-race/backend/internal/stats"
	"horse-race/backend/internal/telemetry"
)

func main() {
	runs := flag.Int("runs", 100, "количество гонок")
	seed := flag.Uint64("seed", 1, "зерно генератора случайных чисел")
	horses := flag.Int("horses", 4, "количество лошадей")
	mapName := flag.String("map", maps.DefaultTrackName, "имя встроенной карты")
	tps := flag.Int("tps", 60, "шагов симуляции в секунду гоночного времени")
	verbose := flag.Bool("v", false, "выводить журнал симуляции")
	withTelemetry := flag.Bool("telemetry", false, "собирать телеметрию и вывести сводку")
	flag.Parse()

	if *runs <= 0 || *tps <= 0 {
		log.Fatalf("runs и tps должны быть положительными")
	}

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "", log.Lmicroseconds)
	}

	ctx := context.Background()

	settings := game.DefaultSettings()
	settings.Horse.Count = *horses
	sim := game.NewSimulation(settings, rand.New(rand.NewPCG(*seed, *seed^0x9E3779B97F4A7C15)), logger)

	library := maps.NewLibrary(maps.NewMemoryStore(), logger)
	if _, err := library.EnsureDefaults(ctx); err != nil {
		log.Fatalf("Ошибка создания встроенных карт: %v", err)
	}
	recorder, err := stats.NewRecorder(ctx, stats.NewMemoryStore(), logger)
	if err != nil {
		log.Fatalf("Ошибка создания статистики: %v", err)
	}
	sim.AddListener(recorder)

	timeUps := 0
	sim.AddListener(game.EventListenerFunc(func(event game.Event) {
		if event.Type == game.EventTimeUp {
			timeUps++
		}
	}))

	race := service.NewRaceService(sim, library, recorder, logger)
	m, err := library.FindByName(ctx, *mapName)
	if err != nil {
		log.Fatalf("Карта %q: %v", *mapName, err)
	}
	if _, err := race.LoadMap(ctx, m.ID); err != nil {
		log.Fatalf("Ошибка загрузки карты: %v", err)
	}

	// Гонка идет через те же системы, что и на сервере, но без реального времени
	ticker := game.NewGameTicker(*tps, logger)
	ticker.RegisterSystem(game.NewRaceSystem(sim, ticker, logger))
	var tm *telemetry.TelemetryManager
	if *withTelemetry {
		tm = telemetry.NewTelemetryManager(log.New(os.Stdout, "", 0))
		ticker.RegisterSystem(game.NewTelemetrySystem(sim, tm, time.Second, logger))
	}

	dt := time.Second / time.Duration(*tps)
	maxSteps := int((settings.Race.GameDuration+float64(settings.Countdown.Initial+1)*settings.Countdown.TimePerNumber)*float64(*tps)) + *tps

	var totalTime float64
	for run := 0; run < *runs; run++ {
		race.RestartGame()
		for step := 0; step < maxSteps && sim.Status() != game.StatusEnded; step++ {
			if err := ticker.Step(dt); err != nil {
				log.Fatalf("Ошибка шага: %v", err)
			}
		}
		snap := sim.Snapshot()
		if snap.Status != game.StatusEnded {
			log.Fatalf("Гонка %d не завершилась за %d шагов", run+1, maxSteps)
		}
		totalTime += snap.GameTime
	}

	result := recorder.Stats()
	ids := make([]string, 0, len(result.Wins))
	for id := range result.Wins {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	fmt.Printf("Карта: %s, гонок: %d, лошадей: %d, зерно: %d\n", m.Name, *runs, *horses, *seed)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Лошадь\tПобед\tДоля")
	for _, id := range ids {
		fmt.Fprintf(w, "%s\t%d\t%.1f%%\n", id, result.Wins[id], 100*float64(result.Wins[id])/float64(*runs))
	}
	fmt.Fprintf(w, "Время вышло\t%d\t%.1f%%\n", timeUps, 100*float64(timeUps)/float64(*runs))
	w.Flush()
	fmt.Printf("Среднее время гонки: %.2f с\n", totalTime/float64(*runs))

	if tm != nil {
		tm.PrintSummary()
	}
	if rm, ok := ticker.Monitor().SystemMetrics("RaceSystem"); ok {
		fmt.Printf("Шагов: %d, среднее время шага: %v\n", rm.Executions, rm.Average)
	}
}
