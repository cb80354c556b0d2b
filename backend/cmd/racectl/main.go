package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"time"

	"horse-race/backend/internal/game"
	"horse-race/backend/internal/transport/racerpc"
	"horse-race/backend/internal/world"
)

const usage = `Использование: racectl [-addr host:port] <команда>

Команды:
  state        текущее состояние гонки
  start        запустить обратный отсчет
  restart      пересоздать гонку и запустить отсчет
  maps         список карт
  load <id>    загрузить карту
  clear        убрать все препятствия с текущей карты
  stats        статистика побед
`

func main() {
	addr := flag.String("addr", "localhost:50051", "адрес gRPC сервера")
	timeout := flag.Duration("timeout", 5*time.Second, "таймаут запроса")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	client, err := racerpc.NewClient(*addr)
	if err != nil {
		log.Fatalf("Ошибка подключения к %s: %v", *addr, err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, client, flag.Args()); err != nil {
		log.Fatalf("Ошибка: %v", err)
	}
}

func run(ctx context.Context, client *racerpc.Client, args []string) error {
	switch args[0] {
	case "state":
		state, err := client.GetState(ctx)
		if err != nil {
			return err
		}
		printState(state)

	case "start":
		state, err := client.StartCountdown(ctx)
		if err != nil {
			return err
		}
		printState(state)

	case "restart":
		state, err := client.RestartGame(ctx)
		if err != nil {
			return err
		}
		printState(state)

	case "maps":
		all, err := client.ListMaps(ctx)
		if err != nil {
			return err
		}
		for _, m := range all {
			fmt.Printf("%s  %-20s препятствий: %d\n", m.ID, m.Name, len(m.Obstacles))
		}

	case "load":
		if len(args) < 2 {
			return fmt.Errorf("не указан id карты")
		}
		m, err := client.LoadMap(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Загружена карта %q (%s)\n", m.Name, m.ID)

	case "clear":
		state, err := client.SetObstacles(ctx, []world.Obstacle{})
		if err != nil {
			return err
		}
		printState(state)

	case "stats":
		s, err := client.GetStats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Гонок сыграно: %d\n", s.GamesPlayed)
		if !s.LastPlayed.IsZero() {
			fmt.Printf("Последняя гонка: %s\n", s.LastPlayed.Local().Format(time.DateTime))
		}
		ids := make([]string, 0, len(s.Wins))
		for id := range s.Wins {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			fmt.Printf("  %s: %d\n", id, s.Wins[id])
		}

	default:
		return fmt.Errorf("неизвестная команда %q", args[0])
	}
	return nil
}

func printState(state game.Snapshot) {
	fmt.Printf("Статус: %s, время: %.2f с, тик: %d\n", state.Status, state.GameTime, state.Tick)
	if state.Map.ID != "" {
		fmt.Printf("Карта: %s, препятствий: %d\n", state.Map.ID, len(state.Map.Obstacles))
	} else {
		fmt.Printf("Препятствий: %d\n", len(state.Map.Obstacles))
	}
	if state.Countdown != nil && state.Countdown.Active {
		fmt.Printf("Отсчет: %d\n", state.Countdown.Value)
	}
	if state.Winner != "" {
		fmt.Printf("Победитель: %s\n", state.Winner)
	}
	for _, h := range state.Horses {
		fmt.Printf("  %s %s (%.3f, %.3f)\n", h.ID, h.Color, h.Position.X, h.Position.Y)
	}
}
