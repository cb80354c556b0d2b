package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"horse-race/backend/internal/core/port/in/racecontrol"
	"horse-race/backend/internal/game"
	"horse-race/backend/internal/maps"
	"horse-race/backend/internal/stats"
	"horse-race/backend/internal/vecmath"
	"horse-race/backend/internal/world"
)

// RaceService реализует управление гонкой поверх симуляции, библиотеки карт и статистики
type RaceService struct {
	sim      *game.Simulation
	library  *maps.Library
	recorder *stats.Recorder
	logger   *log.Logger
}

var _ racecontrol.Port = (*RaceService)(nil)

// NewRaceService создает новый экземпляр сервиса гонки
func NewRaceService(sim *game.Simulation, library *maps.Library, recorder *stats.Recorder, logger *log.Logger) *RaceService {
	if logger == nil {
		logger = log.Default()
	}
	return &RaceService{
		sim:      sim,
		library:  library,
		recorder: recorder,
		logger:   logger,
	}
}

func (s *RaceService) Snapshot() game.Snapshot {
	return s.sim.Snapshot()
}

func (s *RaceService) StartCountdown() {
	s.sim.StartCountdown()
}

func (s *RaceService) RestartGame() {
	s.sim.RestartGame()
}

func (s *RaceService) SetStatus(status game.Status) error {
	return s.sim.SetStatus(status)
}

func (s *RaceService) InitializeRace(horseCount int, obstacles []world.Obstacle, area game.StartArea, coin vecmath.Vector2D) error {
	return s.sim.InitializeRace(horseCount, obstacles, area, coin)
}

// LoadMap загружает карту из библиотеки в симуляцию
func (s *RaceService) LoadMap(ctx context.Context, id string) (maps.MapData, error) {
	m, err := s.library.Map(ctx, id)
	if err != nil {
		return maps.MapData{}, err
	}
	if err := s.sim.LoadMapWithID(m.ID, m.Obstacles, m.HorseSpawn, m.CoinSpawn); err != nil {
		return maps.MapData{}, fmt.Errorf("error loading map %s: %w", id, err)
	}

	s.logger.Printf("[RaceService] Загружена карта %s (%s)", m.Name, m.ID)
	return m, nil
}

// LoadDefaultMap загружает карту по умолчанию из настроек, иначе стандартную трассу.
// Возвращает false, если подходящей карты в библиотеке нет.
func (s *RaceService) LoadDefaultMap(ctx context.Context) (maps.MapData, bool, error) {
	id, ok, err := s.recorder.DefaultMap(ctx)
	if err != nil {
		return maps.MapData{}, false, err
	}

	if ok {
		m, err := s.LoadMap(ctx, id)
		if err == nil {
			return m, true, nil
		}
		if !errors.Is(err, maps.ErrMapNotFound) {
			return maps.MapData{}, false, err
		}
		s.logger.Printf("[RaceService] ПРЕДУПРЕЖДЕНИЕ: карта по умолчанию %s не найдена", id)
	}

	m, err := s.library.FindByName(ctx, maps.DefaultTrackName)
	if errors.Is(err, maps.ErrMapNotFound) {
		return maps.MapData{}, false, nil
	}
	if err != nil {
		return maps.MapData{}, false, err
	}
	if _, err := s.LoadMap(ctx, m.ID); err != nil {
		return maps.MapData{}, false, err
	}
	return m, true, nil
}

func (s *RaceService) SetObstacles(obstacles []world.Obstacle) error {
	return s.sim.SetMapObstacles(obstacles)
}

func (s *RaceService) SetHorseSpawn(pos vecmath.Vector2D) error {
	return s.sim.SetHorseStartPosition(pos)
}

func (s *RaceService) SetCoinSpawn(pos vecmath.Vector2D) error {
	return s.sim.SetCoinPosition(pos)
}

func (s *RaceService) SetCanvasSize(size float64) {
	s.sim.SetCanvasSize(size)
}

func (s *RaceService) ListMaps(ctx context.Context) ([]maps.MapData, error) {
	return s.library.Maps(ctx)
}

func (s *RaceService) GetMap(ctx context.Context, id string) (maps.MapData, error) {
	return s.library.Map(ctx, id)
}

func (s *RaceService) SaveMap(ctx context.Context, name string, obstacles []world.Obstacle, horseSpawn, coinSpawn world.OptionalPoint) (maps.MapData, error) {
	return s.library.SaveMap(ctx, name, obstacles, horseSpawn, coinSpawn)
}

func (s *RaceService) DeleteMap(ctx context.Context, id string) error {
	return s.library.DeleteMap(ctx, id)
}

func (s *RaceService) Stats() stats.Stats {
	return s.recorder.Stats()
}

func (s *RaceService) ResetStats(ctx context.Context) error {
	return s.recorder.Reset(ctx)
}

// SetDefaultMap запоминает карту, загружаемую при старте сервера
func (s *RaceService) SetDefaultMap(ctx context.Context, id string) error {
	if _, err := s.library.Map(ctx, id); err != nil {
		return err
	}
	return s.recorder.SetDefaultMap(ctx, id)
}
