package racecontrol

import (
	"context"

	"horse-race/backend/internal/game"
	"horse-race/backend/internal/maps"
	"horse-race/backend/internal/stats"
	"horse-race/backend/internal/vecmath"
	"horse-race/backend/internal/world"
)

// RaceControlPort определяет интерфейс управления гонкой для внешних адаптеров
type RaceControlPort interface {
	// Snapshot возвращает копию текущего состояния гонки
	Snapshot() game.Snapshot

	// StartCountdown запускает обратный отсчет
	StartCountdown()

	// RestartGame пересоздает лошадей и монету и запускает отсчет
	RestartGame()

	// SetStatus принудительно устанавливает статус гонки
	SetStatus(status game.Status) error

	// InitializeRace пересоздает гонку с заданными параметрами
	InitializeRace(horseCount int, obstacles []world.Obstacle, area game.StartArea, coin vecmath.Vector2D) error

	// LoadMap загружает карту из библиотеки в симуляцию
	LoadMap(ctx context.Context, id string) (maps.MapData, error)

	// SetObstacles заменяет препятствия текущей карты
	SetObstacles(obstacles []world.Obstacle) error

	// SetHorseSpawn переносит зону старта лошадей
	SetHorseSpawn(pos vecmath.Vector2D) error

	// SetCoinSpawn переносит монету
	SetCoinSpawn(pos vecmath.Vector2D) error

	// SetCanvasSize запоминает размер холста клиента
	SetCanvasSize(size float64)
}

// MapLibraryPort определяет интерфейс работы с библиотекой карт
type MapLibraryPort interface {
	ListMaps(ctx context.Context) ([]maps.MapData, error)
	GetMap(ctx context.Context, id string) (maps.MapData, error)
	SaveMap(ctx context.Context, name string, obstacles []world.Obstacle, horseSpawn, coinSpawn world.OptionalPoint) (maps.MapData, error)
	DeleteMap(ctx context.Context, id string) error
}

// StatsPort определяет интерфейс статистики гонок
type StatsPort interface {
	Stats() stats.Stats
	ResetStats(ctx context.Context) error
	SetDefaultMap(ctx context.Context, id string) error
}

// Port полный набор операций сервиса гонки
type Port interface {
	RaceControlPort
	MapLibraryPort
	StatsPort
}
