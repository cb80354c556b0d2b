package maps

import (
	"horse-race/backend/internal/vecmath"
	"horse-race/backend/internal/world"
)

const (
	DefaultTrackName = "Default Track"
	SpiralTrackName  = "Spiral Track"
	MazeTrackName    = "Maze Track"
)

func spiralTrack() []world.Obstacle {
	return []world.Obstacle{
		// внешние стены
		world.NewObstacle(0.1, 0.1, 0.8, 0.05),
		world.NewObstacle(0.1, 0.1, 0.05, 0.8),
		world.NewObstacle(0.1, 0.85, 0.8, 0.05),
		world.NewObstacle(0.85, 0.1, 0.05, 0.8),

		// витки спирали
		world.NewObstacle(0.2, 0.2, 0.6, 0.05),
		world.NewObstacle(0.2, 0.2, 0.05, 0.6),
		world.NewObstacle(0.2, 0.75, 0.5, 0.05),
		world.NewObstacle(0.7, 0.2, 0.05, 0.5),

		world.NewObstacle(0.3, 0.3, 0.4, 0.05),
		world.NewObstacle(0.3, 0.3, 0.05, 0.4),
		world.NewObstacle(0.3, 0.65, 0.3, 0.05),
		world.NewObstacle(0.6, 0.3, 0.05, 0.3),

		world.NewObstacle(0.4, 0.4, 0.15, 0.05),
		world.NewObstacle(0.4, 0.4, 0.05, 0.15),
	}
}

func mazeTrack() []world.Obstacle {
	return []world.Obstacle{
		// внешние стены
		world.NewObstacle(0.1, 0.1, 0.8, 0.05),
		world.NewObstacle(0.1, 0.1, 0.05, 0.8),
		world.NewObstacle(0.1, 0.85, 0.8, 0.05),
		world.NewObstacle(0.85, 0.1, 0.05, 0.8),

		// лабиринт
		world.NewObstacle(0.25, 0.25, 0.05, 0.3),
		world.NewObstacle(0.25, 0.25, 0.3, 0.05),
		world.NewObstacle(0.4, 0.25, 0.05, 0.2),
		world.NewObstacle(0.55, 0.25, 0.05, 0.3),
		world.NewObstacle(0.55, 0.25, 0.2, 0.05),
		world.NewObstacle(0.25, 0.4, 0.15, 0.05),
		world.NewObstacle(0.7, 0.4, 0.05, 0.3),
		world.NewObstacle(0.4, 0.55, 0.3, 0.05),
		world.NewObstacle(0.4, 0.55, 0.05, 0.2),
		world.NewObstacle(0.55, 0.7, 0.2, 0.05),
		world.NewObstacle(0.25, 0.7, 0.15, 0.05),
	}
}

// DefaultMaps встроенные трассы, которыми заполняется пустая библиотека
func DefaultMaps() []MapData {
	return []MapData{
		{
			Name:       DefaultTrackName,
			Obstacles:  world.DefaultTrack(),
			HorseSpawn: world.Some(vecmath.New(0.15, 0.85)),
			CoinSpawn:  world.Some(vecmath.New(0.85, 0.15)),
		},
		{
			Name:       SpiralTrackName,
			Obstacles:  spiralTrack(),
			HorseSpawn: world.Some(vecmath.New(0.175, 0.75)),
			CoinSpawn:  world.Some(vecmath.New(0.5, 0.5)),
		},
		{
			Name:       MazeTrackName,
			Obstacles:  mazeTrack(),
			HorseSpawn: world.Some(vecmath.New(0.2, 0.2)),
			CoinSpawn:  world.Some(vecmath.New(0.85, 0.85)),
		},
	}
}
