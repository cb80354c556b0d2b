package world

// DefaultTrack препятствия стандартной трассы: центральный блок и четыре стенки вокруг него
func DefaultTrack() []Obstacle {
	return []Obstacle{
		NewObstacle(0.4, 0.4, 0.2, 0.2),   // центр
		NewObstacle(0.3, 0.2, 0.4, 0.05),  // верх
		NewObstacle(0.3, 0.75, 0.4, 0.05), // низ
		NewObstacle(0.2, 0.3, 0.05, 0.4),  // лево
		NewObstacle(0.75, 0.3, 0.05, 0.4), // право
	}
}
