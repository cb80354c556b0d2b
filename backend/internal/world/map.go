package world

import (
	"fmt"
	"math"
	"slices"

	"horse-race/backend/internal/vecmath"
)

// CollisionInfo результат детальной проверки коллизии с препятствием
type CollisionInfo struct {
	Collided    bool             `json:"collided"`
	Normal      vecmath.Vector2D `json:"normal"`      // от препятствия к центру объекта
	Penetration float64          `json:"penetration"` // глубина проникновения
	Obstacle    int              `json:"obstacle"`    // индекс препятствия, -1 если нет коллизии
}

// Map статичная арена. Не изменяется после создания:
// при смене препятствий создается новая карта.
type Map struct {
	bounds    Bounds
	obstacles []Obstacle
	grid      *Grid
}

// NewMap создает карту с границами по умолчанию.
// Если хотя бы одно препятствие некорректно, карта создается пустой.
func NewMap(obstacles []Obstacle) *Map {
	m, err := NewMapWithBounds(DefaultBounds(), obstacles, DefaultCellSize)
	if err != nil {
		m, _ = NewMapWithBounds(DefaultBounds(), nil, DefaultCellSize)
	}
	return m
}

// NewMapWithBounds создает карту и строит сетку препятствий
func NewMapWithBounds(bounds Bounds, obstacles []Obstacle, cellSize float64) (*Map, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	for i, o := range obstacles {
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("препятствие %d: %w", i, err)
		}
	}

	m := &Map{
		bounds:    bounds,
		obstacles: slices.Clone(obstacles),
		grid:      NewGrid(cellSize),
	}
	m.grid.Build(m.obstacles)

	return m, nil
}

func (m *Map) Bounds() Bounds {
	return m.bounds
}

// Obstacles возвращает копию списка препятствий
func (m *Map) Obstacles() []Obstacle {
	return slices.Clone(m.obstacles)
}

// Grid сетка карты. Ячейки препятствий построены при создании карты,
// ячейки объектов заполняет симуляция через Reindex.
func (m *Map) Grid() *Grid {
	return m.grid
}

// CheckCollision true если круг пересекает хотя бы одно препятствие
func (m *Map) CheckCollision(body Body) bool {
	pos, radius := body.Pos(), body.Radius()
	_, candidates := m.grid.QueryArea(pos, radius)

	for _, idx := range candidates {
		o := m.obstacles[idx]
		if pos.Distance(o.ClosestPoint(pos)) <= radius {
			return true
		}
	}
	return false
}

// CollisionInfo возвращает нормаль и глубину проникновения для первого
// пересекаемого препятствия (в порядке списка препятствий)
func (m *Map) CollisionInfo(body Body) CollisionInfo {
	pos, radius := body.Pos(), body.Radius()
	_, candidates := m.grid.QueryArea(pos, radius)

	for _, idx := range candidates {
		o := m.obstacles[idx]
		closest := o.ClosestPoint(pos)
		distance := pos.Distance(closest)
		if distance > radius {
			continue
		}

		if distance > 0 {
			return CollisionInfo{
				Collided:    true,
				Normal:      pos.Sub(closest).Scale(1 / distance),
				Penetration: radius - distance,
				Obstacle:    idx,
			}
		}

		// Центр на границе или внутри прямоугольника
		normal := pos.Sub(o.Center()).Unit()
		if normal.IsZero() {
			normal = vecmath.New(1, 0)
		}
		return CollisionInfo{
			Collided:    true,
			Normal:      normal,
			Penetration: exitDistance(o, pos, normal, radius),
			Obstacle:    idx,
		}
	}

	return CollisionInfo{Obstacle: -1}
}

// exitDistance расстояние вдоль n, на которое нужно сдвинуть точку p,
// чтобы она покинула прямоугольник, расширенный на radius
func exitDistance(o Obstacle, p, n vecmath.Vector2D, radius float64) float64 {
	lo, hi := o.Min(), o.Max()
	t := math.Inf(1)

	if n.X > 0 {
		t = math.Min(t, (hi.X+radius-p.X)/n.X)
	} else if n.X < 0 {
		t = math.Min(t, (lo.X-radius-p.X)/n.X)
	}
	if n.Y > 0 {
		t = math.Min(t, (hi.Y+radius-p.Y)/n.Y)
	} else if n.Y < 0 {
		t = math.Min(t, (lo.Y-radius-p.Y)/n.Y)
	}

	if math.IsInf(t, 1) || t < 0 {
		return radius
	}
	return t
}
