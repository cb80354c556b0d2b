package world

import (
	"math"
	"slices"

	"horse-race/backend/internal/vecmath"
)

// DefaultCellSize размер ячейки сетки по умолчанию (сетка 10x10 на единичном квадрате)
const DefaultCellSize = 0.1

// Grid пространственная сетка для отсечения кандидатов на коллизию.
// Препятствия раскладываются один раз при построении карты,
// объекты переиндексируются каждый тик.
type Grid struct {
	CellSize float64
	cols     int
	rows     int

	obstacleCells [][]int // индексы препятствий по ячейкам
	entityCells   [][]int // индексы объектов по ячейкам
	obstacleCount int
	entityCount   int
}

// NewGrid создает сетку над единичным квадратом
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 || cellSize > 1 {
		cellSize = DefaultCellSize
	}

	cols := int(math.Ceil(1 / cellSize))
	rows := cols

	return &Grid{
		CellSize:      cellSize,
		cols:          cols,
		rows:          rows,
		obstacleCells: make([][]int, cols*rows),
		entityCells:   make([][]int, cols*rows),
	}
}

// Dimensions возвращает число столбцов и строк
func (g *Grid) Dimensions() (int, int) {
	return g.cols, g.rows
}

// cellCoords координаты ячейки для точки (точки вне квадрата прижимаются к краю)
func (g *Grid) cellCoords(p vecmath.Vector2D) (int, int) {
	col := int(math.Floor(p.X / g.CellSize))
	row := int(math.Floor(p.Y / g.CellSize))
	return clampIndex(col, g.cols), clampIndex(row, g.rows)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Build раскладывает препятствия по всем ячейкам, которые пересекает их AABB
func (g *Grid) Build(obstacles []Obstacle) {
	for i := range g.obstacleCells {
		g.obstacleCells[i] = g.obstacleCells[i][:0]
	}

	for idx, obstacle := range obstacles {
		minCol, minRow := g.cellCoords(obstacle.Min())
		maxCol, maxRow := g.cellCoords(obstacle.Max())

		for row := minRow; row <= maxRow; row++ {
			for col := minCol; col <= maxCol; col++ {
				cell := row*g.cols + col
				g.obstacleCells[cell] = append(g.obstacleCells[cell], idx)
			}
		}
	}

	g.obstacleCount = len(obstacles)
}

// Reindex очищает и заново заполняет ячейки объектов, O(n)
func (g *Grid) Reindex(bodies []Body) {
	for i := range g.entityCells {
		g.entityCells[i] = g.entityCells[i][:0]
	}

	for idx, body := range bodies {
		col, row := g.cellCoords(body.Pos())
		cell := row*g.cols + col
		g.entityCells[cell] = append(g.entityCells[cell], idx)
	}

	g.entityCount = len(bodies)
}

// Query возвращает индексы объектов и препятствий в окрестности 3x3 ячейки тела.
// Результат - надмножество реальных кандидатов, точную проверку делает вызывающий.
func (g *Grid) Query(body Body) (entities []int, obstacles []int) {
	return g.QueryArea(body.Pos(), body.Radius())
}

// QueryArea то же, что Query, для произвольной точки и радиуса взаимодействия.
// Если радиус не меньше ячейки, окрестность 3x3 может пропустить кандидатов,
// поэтому возвращаются все индексы.
func (g *Grid) QueryArea(pos vecmath.Vector2D, reach float64) (entities []int, obstacles []int) {
	if reach >= g.CellSize {
		return sequence(g.entityCount), sequence(g.obstacleCount)
	}

	col, row := g.cellCoords(pos)

	for dr := -1; dr <= 1; dr++ {
		r := row + dr
		if r < 0 || r >= g.rows {
			continue
		}
		for dc := -1; dc <= 1; dc++ {
			c := col + dc
			if c < 0 || c >= g.cols {
				continue
			}
			cell := r*g.cols + c
			entities = append(entities, g.entityCells[cell]...)
			obstacles = append(obstacles, g.obstacleCells[cell]...)
		}
	}

	return uniqueSorted(entities), uniqueSorted(obstacles)
}

// ObstaclesIn индексы препятствий в одной ячейке (для отладки и тестов)
func (g *Grid) ObstaclesIn(col, row int) []int {
	if col < 0 || col >= g.cols || row < 0 || row >= g.rows {
		return nil
	}
	return slices.Clone(g.obstacleCells[row*g.cols+col])
}

func sequence(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func uniqueSorted(items []int) []int {
	if len(items) == 0 {
		return nil
	}
	slices.Sort(items)
	return slices.Compact(items)
}
