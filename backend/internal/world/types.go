package world

import (
	"errors"
	"fmt"

	"horse-race/backend/internal/vecmath"
)

var (
	ErrInvalidBounds   = errors.New("некорректные границы арены")
	ErrInvalidObstacle = errors.New("некорректное препятствие")
)

// Body круглый объект, участвующий в коллизиях
type Body interface {
	Pos() vecmath.Vector2D
	Radius() float64
}

// Bounds игровой прямоугольник арены
type Bounds struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// DefaultBounds границы по умолчанию: отступ 10% с каждой стороны
func DefaultBounds() Bounds {
	return Bounds{Left: 0.1, Right: 0.9, Top: 0.1, Bottom: 0.9}
}

func (b Bounds) Validate() error {
	if !(b.Left < b.Right) || !(b.Top < b.Bottom) {
		return fmt.Errorf("%w: %+v", ErrInvalidBounds, b)
	}
	return nil
}

// Center центр арены
func (b Bounds) Center() vecmath.Vector2D {
	return vecmath.New((b.Left+b.Right)/2, (b.Top+b.Bottom)/2)
}

// Contains true если круг радиуса radius целиком внутри границ (с допуском eps)
func (b Bounds) Contains(pos vecmath.Vector2D, radius, eps float64) bool {
	return pos.X-radius >= b.Left-eps && pos.X+radius <= b.Right+eps &&
		pos.Y-radius >= b.Top-eps && pos.Y+radius <= b.Bottom+eps
}

// Obstacle прямоугольное препятствие: Position - левый верхний угол, Size - ширина и высота
type Obstacle struct {
	Position vecmath.Vector2D `json:"position"`
	Size     vecmath.Vector2D `json:"size"`
}

// NewObstacle создает препятствие по углу и размерам
func NewObstacle(x, y, w, h float64) Obstacle {
	return Obstacle{Position: vecmath.New(x, y), Size: vecmath.New(w, h)}
}

func (o Obstacle) Validate() error {
	if !o.Position.IsFinite() || !o.Size.IsFinite() {
		return fmt.Errorf("%w: нечисловые координаты", ErrInvalidObstacle)
	}
	if o.Size.X < 0 || o.Size.Y < 0 {
		return fmt.Errorf("%w: отрицательный размер %v", ErrInvalidObstacle, o.Size)
	}
	return nil
}

// Min левый верхний угол
func (o Obstacle) Min() vecmath.Vector2D {
	return o.Position
}

// Max правый нижний угол
func (o Obstacle) Max() vecmath.Vector2D {
	return o.Position.Add(o.Size)
}

func (o Obstacle) Center() vecmath.Vector2D {
	return o.Position.Add(o.Size.Scale(0.5))
}

// ClosestPoint ближайшая к p точка прямоугольника
func (o Obstacle) ClosestPoint(p vecmath.Vector2D) vecmath.Vector2D {
	hi := o.Max()
	return p.Clamp(o.Position.X, hi.X, o.Position.Y, hi.Y)
}
