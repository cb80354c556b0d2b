package vecmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon допуск для сравнения скоростей и позиций
const Epsilon = 1e-6

// Vector2D точка или скорость в нормализованных координатах арены [0,1]x[0,1]
type Vector2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// New создает вектор
func New(x, y float64) Vector2D {
	return Vector2D{X: x, Y: y}
}

// FromVec конвертирует mgl64.Vec2
func FromVec(v mgl64.Vec2) Vector2D {
	return Vector2D{X: v[0], Y: v[1]}
}

// FromAngle возвращает вектор длины magnitude под углом angle (радианы)
func FromAngle(angle, magnitude float64) Vector2D {
	return Vector2D{X: magnitude, Y: 0}.Rotate(angle)
}

// Vec конвертирует в mgl64.Vec2
func (v Vector2D) Vec() mgl64.Vec2 {
	return mgl64.Vec2{v.X, v.Y}
}

func (v Vector2D) Add(o Vector2D) Vector2D {
	return FromVec(v.Vec().Add(o.Vec()))
}

func (v Vector2D) Sub(o Vector2D) Vector2D {
	return FromVec(v.Vec().Sub(o.Vec()))
}

func (v Vector2D) Scale(s float64) Vector2D {
	return FromVec(v.Vec().Mul(s))
}

func (v Vector2D) Dot(o Vector2D) float64 {
	return v.Vec().Dot(o.Vec())
}

// Magnitude длина вектора
func (v Vector2D) Magnitude() float64 {
	return v.Vec().Len()
}

// Normalize приводит длину вектора к target.
// Нулевой вектор возвращается без изменений.
func (v Vector2D) Normalize(target float64) Vector2D {
	if v.IsZero() {
		return v
	}
	return FromVec(v.Vec().Normalize().Mul(target))
}

// Unit единичный вектор того же направления (нулевой остается нулевым)
func (v Vector2D) Unit() Vector2D {
	return v.Normalize(1)
}

// Distance расстояние между двумя точками
func (v Vector2D) Distance(o Vector2D) float64 {
	return v.Sub(o).Magnitude()
}

// Reflect отражает вектор относительно единичной нормали n: v - 2(v·n)n
func (v Vector2D) Reflect(n Vector2D) Vector2D {
	return v.Sub(n.Scale(2 * v.Dot(n)))
}

// Rotate поворачивает вектор на angle радиан
func (v Vector2D) Rotate(angle float64) Vector2D {
	return FromVec(mgl64.Rotate2D(angle).Mul2x1(v.Vec()))
}

// Clamp ограничивает компоненты прямоугольником [minX,maxX]x[minY,maxY]
func (v Vector2D) Clamp(minX, maxX, minY, maxY float64) Vector2D {
	return Vector2D{
		X: mgl64.Clamp(v.X, minX, maxX),
		Y: mgl64.Clamp(v.Y, minY, maxY),
	}
}

func (v Vector2D) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// IsFinite true если обе компоненты не NaN и не Inf
func (v Vector2D) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// ApproxEqual покомпонентное сравнение с абсолютным допуском eps
func (v Vector2D) ApproxEqual(o Vector2D, eps float64) bool {
	d := v.Sub(o)
	return mgl64.Abs(d.X) <= eps && mgl64.Abs(d.Y) <= eps
}
