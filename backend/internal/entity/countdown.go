package entity

import (
	"math"

	"horse-race/backend/internal/vecmath"
	"horse-race/backend/internal/world"
)

// DefaultTimePerNumber секунд на одно значение отсчета
const DefaultTimePerNumber = 1.0

// Countdown перемещающийся по арене обратный отсчет перед стартом.
// Отскакивает только от границ арены.
type Countdown struct {
	Position      vecmath.Vector2D `json:"position"`
	Velocity      vecmath.Vector2D `json:"velocity"`
	Size          float64          `json:"size"`
	Value         int              `json:"value"`
	Active        bool             `json:"active"`
	TimePerNumber float64          `json:"timePerNumber"`
	Elapsed       float64          `json:"elapsed"`
}

func NewCountdown(position, velocity vecmath.Vector2D, size float64, initial int) *Countdown {
	return &Countdown{
		Position:      position,
		Velocity:      velocity,
		Size:          size,
		Value:         initial,
		Active:        initial > 0,
		TimePerNumber: DefaultTimePerNumber,
	}
}

func (c *Countdown) Pos() vecmath.Vector2D { return c.Position }
func (c *Countdown) Radius() float64       { return c.Size }
func (c *Countdown) Kind() Kind            { return KindCountdown }
func (c *Countdown) sealed()               {}

// Update двигает отсчет и уменьшает значение раз в TimePerNumber секунд.
// Возвращает true, если значение изменилось.
func (c *Countdown) Update(deltaTime float64, bounds world.Bounds) bool {
	if !c.Active {
		return false
	}

	c.Position = c.Position.Add(c.Velocity.Scale(deltaTime))

	switch {
	case c.Position.X-c.Size < bounds.Left:
		c.Position.X = bounds.Left + c.Size
		c.Velocity.X = math.Abs(c.Velocity.X)
	case c.Position.X+c.Size > bounds.Right:
		c.Position.X = bounds.Right - c.Size
		c.Velocity.X = -math.Abs(c.Velocity.X)
	}
	switch {
	case c.Position.Y-c.Size < bounds.Top:
		c.Position.Y = bounds.Top + c.Size
		c.Velocity.Y = math.Abs(c.Velocity.Y)
	case c.Position.Y+c.Size > bounds.Bottom:
		c.Position.Y = bounds.Bottom - c.Size
		c.Velocity.Y = -math.Abs(c.Velocity.Y)
	}

	step := c.TimePerNumber
	if step <= 0 {
		step = DefaultTimePerNumber
	}

	changed := false
	c.Elapsed += deltaTime
	for c.Elapsed >= step && c.Value > 0 {
		c.Value--
		c.Elapsed -= step
		changed = true
	}

	if c.Value <= 0 {
		c.Value = 0
		c.Active = false
	}

	return changed
}

func (c *Countdown) Clone() *Countdown {
	cc := *c
	return &cc
}
